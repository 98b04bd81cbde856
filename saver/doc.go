// Package saver persists the live document in the background.
//
// A Saver snapshots the document into an immutable Job and hands it to a
// single worker goroutine, which calls the DocumentWriter. Starting a new
// save cancels the one in flight and marks it irrelevant, so a superseded
// job can never become the last finished result. Completions are delivered
// through a Dispatcher onto the goroutine that owns the model, where they
// are posted as Finished events.
//
// An AutoSaver listens to model and setting changes and calls Save when
// auto-save is enabled.
//
// Basic usage:
//
//	loop := mainloop.New()
//	s := saver.New(doc, input, writer.New(nil), loop, nil)
//	s.SetOutputPath("out.pdf")
//	s.Save()
//	...
//	loop.Drain() // delivers saver.Finished
package saver
