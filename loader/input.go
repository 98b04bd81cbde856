package loader

import (
	"github.com/tsawler/pagenum/event"
	"github.com/tsawler/pagenum/model"
)

// InputPathChanged is posted when the input path changes.
type InputPathChanged struct {
	Path string
}

// ReadEvent is posted after every read, successful or not.
type ReadEvent struct {
	Result *Result
}

// Input tracks the document being edited. It belongs to the main loop.
type Input struct {
	loader *Loader
	path   string
	last   *ReadEvent
	bus    *event.Bus
}

// NewInput creates an input with no path that reads through l.
func NewInput(l *Loader) *Input {
	return &Input{
		loader: l,
		bus:    event.NewBus(),
	}
}

// Bus carries InputPathChanged and ReadEvent.
func (in *Input) Bus() *event.Bus { return in.bus }

// Path returns the current input path.
func (in *Input) Path() string { return in.path }

// SetPath changes the input path, posting InputPathChanged on change. It
// reports whether the path changed.
func (in *Input) SetPath(path string) bool {
	if path == in.path {
		return false
	}
	in.path = path
	in.bus.Post(InputPathChanged{Path: path})
	return true
}

// LastRead returns the most recent read, or nil before the first one.
func (in *Input) LastRead() *ReadEvent { return in.last }

// Read loads the current path, seeds doc with the result (when doc is not
// nil) and posts a ReadEvent. A failed read seeds an empty label table.
func (in *Input) Read(doc *model.Document) *ReadEvent {
	ev := &ReadEvent{Result: in.loader.Load(in.path)}
	in.last = ev
	if doc != nil {
		doc.Seed(ev.Result.Snapshot)
	}
	in.bus.Post(*ev)
	return ev
}

// Reload reads the current path again, bypassing the loader cache. It is
// used when the file may have been rewritten within the same second and
// with the same size, which the cache key cannot tell apart.
func (in *Input) Reload(doc *model.Document) *ReadEvent {
	in.loader.Forget(in.path)
	return in.Read(doc)
}

// Open sets the path and reads it.
func (in *Input) Open(path string, doc *model.Document) *ReadEvent {
	in.SetPath(path)
	return in.Read(doc)
}
