package pagenum

import (
	"context"
	"time"

	"github.com/tsawler/pagenum/loader"
	"github.com/tsawler/pagenum/mainloop"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/saver"
	"github.com/tsawler/pagenum/status"
	"github.com/tsawler/pagenum/writer"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// OutputPath and Overwrite are the initial save settings
	OutputPath string
	Overwrite  bool

	// CacheTTL is passed to the loader; see loader.Options
	CacheTTL time.Duration

	// Writer persists saves; nil uses writer.New
	Writer saver.DocumentWriter

	Logger observability.Logger
}

// Session wires a live document to its input, its background saver, an
// auto-saver and a status tracker. Every method except Loop and Close must
// be called on the goroutine that pumps Loop, or before the loop starts.
type Session struct {
	doc     *model.Document
	loop    *mainloop.Loop
	input   *loader.Input
	saver   *saver.Saver
	auto    *saver.AutoSaver
	tracker *status.Tracker
	log     observability.Logger
}

// NewSession creates a session with an empty document and no input.
func NewSession(opts *SessionOptions) *Session {
	var o SessionOptions
	if opts != nil {
		o = *opts
	}
	o.Logger = observability.OrNop(o.Logger)
	if o.Writer == nil {
		o.Writer = writer.New(&writer.Options{Logger: o.Logger})
	}

	s := &Session{
		doc:  model.NewDocument(),
		loop: mainloop.New(),
		log:  o.Logger,
	}
	s.input = loader.NewInput(loader.New(&loader.Options{CacheTTL: o.CacheTTL, Logger: o.Logger}))
	s.saver = saver.New(s.doc, s.input, o.Writer, s.loop, &saver.Options{
		Logger:     o.Logger,
		OutputPath: o.OutputPath,
		Overwrite:  o.Overwrite,
	})
	s.auto = saver.NewAutoSaver(s.saver, s.doc, s.input.Bus())
	s.tracker = status.NewTracker(s.doc, s.input, s.saver)
	return s
}

// Document returns the live document
func (s *Session) Document() *model.Document { return s.doc }

// Loop returns the loop that owns the session
func (s *Session) Loop() *mainloop.Loop { return s.loop }

// Input returns the input tracker
func (s *Session) Input() *loader.Input { return s.input }

// Saver returns the background saver
func (s *Session) Saver() *saver.Saver { return s.saver }

// AutoSaver returns the auto-saver, disabled initially
func (s *Session) AutoSaver() *saver.AutoSaver { return s.auto }

// Tracker returns the status tracker
func (s *Session) Tracker() *status.Tracker { return s.tracker }

// Open makes path the input and reads it into the document. Auto-save is
// switched off when the path changes.
func (s *Session) Open(path string) *loader.ReadEvent {
	ev := s.input.Open(path, s.doc)
	if !ev.Result.Succeeded {
		s.log.Warn("cannot read input", observability.String("path", path),
			observability.String("error", ev.Result.ErrorMessage))
	}
	return ev
}

// Reload reads the current input again from disk, ignoring any cached
// result. Unlike Open it keeps auto-save on.
func (s *Session) Reload() *loader.ReadEvent {
	ev := s.input.Reload(s.doc)
	if !ev.Result.Succeeded {
		s.log.Warn("cannot reload input", observability.String("path", s.input.Path()),
			observability.String("error", ev.Result.ErrorMessage))
	}
	return ev
}

// LastError returns the most recent error message, from the last save if
// there was one, otherwise from the last read. Empty means no error.
func (s *Session) LastError() string {
	if f := s.saver.LastFinished(); f != nil {
		return f.ErrorMessage
	}
	if ev := s.input.LastRead(); ev != nil {
		return ev.Result.ErrorMessage
	}
	return ""
}

// Close waits for a running save to be delivered, then stops the saver.
// It must run on the loop goroutine, or after the loop has stopped.
func (s *Session) Close(ctx context.Context) error {
	for s.saver.IsRunning() {
		if err := s.saver.Wait(ctx); err != nil {
			return err
		}
		s.loop.Drain()
	}
	s.auto.Detach()
	s.tracker.Detach()
	return s.saver.Close()
}
