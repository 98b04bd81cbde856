package saver

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tsawler/pagenum/event"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/pdferr"
)

// Options configures a Saver.
type Options struct {
	Logger observability.Logger

	// OutputPath and Overwrite are the initial save settings
	OutputPath string
	Overwrite  bool
}

// submission is a job handed to the worker. relevant is cleared on the
// main goroutine when a newer save supersedes it.
type submission struct {
	job      *Job
	ctx      context.Context
	cancel   context.CancelFunc
	relevant atomic.Bool
	done     chan struct{}
}

// Saver coordinates background saves. Except where noted, its methods
// must be called from the goroutine that owns the document.
type Saver struct {
	doc      *model.Document
	input    InputSource
	writer   DocumentWriter
	dispatch Dispatcher
	log      observability.Logger
	bus      *event.Bus
	worker   *worker

	outputPath string
	overwrite  bool
	current    *submission
	last       *Finished
	closed     bool
}

// New creates a saver for doc and starts its worker goroutine.
func New(doc *model.Document, input InputSource, w DocumentWriter, d Dispatcher, opts *Options) *Saver {
	s := &Saver{
		doc:      doc,
		input:    input,
		writer:   w,
		dispatch: d,
		log:      observability.NopLogger{},
		bus:      event.NewBus(),
	}
	if opts != nil {
		s.log = observability.OrNop(opts.Logger)
		s.outputPath = opts.OutputPath
		s.overwrite = opts.Overwrite
	}
	s.worker = startWorker(s.run)
	return s
}

// Bus carries StartedSaving, Finished, OutputPathChanged and
// OverwriteChanged.
func (s *Saver) Bus() *event.Bus { return s.bus }

// OutputPath returns the path the next job writes to.
func (s *Saver) OutputPath() string { return s.outputPath }

// SetOutputPath changes the output path, posting OutputPathChanged on change.
func (s *Saver) SetOutputPath(path string) {
	if path == s.outputPath {
		return
	}
	s.outputPath = path
	s.bus.Post(OutputPathChanged{Path: path})
}

// Overwrite reports whether an existing output may be replaced.
func (s *Saver) Overwrite() bool { return s.overwrite }

// SetOverwrite changes the overwrite flag, posting OverwriteChanged on change.
func (s *Saver) SetOverwrite(overwrite bool) {
	if overwrite == s.overwrite {
		return
	}
	s.overwrite = overwrite
	s.bus.Post(OverwriteChanged{Overwrite: overwrite})
}

// IsRunning reports whether the latest job has not been delivered yet.
func (s *Saver) IsRunning() bool { return s.current != nil }

// LastFinished returns the result of the latest delivered job, or nil.
func (s *Saver) LastFinished() *Finished { return s.last }

// Save snapshots the document and submits a job, superseding the one in
// flight. It panics if the document has no label ranges.
func (s *Saver) Save() *Job {
	if s.closed {
		panic("saver: Save called after Close")
	}
	if s.doc.IsEmpty() {
		panic("saver: cannot save a document without label ranges")
	}

	if prev := s.current; prev != nil {
		prev.relevant.Store(false)
		prev.cancel()
		s.log.Debug("superseding save", observability.String("job", prev.job.ID.String()))
	}

	job := &Job{
		ID:         uuid.New(),
		Snapshot:   s.doc.Snapshot(),
		InputPath:  s.input.Path(),
		OutputPath: s.outputPath,
		Overwrite:  s.overwrite,
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &submission{job: job, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	sub.relevant.Store(true)
	s.current = sub

	s.worker.submit(sub)
	s.log.Debug("save submitted",
		observability.String("job", job.ID.String()),
		observability.String("output", job.OutputPath))
	s.bus.Post(StartedSaving{Job: job})
	return job
}

// Wait blocks until the worker is done with the latest job, or ctx ends.
// The Finished event is delivered afterwards through the dispatcher.
func (s *Saver) Wait(ctx context.Context) error {
	cur := s.current
	if cur == nil {
		return nil
	}
	select {
	case <-cur.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker. It refuses while a job is running; the error
// then has code CodeBusy. Closing twice is harmless.
func (s *Saver) Close() error {
	if s.closed {
		return nil
	}
	if s.current != nil {
		return pdferr.New(pdferr.CodeBusy, "a save is still running")
	}
	s.worker.stop()
	s.closed = true
	return nil
}

// run executes a submission on the worker goroutine.
func (s *Saver) run(sub *submission) {
	defer close(sub.done)
	msg := s.write(sub)
	sub.cancel()
	s.dispatch.Dispatch(func() { s.finish(sub, msg) })
}

func (s *Saver) write(sub *submission) (msg string) {
	defer func() {
		if p := recover(); p != nil {
			msg = pdferr.Message(pdferr.Newf(pdferr.CodeIO, "writer panicked: %v", p))
		}
	}()
	job := sub.job
	err := s.writer.Write(sub.ctx, job.InputPath, job.OutputPath, job.Overwrite, job.Snapshot)
	if err != nil && sub.relevant.Load() {
		s.log.Warn("save failed", observability.String("job", job.ID.String()), observability.Err(err))
	}
	return pdferr.Message(err)
}

// finish runs on the main goroutine.
func (s *Saver) finish(sub *submission, msg string) {
	if !sub.relevant.Load() {
		s.log.Debug("discarding superseded result", observability.String("job", sub.job.ID.String()))
		return
	}
	if s.current == sub {
		s.current = nil
	}
	f := &Finished{Job: sub.job, ErrorMessage: msg}
	s.last = f
	s.log.Info("save finished",
		observability.String("job", sub.job.ID.String()),
		observability.Bool("ok", f.Succeeded()))
	s.bus.Post(*f)
}
