package saver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tsawler/pagenum/event"
	"github.com/tsawler/pagenum/internal/pdftest"
	"github.com/tsawler/pagenum/mainloop"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/writer"
)

type stubInput struct{ path string }

func (in stubInput) Path() string { return in.path }

// fakeWriter records calls. When block is set, the first call waits for
// it or for cancellation.
type fakeWriter struct {
	mu      sync.Mutex
	outputs []string
	ctxErrs []error
	block   chan struct{}
	err     error
	panicky bool
}

func (w *fakeWriter) Write(ctx context.Context, input, output string, overwrite bool, snap *model.Snapshot) error {
	w.mu.Lock()
	first := len(w.outputs) == 0
	w.outputs = append(w.outputs, output)
	w.mu.Unlock()

	if w.panicky {
		panic("disk on fire")
	}
	if first && w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
		}
	}
	w.mu.Lock()
	w.ctxErrs = append(w.ctxErrs, ctx.Err())
	w.mu.Unlock()
	if ctx.Err() != nil {
		return pdferr.Wrap(pdferr.CodeInterrupted, "save interrupted", ctx.Err())
	}
	return w.err
}

func (w *fakeWriter) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.outputs)
}

type fixture struct {
	doc      *model.Document
	loop     *mainloop.Loop
	saver    *Saver
	writer   *fakeWriter
	started  []StartedSaving
	finished []Finished
}

func newFixture(t *testing.T, w *fakeWriter) *fixture {
	t.Helper()
	f := &fixture{doc: model.NewDocument(), loop: mainloop.New(), writer: w}
	f.doc.Labels().ReplaceAll(model.NewDefaultLabelTable())
	f.saver = New(f.doc, stubInput{"in.pdf"}, w, f.loop, &Options{OutputPath: "out.pdf"})
	f.saver.Bus().Subscribe(func(ev event.Event) {
		switch e := ev.(type) {
		case StartedSaving:
			f.started = append(f.started, e)
		case Finished:
			f.finished = append(f.finished, e)
		}
	})
	t.Cleanup(func() {
		f.settle(t)
		f.saver.Close()
	})
	return f
}

// settle waits for the worker and delivers pending completions
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.saver.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	f.loop.Drain()
}

// TestSaveDelivers tests the life cycle of a single save
func TestSaveDelivers(t *testing.T) {
	f := newFixture(t, &fakeWriter{})

	job := f.saver.Save()
	if len(f.started) != 1 || f.started[0].Job != job {
		t.Fatalf("expected StartedSaving for the job, got %v", f.started)
	}
	if !f.saver.IsRunning() {
		t.Error("expected the saver to be running")
	}
	if job.InputPath != "in.pdf" || job.OutputPath != "out.pdf" || job.Overwrite {
		t.Errorf("unexpected job settings: %+v", job)
	}

	f.settle(t)
	if len(f.finished) != 1 {
		t.Fatalf("expected one Finished event, got %d", len(f.finished))
	}
	if f.finished[0].Job != job || !f.finished[0].Succeeded() {
		t.Errorf("expected a successful result for the job, got %+v", f.finished[0])
	}
	if last := f.saver.LastFinished(); last == nil || last.Job != job {
		t.Errorf("expected LastFinished to hold the job, got %v", last)
	}
	if f.saver.IsRunning() {
		t.Error("expected the saver to be idle")
	}
}

// TestTwoRapidSaves tests that only the second of two quick saves is kept
func TestTwoRapidSaves(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	f := newFixture(t, w)

	first := f.saver.Save()
	f.doc.Labels().SetStart(0, 2)
	second := f.saver.Save()
	if first.ID == second.ID {
		t.Fatal("expected distinct job IDs")
	}

	f.settle(t)
	if len(f.finished) != 1 {
		t.Fatalf("expected exactly one Finished event, got %d", len(f.finished))
	}
	if f.finished[0].Job != second {
		t.Errorf("expected the second job to finish, got %v", f.finished[0].Job)
	}
	if f.saver.LastFinished().Job != second {
		t.Error("expected the second job as last result")
	}
	if w.calls() != 2 {
		t.Errorf("expected both jobs to reach the writer, got %d", w.calls())
	}
	if w.ctxErrs[0] == nil {
		t.Error("expected the first job to be cancelled")
	}
	if r, _ := second.Snapshot.Labels.Get(0); r.Start != 2 {
		t.Errorf("expected the second job to see start 2, got %d", r.Start)
	}
}

// TestSaveSnapshotIsFrozen tests that later edits do not reach a job
func TestSaveSnapshotIsFrozen(t *testing.T) {
	f := newFixture(t, &fakeWriter{})
	job := f.saver.Save()
	f.doc.Labels().SetPrefix(0, "x")

	if r, _ := job.Snapshot.Labels.Get(0); r.Prefix != "" {
		t.Errorf("expected the job to keep the old prefix, got %q", r.Prefix)
	}
	if !job.Snapshot.Labels.Frozen() {
		t.Error("expected a frozen snapshot")
	}
}

// TestSaveEmptyDocument tests the empty-model precondition
func TestSaveEmptyDocument(t *testing.T) {
	f := newFixture(t, &fakeWriter{})
	f.doc.Labels().Clear()

	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	f.saver.Save()
}

// TestSaveFailures tests that writer failures become messages
func TestSaveFailures(t *testing.T) {
	tests := []struct {
		name     string
		writer   *fakeWriter
		expected string
	}{
		{"not found", &fakeWriter{err: pdferr.Wrap(pdferr.CodeNotFound, "input missing", os.ErrNotExist)}, "File not found"},
		{"exists", &fakeWriter{err: pdferr.New(pdferr.CodeAlreadyExists, "output exists").WithPath("out.pdf")}, "Already exists: out.pdf"},
		{"panic", &fakeWriter{panicky: true}, "writer panicked: disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.writer)
			f.saver.Save()
			f.settle(t)
			if len(f.finished) != 1 {
				t.Fatalf("expected one Finished event, got %d", len(f.finished))
			}
			if !strings.HasPrefix(f.finished[0].ErrorMessage, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, f.finished[0].ErrorMessage)
			}
		})
	}
}

// TestSaverSettings tests that settings post events only on change
func TestSaverSettings(t *testing.T) {
	f := newFixture(t, &fakeWriter{})
	var events []event.Event
	f.saver.Bus().Subscribe(func(ev event.Event) { events = append(events, ev) })

	f.saver.SetOutputPath("out.pdf")
	f.saver.SetOverwrite(false)
	if len(events) != 0 {
		t.Errorf("expected no events for unchanged settings, got %v", events)
	}

	f.saver.SetOutputPath("other.pdf")
	f.saver.SetOverwrite(true)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if e, ok := events[0].(OutputPathChanged); !ok || e.Path != "other.pdf" {
		t.Errorf("expected OutputPathChanged{other.pdf}, got %v", events[0])
	}
	if e, ok := events[1].(OverwriteChanged); !ok || !e.Overwrite {
		t.Errorf("expected OverwriteChanged{true}, got %v", events[1])
	}
	if job := f.saver.Save(); job.OutputPath != "other.pdf" || !job.Overwrite {
		t.Errorf("expected the job to use the new settings, got %+v", job)
	}
}

// TestSaverClose tests that Close refuses while a job is pending
func TestSaverClose(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	f := newFixture(t, w)
	f.saver.Save()

	err := f.saver.Close()
	if code, _ := pdferr.GetCode(err); code != pdferr.CodeBusy {
		t.Errorf("expected %s, got %v", pdferr.CodeBusy, err)
	}

	close(w.block)
	f.settle(t)
	if err := f.saver.Close(); err != nil {
		t.Errorf("expected Close to succeed, got %v", err)
	}
	if err := f.saver.Close(); err != nil {
		t.Errorf("expected a second Close to be harmless, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected Save after Close to panic")
		}
	}()
	f.saver.Save()
}

// TestSaveWithWriter tests a save through the real writer
func TestSaveWithWriter(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, pdftest.Document(2, "").Bytes(""), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := model.NewDocument()
	doc.Labels().ReplaceAll(model.NewDefaultLabelTable())
	loop := mainloop.New()
	s := New(doc, stubInput{in}, writer.New(nil), loop, &Options{OutputPath: out})
	defer s.Close()

	s.Save()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	loop.Drain()

	last := s.LastFinished()
	if last == nil || !last.Succeeded() {
		t.Fatalf("expected success, got %+v", last)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected the output to exist: %v", err)
	}
}
