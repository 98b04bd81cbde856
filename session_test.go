package pagenum

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tsawler/pagenum/internal/pdftest"
	"github.com/tsawler/pagenum/model"
)

// TestSessionSaveCycle tests open, edit, save and the saved status
func TestSessionSaveCycle(t *testing.T) {
	in := writePDF(t, pdftest.Document(4, "").Bytes(""))
	out := filepath.Join(filepath.Dir(in), "out.pdf")

	s := NewSession(&SessionOptions{OutputPath: out, CacheTTL: -1})
	ev := s.Open(in)
	if !ev.Result.Succeeded {
		t.Fatalf("expected a successful read, got %q", ev.Result.ErrorMessage)
	}
	if s.Tracker().IsSaved() {
		t.Error("expected an unsaved document before the first save")
	}
	if s.Tracker().HasChangedSinceLastRead() {
		t.Error("expected no change right after reading")
	}

	s.Document().Labels().PutNew(2, model.LabelRange{Prefix: "B", Start: 1, Style: model.StyleDecimal})
	if !s.Tracker().HasChangedSinceLastRead() {
		t.Error("expected a change after editing the labels")
	}

	s.Saver().Save()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Saver().Wait(ctx); err != nil {
		t.Fatal(err)
	}
	s.Loop().Drain()

	if msg := s.LastError(); msg != "" {
		t.Fatalf("expected no error, got %q", msg)
	}
	if !s.Tracker().IsSaved() {
		t.Error("expected the document to be saved")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected the output file, got %v", err)
	}

	s.Document().Labels().SetStart(2, 9)
	if s.Tracker().IsSaved() {
		t.Error("expected an unsaved document after a further edit")
	}

	if err := s.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestSessionOpenFailure tests the error reported for an unreadable input
func TestSessionOpenFailure(t *testing.T) {
	s := NewSession(nil)
	ev := s.Open(filepath.Join(t.TempDir(), "missing.pdf"))
	if ev.Result.Succeeded {
		t.Fatal("expected the read to fail")
	}
	if s.LastError() == "" {
		t.Error("expected LastError to report the read failure")
	}
	if !s.Document().IsEmpty() {
		t.Error("expected an empty document after a failed read")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestSessionCloseWaits tests that Close delivers a running save
func TestSessionCloseWaits(t *testing.T) {
	in := writePDF(t, pdftest.Document(2, "").Bytes(""))
	out := filepath.Join(filepath.Dir(in), "out.pdf")

	s := NewSession(&SessionOptions{OutputPath: out})
	s.Open(in)
	s.Saver().Save()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Saver().IsRunning() {
		t.Error("expected no running save after Close")
	}
	if f := s.Saver().LastFinished(); f == nil || !f.Succeeded() {
		t.Errorf("expected a successful save, got %+v", f)
	}
}

// TestSessionReload tests that reloading discards edits and keeps auto-save
func TestSessionReload(t *testing.T) {
	in := writePDF(t, pdftest.Document(3, "").Bytes(""))
	out := filepath.Join(filepath.Dir(in), "out.pdf")
	s := NewSession(&SessionOptions{OutputPath: out, Overwrite: true})
	s.Open(in)
	s.AutoSaver().SetEnabled(true)

	s.Document().Labels().SetPrefix(0, "x-")
	if !s.Tracker().HasChangedSinceLastRead() {
		t.Fatal("expected a change after editing")
	}

	ev := s.Reload()
	if !ev.Result.Succeeded {
		t.Fatalf("expected a successful reload, got %q", ev.Result.ErrorMessage)
	}
	if r, _ := s.Document().Labels().Get(0); r.Prefix != "" {
		t.Errorf("expected the edit to be discarded, got prefix %q", r.Prefix)
	}
	if s.Tracker().HasChangedSinceLastRead() {
		t.Error("expected no change right after reloading")
	}
	if !s.AutoSaver().Enabled() {
		t.Error("expected auto-save to stay on")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}
