package pagenum

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tsawler/pagenum/internal/pdftest"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/reader"
)

func writePDF(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen(t *testing.T) {
	// Test with non-existent file
	_, err := Open("nonexistent.pdf").Inspect()
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

// TestEditorImmutability tests that chain methods do not modify the receiver
func TestEditorImmutability(t *testing.T) {
	base := Open("in.pdf")
	withLabel := base.Label(3, model.LabelRange{Start: 1, Style: model.StyleDecimal})
	withOutput := withLabel.To("out.pdf").Overwrite()

	if len(base.options.labels) != 0 {
		t.Error("expected the base editor to stay unchanged")
	}
	if len(withLabel.options.labels) != 1 || withLabel.options.output != "" {
		t.Error("expected the label editor to hold one edit and no output")
	}
	if withOutput.options.output != "out.pdf" || !withOutput.options.overwrite {
		t.Error("expected output settings on the last editor")
	}
}

// TestEditorErrors tests fail-fast configuration errors
func TestEditorErrors(t *testing.T) {
	tests := []struct {
		name   string
		editor *Editor
	}{
		{"remove index 0", Open("x.pdf").RemoveLabel(0)},
		{"start 0", Open("x.pdf").Label(1, model.LabelRange{Start: 0})},
		{"empty crop box", Open("x.pdf").CropBox(model.Rect{})},
		{"bad markdown outline", Open("x.pdf").OutlineMarkdown([]byte("- no link\n"))},
		{"nil outline", Open("x.pdf").Outline(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.editor.To("y.pdf").Snapshot(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestEditorSnapshot tests edits applied on top of the document's labels
func TestEditorSnapshot(t *testing.T) {
	in := writePDF(t, pdftest.Document(6, "/PageLabels << /Nums [0 << /S /r >> 2 << /S /D >> 4 << /S /A >>] >>").Bytes(""))

	snap, err := Open(in).
		Label(2, model.LabelRange{Prefix: "p", Start: 7, Style: model.StyleDecimal}).
		RemoveLabel(4).
		Label(5, model.LabelRange{Start: 1, Style: model.StyleUpperRoman}).
		Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	expected := model.LabelTableOf(
		model.LabelEntry{Index: 0, Range: model.LabelRange{Start: 1, Style: model.StyleLowerRoman}},
		model.LabelEntry{Index: 2, Range: model.LabelRange{Prefix: "p", Start: 7, Style: model.StyleDecimal}},
		model.LabelEntry{Index: 5, Range: model.LabelRange{Start: 1, Style: model.StyleUpperRoman}},
	)
	if !snap.Labels.Equal(expected) {
		t.Errorf("expected %s, got %s", expected, snap.Labels)
	}

	if _, err := Open(in).Label(6, model.DefaultLabelRange()).Snapshot(); err == nil {
		t.Error("expected an error for a label beyond the last page")
	}
	if _, err := Open(in).RemoveLabel(3).Snapshot(); err == nil {
		t.Error("expected an error for removing a missing range")
	}

	reset, err := Open(in).ResetLabels().Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !reset.Labels.Equal(model.NewDefaultLabelTable()) {
		t.Errorf("expected the default table after reset, got %s", reset.Labels)
	}
}

// TestEditorSave tests a full edit written to disk
func TestEditorSave(t *testing.T) {
	in := writePDF(t, pdftest.Document(3, "").Bytes(""))
	out := filepath.Join(filepath.Dir(in), "out.pdf")
	md := "- [Start](#page=1)\n  - [Detail](#page=3)\n"
	box := model.NewRect(model.Point{X: 0, Y: 0}, model.Point{X: 500, Y: 700})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Open(in).
		Label(1, model.LabelRange{Prefix: "A-", Start: 1, Style: model.StyleDecimal}).
		OutlineMarkdown([]byte(md)).
		CropBox(box).
		To(out).
		Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	res, err := Open(out).Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if r, ok := res.Snapshot.Labels.Get(1); !ok || r.Prefix != "A-" {
		t.Errorf("expected the A- range at 1, got %s", res.Snapshot.Labels)
	}
	if res.Snapshot.Outline.Len() != 2 {
		t.Errorf("expected 2 bookmarks, got %s", res.Snapshot.Outline)
	}

	r, err := reader.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	page, _ := r.GetPage(2)
	crop, _ := page.CropBox()
	if len(crop) != 4 || crop[2] != 500 || crop[3] != 700 {
		t.Errorf("expected crop box [0 0 500 700], got %v", crop)
	}

	err = Open(in).To(out).Save(ctx)
	if err == nil || !strings.Contains(err.Error(), "exists") {
		t.Errorf("expected an already-exists error, got %v", err)
	}
	if err := Open(in).To(out).Overwrite().Save(ctx); err != nil {
		t.Errorf("expected overwrite to succeed, got %v", err)
	}
	if err := Open(in).Save(ctx); err == nil {
		t.Error("expected an error without output path")
	}
}

// TestMust tests the panic helper
func TestMust(t *testing.T) {
	if got := Must(42, nil); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	Must(Open("nonexistent.pdf").Inspect())
}
