package writer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/internal/pdftest"
	"github.com/tsawler/pagenum/loader"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/reader"
)

func writeInput(t *testing.T, data []byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return in, filepath.Join(dir, "out.pdf")
}

func sampleLabels() *model.LabelTable {
	return model.LabelTableOf(
		model.LabelEntry{Index: 0, Range: model.LabelRange{Start: 1, Style: model.StyleLowerRoman}},
		model.LabelEntry{Index: 2, Range: model.LabelRange{Prefix: "A-", Start: 5, Style: model.StyleDecimal}},
		model.LabelEntry{Index: 3, Range: model.LabelRange{Prefix: "Annexe é", Start: 1, Style: model.StyleNone}},
	)
}

func sampleOutline() *model.Outline {
	return model.OutlineOf(
		model.NewNode(model.Bookmark{Title: "Preface", PageIndex: 0}),
		model.NewNode(model.Bookmark{Title: "Chapter 1", PageIndex: 2},
			model.NewNode(model.Bookmark{Title: "Section 1.1", PageIndex: 2}),
			model.NewNode(model.Bookmark{Title: "Résumé", PageIndex: 3})),
		model.NewNode(model.Bookmark{Title: "Index", PageIndex: 3}),
	)
}

// TestLabelTree tests the serialized form of a label table
func TestLabelTree(t *testing.T) {
	table := model.LabelTableOf(
		model.LabelEntry{Index: 0, Range: model.LabelRange{Start: 1, Style: model.StyleLowerRoman}},
		model.LabelEntry{Index: 2, Range: model.LabelRange{Prefix: "A-", Start: 5, Style: model.StyleDecimal}},
		model.LabelEntry{Index: 4, Range: model.LabelRange{Start: 1, Style: model.StyleNone}},
	)
	expected := "<</Nums [0 <</S /r>> 2 <</P (A-) /S /D /St 5>> 4 <<>>]>>"
	if got := string(core.FormatObject(labelTree(table))); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

// TestWriteRoundTrip tests that labels and outline read back unchanged, for
// both cross-reference forms
func TestWriteRoundTrip(t *testing.T) {
	classic := pdftest.Document(4, "").Bytes("")
	stream := pdftest.Document(4, "")
	stream.Compress(3, 4)

	tests := []struct {
		name       string
		data       []byte
		xrefStream bool
	}{
		{"classic xref", classic, false},
		{"xref stream", stream.XRefStreamBytes(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := writeInput(t, tt.data)
			snap := model.NewSnapshot(sampleLabels(), sampleOutline(), nil)

			if err := New(nil).Write(context.Background(), in, out, false, snap); err != nil {
				t.Fatalf("Write: %v", err)
			}

			written, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(written, tt.data) {
				t.Error("expected the output to start with the unchanged input")
			}

			r, err := reader.Open(out)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer r.Close()
			if r.UsesXRefStream() != tt.xrefStream {
				t.Errorf("expected xref stream %v, got %v", tt.xrefStream, r.UsesXRefStream())
			}
			if r.Sections() != 2 {
				t.Errorf("expected 2 xref sections, got %d", r.Sections())
			}

			res := loader.New(nil).Load(out)
			if !res.Succeeded || !res.OutlineSucceeded {
				t.Fatalf("reload failed: %q / %q", res.ErrorMessage, res.OutlineErrorMessage)
			}
			if !res.Snapshot.Labels.Equal(snap.Labels) {
				t.Errorf("expected labels %s, got %s", snap.Labels, res.Snapshot.Labels)
			}
			if !res.Snapshot.Outline.Equal(snap.Outline) {
				t.Errorf("expected outline %s, got %s", snap.Outline, res.Snapshot.Outline)
			}
		})
	}
}

// TestWriteOutlineStructure tests the links between written outline items
func TestWriteOutlineStructure(t *testing.T) {
	in, out := writeInput(t, pdftest.Document(4, "").Bytes(""))
	snap := model.NewSnapshot(model.NewDefaultLabelTable(), sampleOutline(), nil)
	if err := New(nil).Write(context.Background(), in, out, false, snap); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := reader.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	catalog, _ := r.GetCatalog()
	obj, err := r.Resolve(catalog.Get("Outlines"))
	if err != nil {
		t.Fatal(err)
	}
	root := obj.(core.Dict)
	if count, _ := root.GetInt("Count"); count != 3 {
		t.Errorf("expected root count 3, got %d", count)
	}

	firstObj, _ := r.Resolve(root.Get("First"))
	first := firstObj.(core.Dict)
	if _, ok := first.GetIndirectRef("Prev"); ok {
		t.Error("expected no /Prev on the first item")
	}
	secondObj, _ := r.Resolve(first.Get("Next"))
	second := secondObj.(core.Dict)
	if title, _ := second.GetString("Title"); string(title) != "Chapter 1" {
		t.Errorf("expected Chapter 1, got %q", title)
	}
	if count, _ := second.GetInt("Count"); count != -2 {
		t.Errorf("expected a closed item with count -2, got %d", count)
	}
	lastRef, _ := root.GetIndirectRef("Last")
	nextOfSecond, _ := second.GetIndirectRef("Next")
	if lastRef != nextOfSecond {
		t.Errorf("expected /Last %v to be the third item %v", lastRef, nextOfSecond)
	}
	dest, _ := first.GetArray("Dest")
	if name, _ := dest.GetName(1); name != "Fit" {
		t.Errorf("expected a /Fit destination, got %v", dest)
	}
}

// TestWriteOutlineKeptOrCleared tests the nil and empty outline cases
func TestWriteOutlineKeptOrCleared(t *testing.T) {
	b := pdftest.Document(2, "/Outlines 5 0 R")
	b.Add("<< /Type /Outlines /First 6 0 R /Last 6 0 R /Count 1 >>")
	b.Add("<< /Title (Kept) /Parent 5 0 R /Dest [4 0 R /Fit] >>")
	data := b.Bytes("")
	kept := model.OutlineOf(model.NewNode(model.Bookmark{Title: "Kept", PageIndex: 1}))

	tests := []struct {
		name     string
		outline  *model.Outline
		expected *model.Outline
	}{
		{"nil keeps the outline", nil, kept},
		{"empty clears it", model.NewOutline(), model.NewOutline()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := writeInput(t, data)
			snap := model.NewSnapshot(model.NewDefaultLabelTable(), tt.outline, nil)
			if err := New(nil).Write(context.Background(), in, out, false, snap); err != nil {
				t.Fatalf("Write: %v", err)
			}
			res := loader.New(nil).Load(out)
			if !res.OutlineSucceeded {
				t.Fatalf("reload: %q", res.OutlineErrorMessage)
			}
			if !res.Snapshot.Outline.Equal(tt.expected) {
				t.Errorf("expected outline %s, got %s", tt.expected, res.Snapshot.Outline)
			}
		})
	}
}

// TestWriteCropBox tests that the crop box is set on every page
func TestWriteCropBox(t *testing.T) {
	in, out := writeInput(t, pdftest.Document(3, "").Bytes("/Info 6 0 R /ID [<01> <02>]"))
	box := model.NewRect(model.Point{X: 10, Y: 20}, model.Point{X: 300.5, Y: 400})
	snap := model.NewSnapshot(model.NewDefaultLabelTable(), nil, &box)

	if err := New(nil).Write(context.Background(), in, out, false, snap); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := reader.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	for i := 0; i < 3; i++ {
		page, err := r.GetPage(i)
		if err != nil {
			t.Fatal(err)
		}
		crop, err := page.CropBox()
		if err != nil {
			t.Fatal(err)
		}
		expected := []float64{10, 20, 300.5, 400}
		for j := range expected {
			if crop[j] != expected[j] {
				t.Errorf("page %d: expected crop box %v, got %v", i, expected, crop)
				break
			}
		}
		media, _ := page.MediaBox()
		if media[2] != 612 {
			t.Errorf("page %d: expected the media box to stay, got %v", i, media)
		}
	}
	if ref, ok := r.Trailer().GetIndirectRef("Info"); !ok || ref.Number != 6 {
		t.Errorf("expected /Info to be carried over, got %v", r.Trailer().Get("Info"))
	}
	if !r.Trailer().Has("ID") {
		t.Error("expected /ID to be carried over")
	}
}

// TestWriteErrors tests the failures reported to users
func TestWriteErrors(t *testing.T) {
	snap := model.NewSnapshot(model.NewDefaultLabelTable(), nil, nil)
	plain := pdftest.Document(1, "").Bytes("")

	t.Run("missing input", func(t *testing.T) {
		dir := t.TempDir()
		err := New(nil).Write(context.Background(), filepath.Join(dir, "nope.pdf"), filepath.Join(dir, "out.pdf"), false, snap)
		if msg := pdferr.Message(err); msg != "File not found" {
			t.Errorf("expected File not found, got %q", msg)
		}
	})

	t.Run("encrypted", func(t *testing.T) {
		in, out := writeInput(t, pdftest.Document(1, "").Bytes("/Encrypt << /Filter /Standard >>"))
		err := New(nil).Write(context.Background(), in, out, false, snap)
		if msg := pdferr.Message(err); msg != "Document is encrypted." {
			t.Errorf("expected encrypted message, got %q", msg)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
	})

	t.Run("output exists", func(t *testing.T) {
		in, out := writeInput(t, plain)
		if err := os.WriteFile(out, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		err := New(nil).Write(context.Background(), in, out, false, snap)
		if msg := pdferr.Message(err); msg != "Already exists: "+out {
			t.Errorf("expected already exists message, got %q", msg)
		}
		if data, _ := os.ReadFile(out); string(data) != "old" {
			t.Error("expected the existing file to be untouched")
		}

		if err := New(nil).Write(context.Background(), in, out, true, snap); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if data, _ := os.ReadFile(out); !bytes.HasPrefix(data, plain) {
			t.Error("expected the overwritten file to hold the new document")
		}
	})

	t.Run("interrupted", func(t *testing.T) {
		in, out := writeInput(t, plain)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := New(nil).Write(ctx, in, out, false, snap)
		if msg := pdferr.Message(err); msg != "Interrupted." {
			t.Errorf("expected Interrupted., got %q", msg)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
	})

	t.Run("bookmark beyond last page", func(t *testing.T) {
		in, out := writeInput(t, plain)
		outline := model.OutlineOf(model.NewNode(model.Bookmark{Title: "far", PageIndex: 5}))
		err := New(nil).Write(context.Background(), in, out, false, model.NewSnapshot(model.NewDefaultLabelTable(), outline, nil))
		if code, _ := pdferr.GetCode(err); code != pdferr.CodeUnsupported {
			t.Errorf("expected %s, got %v", pdferr.CodeUnsupported, err)
		}
		if !strings.Contains(pdferr.Message(err), "far") {
			t.Errorf("expected the title in the message, got %q", pdferr.Message(err))
		}
	})

	t.Run("label beyond last page", func(t *testing.T) {
		in, out := writeInput(t, pdftest.Document(4, "").Bytes(""))
		labels := model.LabelTableOf(
			model.LabelEntry{Index: 0, Range: model.DefaultLabelRange()},
			model.LabelEntry{Index: 9, Range: model.DefaultLabelRange()},
		)
		err := New(nil).Write(context.Background(), in, out, false, model.NewSnapshot(labels, nil, nil))
		if code, _ := pdferr.GetCode(err); code != pdferr.CodeUnsupported {
			t.Errorf("expected %s, got %v", pdferr.CodeUnsupported, err)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}

		// the last page itself is fine
		labels = model.LabelTableOf(
			model.LabelEntry{Index: 0, Range: model.DefaultLabelRange()},
			model.LabelEntry{Index: 3, Range: model.DefaultLabelRange()},
		)
		if err := New(nil).Write(context.Background(), in, out, false, model.NewSnapshot(labels, nil, nil)); err != nil {
			t.Errorf("expected a label on the last page to be accepted, got %v", err)
		}
	})

	t.Run("overwrite in place", func(t *testing.T) {
		in, _ := writeInput(t, pdftest.Document(4, "").Bytes(""))
		if err := New(nil).Write(context.Background(), in, in, true, model.NewSnapshot(sampleLabels(), nil, nil)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		res := loader.New(nil).Load(in)
		if !res.Snapshot.Labels.Equal(sampleLabels()) {
			t.Errorf("expected labels %s, got %s", sampleLabels(), res.Snapshot.Labels)
		}
	})
}
