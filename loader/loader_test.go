package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tsawler/pagenum/internal/pdftest"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pdferr"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// TestLoadLabels tests reading page label trees of different shapes
func TestLoadLabels(t *testing.T) {
	kids := pdftest.Document(2, "/PageLabels 5 0 R")
	kids.Add("<< /Kids [6 0 R] >>")
	kids.Add("<< /Nums [1 << /S /A >>] >>")

	tests := []struct {
		name     string
		data     []byte
		expected *model.LabelTable
	}{
		{
			name:     "no labels",
			data:     pdftest.Document(3, "").Bytes(""),
			expected: model.NewDefaultLabelTable(),
		},
		{
			name: "flat nums",
			data: pdftest.Document(3, "/PageLabels << /Nums [0 << /S /r >> 2 << /S /D /P (A-) /St 5 >>] >>").Bytes(""),
			expected: model.LabelTableOf(
				model.LabelEntry{Index: 0, Range: model.LabelRange{Start: 1, Style: model.StyleLowerRoman}},
				model.LabelEntry{Index: 2, Range: model.LabelRange{Prefix: "A-", Start: 5, Style: model.StyleDecimal}},
			),
		},
		{
			name: "no style",
			data: pdftest.Document(1, "/PageLabels << /Nums [0 << /P (Cover) >>] >>").Bytes(""),
			expected: model.LabelTableOf(
				model.LabelEntry{Index: 0, Range: model.LabelRange{Prefix: "Cover", Start: 1, Style: model.StyleNone}},
			),
		},
		{
			name: "kids without index 0",
			data: kids.Bytes(""),
			expected: model.LabelTableOf(
				model.LabelEntry{Index: 0, Range: model.DefaultLabelRange()},
				model.LabelEntry{Index: 1, Range: model.LabelRange{Start: 1, Style: model.StyleUpperLetters}},
			),
		},
		{
			name: "unicode prefix",
			data: pdftest.Document(1, "/PageLabels << /Nums [0 << /S /D /P <FEFF00C9> >>] >>").Bytes(""),
			expected: model.LabelTableOf(
				model.LabelEntry{Index: 0, Range: model.LabelRange{Prefix: "É", Start: 1, Style: model.StyleDecimal}},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(nil).Load(writeFile(t, "in.pdf", tt.data))
			if !res.Succeeded {
				t.Fatalf("expected success, got %q", res.ErrorMessage)
			}
			if !res.Snapshot.Labels.Equal(tt.expected) {
				t.Errorf("expected labels %s, got %s", tt.expected, res.Snapshot.Labels)
			}
		})
	}
}

// TestLoadFailures tests the messages reported for unreadable inputs
func TestLoadFailures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	encrypted := writeFile(t, "enc.pdf", pdftest.Document(1, "").Bytes("/Encrypt << /Filter /Standard >>"))
	garbage := writeFile(t, "garbage.pdf", []byte("this is not a PDF"))
	badStyle := writeFile(t, "style.pdf", pdftest.Document(1, "/PageLabels << /Nums [0 << /S /X >>] >>").Bytes(""))

	tests := []struct {
		name    string
		path    string
		code    pdferr.Code
		message string
	}{
		{"missing", missing, pdferr.CodeNotFound, "File not found"},
		{"encrypted", encrypted, pdferr.CodeEncrypted, "Document is encrypted."},
		{"garbage", garbage, pdferr.CodeMalformed, ""},
		{"unknown label style", badStyle, pdferr.CodeMalformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(nil).Load(tt.path)
			if res.Succeeded {
				t.Fatal("expected failure")
			}
			if got, _ := pdferr.GetCode(res.Err); got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
			if tt.message != "" && res.ErrorMessage != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, res.ErrorMessage)
			}
			if res.ErrorMessage == "" {
				t.Error("expected a message")
			}
			if res.Snapshot == nil || !res.Snapshot.Labels.IsEmpty() {
				t.Error("expected an empty label table after failure")
			}
			if res.Snapshot.Outline != nil {
				t.Error("expected no outline after failure")
			}
		})
	}
}

// outlineFixture has three pages (objects 3-5) and an outline using explicit,
// GoTo, named and string-named destinations.
func outlineFixture() []byte {
	b := pdftest.Document(3, "/Outlines 6 0 R /Dests 11 0 R /Names 12 0 R")
	b.Add("<< /Type /Outlines /First 7 0 R /Last 10 0 R /Count 4 >>")
	b.Add("<< /Title (Intro) /Parent 6 0 R /Next 9 0 R /First 8 0 R /Last 8 0 R /Count 1 /Dest [3 0 R /Fit] >>")
	b.Add("<< /Title (Sub) /Parent 7 0 R /A << /S /GoTo /D [4 0 R /XYZ 0 0 0] >> >>")
	b.Add("<< /Title <FEFF00C9007400E9> /Parent 6 0 R /Prev 7 0 R /Next 10 0 R /Dest /chap2 >>")
	b.Add("<< /Title (Named) /Parent 6 0 R /Prev 9 0 R /Dest (target) >>")
	b.Add("<< /chap2 [5 0 R /Fit] >>")
	b.Add("<< /Dests 13 0 R >>")
	b.Add("<< /Kids [14 0 R] >>")
	b.Add("<< /Limits [(a) (z)] /Names [(target) << /D [4 0 R /Fit] >>] >>")
	return b.Bytes("")
}

// TestLoadOutline tests that every supported destination form resolves
func TestLoadOutline(t *testing.T) {
	res := New(nil).Load(writeFile(t, "outline.pdf", outlineFixture()))
	if !res.Succeeded || !res.OutlineSucceeded {
		t.Fatalf("expected success, got %q / %q", res.ErrorMessage, res.OutlineErrorMessage)
	}
	if res.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", res.PageCount)
	}

	expected := model.OutlineOf(
		model.NewNode(model.Bookmark{Title: "Intro", PageIndex: 0},
			model.NewNode(model.Bookmark{Title: "Sub", PageIndex: 1})),
		model.NewNode(model.Bookmark{Title: "Été", PageIndex: 2}),
		model.NewNode(model.Bookmark{Title: "Named", PageIndex: 1}),
	)
	if !res.Snapshot.Outline.Equal(expected) {
		t.Errorf("expected outline %s, got %s", expected, res.Snapshot.Outline)
	}
}

// TestLoadOutlineEmpty tests that a document without /Outlines has an empty outline
func TestLoadOutlineEmpty(t *testing.T) {
	res := New(nil).Load(writeFile(t, "plain.pdf", pdftest.Document(2, "").Bytes("")))
	if !res.OutlineSucceeded {
		t.Fatalf("expected outline success, got %q", res.OutlineErrorMessage)
	}
	if res.Snapshot.Outline == nil || !res.Snapshot.Outline.IsEmpty() {
		t.Errorf("expected an empty outline, got %v", res.Snapshot.Outline)
	}
}

// TestLoadOutlineTooComplex tests outlines whose items do not lead to a page
func TestLoadOutlineTooComplex(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{"no destination", "<< /Title (x) /Parent 4 0 R >>"},
		{"uri action", "<< /Title (x) /Parent 4 0 R /A << /S /URI /URI (http://example.com) >> >>"},
		{"not a page", "<< /Title (x) /Parent 4 0 R /Dest [2 0 R /Fit] >>"},
		{"unknown name", "<< /Title (x) /Parent 4 0 R /Dest /nowhere >>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pdftest.Document(1, "/Outlines 4 0 R /PageLabels << /Nums [0 << /S /R >>] >>")
			b.Add("<< /Type /Outlines /First 5 0 R /Last 5 0 R >>")
			b.Add(tt.item)

			res := New(nil).Load(writeFile(t, "complex.pdf", b.Bytes("")))
			if !res.Succeeded {
				t.Fatalf("expected the read to succeed, got %q", res.ErrorMessage)
			}
			if res.OutlineSucceeded {
				t.Fatal("expected the outline to fail")
			}
			if res.OutlineErrorMessage != pdferr.MsgComplexOutline {
				t.Errorf("expected %q, got %q", pdferr.MsgComplexOutline, res.OutlineErrorMessage)
			}
			if res.Snapshot.Outline != nil {
				t.Error("expected a nil outline")
			}
			if r, ok := res.Snapshot.Labels.Get(0); !ok || r.Style != model.StyleUpperRoman {
				t.Errorf("expected labels to survive, got %s", res.Snapshot.Labels)
			}
		})
	}
}

// TestLoadOutlineCycle tests that a looping /Next chain is rejected
func TestLoadOutlineCycle(t *testing.T) {
	b := pdftest.Document(1, "/Outlines 4 0 R")
	b.Add("<< /Type /Outlines /First 5 0 R >>")
	b.Add("<< /Title (a) /Dest [3 0 R /Fit] /Next 5 0 R >>")

	res := New(nil).Load(writeFile(t, "cycle.pdf", b.Bytes("")))
	if res.OutlineSucceeded {
		t.Fatal("expected the outline to fail")
	}
	if !strings.Contains(res.OutlineErrorMessage, "MALFORMED_PDF") {
		t.Errorf("expected a malformed message, got %q", res.OutlineErrorMessage)
	}
}

// TestLoadCache tests that results are reused until the file changes
func TestLoadCache(t *testing.T) {
	path := writeFile(t, "cached.pdf", pdftest.Document(1, "").Bytes(""))
	l := New(nil)

	first := l.Load(path)
	second := l.Load(path)
	if first.Snapshot != second.Snapshot {
		t.Error("expected the second load to come from the cache")
	}
	if first == second {
		t.Error("expected distinct result values")
	}

	changed := pdftest.Document(2, "/PageLabels << /Nums [0 << /S /a >>] >>").Bytes("")
	if err := os.WriteFile(path, changed, 0o644); err != nil {
		t.Fatal(err)
	}
	third := l.Load(path)
	if third.Snapshot == first.Snapshot {
		t.Error("expected a fresh read after the file changed")
	}
	if third.PageCount != 2 {
		t.Errorf("expected 2 pages, got %d", third.PageCount)
	}

	l.Forget(path)
	if fourth := l.Load(path); fourth.Snapshot == third.Snapshot {
		t.Error("expected Forget to drop the cached result")
	}
}

// TestLoadCacheDisabled tests a negative TTL
func TestLoadCacheDisabled(t *testing.T) {
	path := writeFile(t, "nocache.pdf", pdftest.Document(1, "").Bytes(""))
	l := New(&Options{CacheTTL: -time.Second})
	if l.Load(path).Snapshot == l.Load(path).Snapshot {
		t.Error("expected every load to read the file")
	}
}

// TestLoadXRefStream tests reading a document whose objects are compressed
func TestLoadXRefStream(t *testing.T) {
	b := pdftest.Document(2, "/PageLabels 5 0 R")
	b.Add("<< /Nums [0 << /S /D /St 3 >>] >>")
	b.Compress(5)

	res := New(nil).Load(writeFile(t, "xstm.pdf", b.XRefStreamBytes("")))
	if !res.Succeeded {
		t.Fatalf("expected success, got %q", res.ErrorMessage)
	}
	if r, _ := res.Snapshot.Labels.Get(0); r.Start != 3 {
		t.Errorf("expected start 3, got %d", r.Start)
	}
}
