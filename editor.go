package pagenum

import (
	"context"
	"fmt"

	"github.com/tsawler/pagenum/loader"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/outlinemd"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/writer"
)

// Editor provides a fluent interface for editing one PDF file.
// Each configuration method returns a new Editor instance, making it
// safe for concurrent use and allowing method chaining.
type Editor struct {
	// Source
	input string

	// Configuration
	options EditOptions

	// Accumulated error (fail-fast)
	err error
}

// Open returns an Editor for the PDF at path. The file is read by the
// terminal operations Inspect, Snapshot and Save.
func Open(path string) *Editor {
	return &Editor{
		input:   path,
		options: defaultOptions(),
	}
}

// clone creates a copy of the Editor with a deep copy of options.
func (e *Editor) clone() *Editor {
	return &Editor{
		input:   e.input,
		options: e.options.clone(),
		err:     e.err,
	}
}

// Label sets the range starting at page index (zero-based), replacing any
// range already there.
func (e *Editor) Label(index int, r model.LabelRange) *Editor {
	ne := e.clone()
	if ne.err == nil && (index < 0 || r.Start < 1) {
		ne.err = fmt.Errorf("invalid label range at %d: start %d", index, r.Start)
		return ne
	}
	ne.options.labels = append(ne.options.labels, labelEdit{Index: index, Range: &r})
	return ne
}

// RemoveLabel removes the range starting at index. Index 0 cannot be
// removed.
func (e *Editor) RemoveLabel(index int) *Editor {
	ne := e.clone()
	if ne.err == nil && index == 0 {
		ne.err = fmt.Errorf("the label range at index 0 cannot be removed")
		return ne
	}
	ne.options.labels = append(ne.options.labels, labelEdit{Index: index})
	return ne
}

// ResetLabels starts from a single decimal range instead of the document's
// labels. Later Label calls apply on top.
func (e *Editor) ResetLabels() *Editor {
	ne := e.clone()
	ne.options.resetLabels = true
	ne.options.labels = nil
	return ne
}

// Outline replaces the document's outline with a copy of o. An empty
// outline removes all bookmarks.
func (e *Editor) Outline(o *model.Outline) *Editor {
	ne := e.clone()
	if o == nil {
		if ne.err == nil {
			ne.err = fmt.Errorf("nil outline")
		}
		return ne
	}
	c := o.Clone()
	c.Freeze()
	ne.options.outline = c
	return ne
}

// OutlineMarkdown replaces the outline with one parsed by outlinemd.
func (e *Editor) OutlineMarkdown(src []byte) *Editor {
	o, err := outlinemd.Parse(src)
	if err != nil {
		ne := e.clone()
		if ne.err == nil {
			ne.err = err
		}
		return ne
	}
	return e.Outline(o)
}

// CropBox sets the crop box of every page.
func (e *Editor) CropBox(r model.Rect) *Editor {
	ne := e.clone()
	if ne.err == nil && r.IsEmpty() {
		ne.err = fmt.Errorf("empty crop box %s", r)
		return ne
	}
	ne.options.cropBox = &r
	return ne
}

// To sets the output path.
func (e *Editor) To(path string) *Editor {
	ne := e.clone()
	ne.options.output = path
	return ne
}

// Overwrite allows Save to replace an existing output file.
func (e *Editor) Overwrite() *Editor {
	ne := e.clone()
	ne.options.overwrite = true
	return ne
}

// WithLogger sets the logger used while reading and writing.
func (e *Editor) WithLogger(l observability.Logger) *Editor {
	ne := e.clone()
	ne.options.logger = observability.OrNop(l)
	return ne
}

// Inspect reads the input without applying any edit. A failed read is
// returned as an error; an unreadable outline is reported in the result.
func (e *Editor) Inspect() (*loader.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	res := loader.New(&loader.Options{CacheTTL: -1, Logger: e.options.logger}).Load(e.input)
	if !res.Succeeded {
		return res, res.Err
	}
	return res, nil
}

// Snapshot returns the state Save would write.
func (e *Editor) Snapshot() (*model.Snapshot, error) {
	res, err := e.Inspect()
	if err != nil {
		return nil, err
	}

	doc := model.NewDocument()
	doc.Seed(res.Snapshot)
	if err := e.apply(doc, res.PageCount); err != nil {
		return nil, err
	}
	return doc.Snapshot(), nil
}

// Save writes the edited document to the output path.
func (e *Editor) Save(ctx context.Context) error {
	if e.err == nil && e.options.output == "" {
		return fmt.Errorf("no output path specified")
	}
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	w := writer.New(&writer.Options{Logger: e.options.logger})
	return w.Write(ctx, e.input, e.options.output, e.options.overwrite, snap)
}

// apply performs the configured edits on doc
func (e *Editor) apply(doc *model.Document, pageCount int) error {
	labels := doc.Labels()
	if e.options.resetLabels {
		labels.ReplaceAll(model.NewDefaultLabelTable())
	}
	for _, edit := range e.options.labels {
		if pageCount > 0 && edit.Index >= pageCount {
			return pdferr.Newf(pdferr.CodeUnsupported, "label index %d is beyond the last page (%d pages)", edit.Index, pageCount)
		}
		if edit.Range == nil {
			if !labels.Has(edit.Index) {
				return fmt.Errorf("no label range at index %d", edit.Index)
			}
			labels.RemoveExisting(edit.Index)
			continue
		}
		if !labels.Has(edit.Index) {
			labels.PutNew(edit.Index, *edit.Range)
			continue
		}
		labels.SetPrefix(edit.Index, edit.Range.Prefix)
		labels.SetStart(edit.Index, edit.Range.Start)
		labels.SetStyle(edit.Index, edit.Range.Style)
	}
	if !labels.Has(0) {
		labels.PutNew(0, model.DefaultLabelRange())
	}

	if e.options.outline != nil {
		doc.SetOutline(e.options.outline.Clone())
	}
	if e.options.cropBox != nil {
		doc.CropBox().Set(e.options.cropBox)
	}
	return nil
}
