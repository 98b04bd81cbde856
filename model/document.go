package model

import "github.com/tsawler/pagenum/event"

// Document aggregates the label table, the optional outline and the crop
// box. Events from all three are re-posted on the document's bus.
type Document struct {
	labels  *LabelTable
	outline *Outline
	crop    *CropBoxHolder
	bus     *event.Bus
	fwd     *event.Forwarder
}

// NewDocument creates a document with an empty label table, no outline and
// no crop box.
func NewDocument() *Document {
	d := &Document{
		labels: NewLabelTable(),
		crop:   NewCropBoxHolder(),
		bus:    event.NewBus(),
	}
	d.fwd = event.Forward(d.bus)
	d.labels.Bus().Register(d.fwd)
	d.crop.Bus().Register(d.fwd)
	return d
}

// Bus returns the bus carrying every model event of the document.
func (d *Document) Bus() *event.Bus { return d.bus }

// Labels returns the live label table.
func (d *Document) Labels() *LabelTable { return d.labels }

// Outline returns the live outline, or nil when the document has none that
// can be edited.
func (d *Document) Outline() *Outline { return d.outline }

// CropBox returns the crop box holder.
func (d *Document) CropBox() *CropBoxHolder { return d.crop }

// IsEmpty reports whether the label table is empty. An empty document
// cannot be saved.
func (d *Document) IsEmpty() bool { return d.labels.IsEmpty() }

// SetOutline swaps in o (which may be nil) and posts OutlineChangedAll.
func (d *Document) SetOutline(o *Outline) {
	if o == d.outline {
		return
	}
	if d.outline != nil {
		d.outline.Bus().Unregister(d.fwd)
	}
	d.outline = o
	if o != nil {
		o.Bus().Register(d.fwd)
	}
	d.bus.Post(OutlineChangedAll{})
}

// Snapshot returns a frozen copy of the current state.
func (d *Document) Snapshot() *Snapshot {
	return NewSnapshot(d.labels, d.outline, d.crop.Get())
}

// Matches reports whether the live state equals s.
func (d *Document) Matches(s *Snapshot) bool {
	if s == nil {
		return false
	}
	return d.labels.Equal(s.Labels) &&
		d.outline.Equal(s.Outline) &&
		rectPtrEqual(d.crop.Get(), s.CropBox)
}

// DocumentSeeded is posted once after Seed replaced the whole state. The
// per-part events Seed causes are not forwarded to the document bus.
type DocumentSeeded struct{}

// Seed replaces the whole state with mutable copies of s and posts a single
// DocumentSeeded.
func (d *Document) Seed(s *Snapshot) {
	d.labels.Bus().Unregister(d.fwd)
	d.crop.Bus().Unregister(d.fwd)
	if d.outline != nil {
		d.outline.Bus().Unregister(d.fwd)
	}

	d.labels.ReplaceAll(s.Labels)
	d.outline = nil
	if s.Outline != nil {
		d.outline = s.Outline.Clone()
	}
	d.crop.Set(s.CropBox)

	d.labels.Bus().Register(d.fwd)
	d.crop.Bus().Register(d.fwd)
	if d.outline != nil {
		d.outline.Bus().Register(d.fwd)
	}
	d.bus.Post(DocumentSeeded{})
}
