package model

import "github.com/tsawler/pagenum/event"

// CropBoxChanged is posted when the crop box override changes. Box is nil
// when the override was removed.
type CropBoxChanged struct {
	Box *Rect
}

// CropBoxHolder keeps the optional crop box applied to pages on save.
type CropBoxHolder struct {
	box *Rect
	bus *event.Bus
}

// NewCropBoxHolder creates a holder without a crop box.
func NewCropBoxHolder() *CropBoxHolder {
	return &CropBoxHolder{bus: event.NewBus()}
}

// Bus returns the holder's event bus.
func (h *CropBoxHolder) Bus() *event.Bus { return h.bus }

// Get returns a copy of the crop box, or nil.
func (h *CropBoxHolder) Get() *Rect {
	if h.box == nil {
		return nil
	}
	r := *h.box
	return &r
}

// Set replaces the crop box. Passing nil removes it. No event is posted and
// false is returned when nothing changes.
func (h *CropBoxHolder) Set(box *Rect) bool {
	if rectPtrEqual(h.box, box) {
		return false
	}
	if box == nil {
		h.box = nil
	} else {
		r := *box
		h.box = &r
	}
	h.bus.Post(CropBoxChanged{Box: h.Get()})
	return true
}
