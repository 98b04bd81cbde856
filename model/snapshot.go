package model

// Snapshot is a frozen copy of a document's editable state. A nil Outline
// means the outline is unknown and must be left as is; a nil CropBox leaves
// page boxes unchanged.
type Snapshot struct {
	Labels  *LabelTable
	Outline *Outline
	CropBox *Rect
}

// NewSnapshot freezes copies of the given parts.
func NewSnapshot(labels *LabelTable, outline *Outline, crop *Rect) *Snapshot {
	s := &Snapshot{Labels: labels.Clone()}
	s.Labels.Freeze()
	if outline != nil {
		s.Outline = outline.Clone()
		s.Outline.Freeze()
	}
	if crop != nil {
		r := *crop
		s.CropBox = &r
	}
	return s
}

// Equal compares labels, outline and crop box structurally.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return s.Labels.Equal(other.Labels) &&
		s.Outline.Equal(other.Outline) &&
		rectPtrEqual(s.CropBox, other.CropBox)
}

// PageLimit returns the smallest page count that every label index and
// bookmark page fits in.
func (s *Snapshot) PageLimit() int {
	limit := 0
	if last, ok := s.Labels.LastKey(); ok {
		limit = last + 1
	}
	if s.Outline != nil {
		s.Outline.Walk(func(n *Node, _ int) bool {
			if b, ok := n.Bookmark(); ok && b.PageIndex+1 > limit {
				limit = b.PageIndex + 1
			}
			return true
		})
	}
	return limit
}
