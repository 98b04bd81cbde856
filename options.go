package pagenum

import (
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
)

// labelEdit sets (Range != nil) or removes the range at Index
type labelEdit struct {
	Index int
	Range *model.LabelRange
}

// EditOptions holds the changes an Editor applies.
type EditOptions struct {
	output    string
	overwrite bool

	// Label edits, applied in order after the optional reset
	resetLabels bool
	labels      []labelEdit

	// nil keeps the document's outline
	outline *model.Outline

	// nil keeps the page boxes
	cropBox *model.Rect

	logger observability.Logger
}

// defaultOptions returns options that change nothing.
func defaultOptions() EditOptions {
	return EditOptions{
		logger: observability.NopLogger{},
	}
}

// clone creates a deep copy of EditOptions.
func (o EditOptions) clone() EditOptions {
	newOpts := EditOptions{
		output:      o.output,
		overwrite:   o.overwrite,
		resetLabels: o.resetLabels,
		logger:      o.logger,
	}

	if o.labels != nil {
		newOpts.labels = make([]labelEdit, len(o.labels))
		copy(newOpts.labels, o.labels)
	}
	// Outlines handed to the editor are frozen, so sharing is safe
	newOpts.outline = o.outline
	if o.cropBox != nil {
		box := *o.cropBox
		newOpts.cropBox = &box
	}

	return newOpts
}
