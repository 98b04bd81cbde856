// Package status derives whether the live document is saved and whether it
// changed since it was read.
package status

import (
	"github.com/tsawler/pagenum/event"
	"github.com/tsawler/pagenum/loader"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/saver"
)

// SavedStatusChanged is posted when IsSaved flips.
type SavedStatusChanged struct {
	Saved bool
}

// ChangedStatusChanged is posted when HasChangedSinceLastRead flips.
type ChangedStatusChanged struct {
	Changed bool
}

// Tracker recomputes both statuses as events arrive. It must be used from
// the goroutine that owns the document.
type Tracker struct {
	doc   *model.Document
	input *loader.Input
	saver *saver.Saver
	bus   *event.Bus
	subs  []*event.Subscription

	saved   bool
	changed bool
}

// NewTracker starts tracking doc, which is read through input and saved by s.
func NewTracker(doc *model.Document, input *loader.Input, s *saver.Saver) *Tracker {
	t := &Tracker{doc: doc, input: input, saver: s, bus: event.NewBus()}
	t.saved = t.computeSaved()
	t.changed = t.computeChanged()

	t.subs = append(t.subs,
		doc.Bus().Subscribe(func(event.Event) {
			t.updateSaved()
			t.updateChanged()
		}),
		s.Bus().Subscribe(func(ev event.Event) {
			switch ev.(type) {
			case saver.Finished, saver.OutputPathChanged:
				t.updateSaved()
			}
		}),
		input.Bus().Subscribe(func(ev event.Event) {
			switch ev.(type) {
			case loader.InputPathChanged:
				t.updateSaved()
			case loader.ReadEvent:
				t.updateChanged()
			}
		}),
	)
	return t
}

// Bus carries SavedStatusChanged and ChangedStatusChanged.
func (t *Tracker) Bus() *event.Bus { return t.bus }

// IsSaved reports whether the last delivered save succeeded and wrote the
// current state of the current input to the current output path.
func (t *Tracker) IsSaved() bool { return t.saved }

// HasChangedSinceLastRead reports whether labels or outline differ from the
// last read. It is false before any read.
func (t *Tracker) HasChangedSinceLastRead() bool { return t.changed }

// Detach stops listening.
func (t *Tracker) Detach() {
	for _, sub := range t.subs {
		sub.Cancel()
	}
	t.subs = nil
}

func (t *Tracker) computeSaved() bool {
	last := t.saver.LastFinished()
	if last == nil || !last.Succeeded() {
		return false
	}
	job := last.Job
	return job.InputPath == t.input.Path() &&
		job.OutputPath == t.saver.OutputPath() &&
		t.doc.Matches(job.Snapshot)
}

// computeChanged reads the last read from the input rather than from
// ReadEvent, because the input records it before seeding the document.
func (t *Tracker) computeChanged() bool {
	ev := t.input.LastRead()
	if ev == nil {
		return false
	}
	read := ev.Result.Snapshot
	return !t.doc.Labels().Equal(read.Labels) || !t.doc.Outline().Equal(read.Outline)
}

func (t *Tracker) updateSaved() {
	if saved := t.computeSaved(); saved != t.saved {
		t.saved = saved
		t.bus.Post(SavedStatusChanged{Saved: saved})
	}
}

func (t *Tracker) updateChanged() {
	if changed := t.computeChanged(); changed != t.changed {
		t.changed = changed
		t.bus.Post(ChangedStatusChanged{Changed: changed})
	}
}
