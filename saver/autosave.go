package saver

import (
	"github.com/tsawler/pagenum/event"
	"github.com/tsawler/pagenum/loader"
	"github.com/tsawler/pagenum/model"
)

// AutoSaver saves whenever the document or the save settings change while
// it is enabled. A change of input path disables it.
type AutoSaver struct {
	saver   *Saver
	doc     *model.Document
	enabled bool
	bus     *event.Bus
	subs    []*event.Subscription
}

// NewAutoSaver creates a disabled auto-saver. inputBus is the bus that
// carries input path changes; it may be nil.
func NewAutoSaver(s *Saver, doc *model.Document, inputBus *event.Bus) *AutoSaver {
	a := &AutoSaver{saver: s, doc: doc, bus: event.NewBus()}
	a.subs = append(a.subs,
		doc.Bus().Subscribe(func(event.Event) { a.maybeSave() }),
		s.Bus().Subscribe(func(ev event.Event) {
			switch ev.(type) {
			case OutputPathChanged, OverwriteChanged:
				a.maybeSave()
			}
		}),
	)
	if inputBus != nil {
		a.subs = append(a.subs, inputBus.Subscribe(func(ev event.Event) {
			if _, ok := ev.(loader.InputPathChanged); ok {
				a.SetEnabled(false)
			}
		}))
	}
	return a
}

// Bus carries AutoSaveChanged.
func (a *AutoSaver) Bus() *event.Bus { return a.bus }

// Enabled reports whether changes trigger saves.
func (a *AutoSaver) Enabled() bool { return a.enabled }

// SetEnabled switches auto-save on or off. Enabling saves immediately and
// panics if the document has no label ranges.
func (a *AutoSaver) SetEnabled(enabled bool) {
	if enabled && a.doc.IsEmpty() {
		panic("saver: cannot enable auto-save on a document without label ranges")
	}
	if enabled == a.enabled {
		return
	}
	a.enabled = enabled
	a.bus.Post(AutoSaveChanged{Enabled: enabled})
	if enabled {
		a.saver.Save()
	}
}

// Detach stops listening to the buses.
func (a *AutoSaver) Detach() {
	for _, sub := range a.subs {
		sub.Cancel()
	}
	a.subs = nil
}

func (a *AutoSaver) maybeSave() {
	if a.enabled && !a.doc.IsEmpty() {
		a.saver.Save()
	}
}
