// Package model holds the editable state of a document: the page label
// table, the bookmark outline and the crop box override.
//
// # Labels
//
// A [LabelTable] maps zero-based physical page indices to [LabelRange]
// values. A range covers its own index up to the next key. Index 0 is
// always present in a table loaded from a file and cannot be removed:
//
//	t := model.NewDefaultLabelTable()      // {0: decimal/1}
//	i := t.Add()                           // 1
//	t.SetStyle(i, model.StyleLowerRoman)
//	t.Move(i, 4)
//
// # Outline
//
// An [Outline] is a tree of [Node] values under a virtual root that carries
// no [Bookmark]. Each node knows its parent and its position among its
// siblings; both are kept up to date by every mutation. Nodes have an ID
// that survives moves, while [Node.Equal] compares content only.
//
// # Events
//
// Every mutation posts one event on the owning aggregate's bus:
// [TableChanged], [OutlineChanged], [OutlineChangedAll] or
// [CropBoxChanged]. A [Document] re-posts all of them on its own bus, so
// a single subscription observes the whole model. [Document.Seed] instead
// posts one [DocumentSeeded] for the whole replacement.
//
// # Snapshots
//
// [Document.Snapshot] returns a [Snapshot] whose table and outline are
// frozen: any mutator called on them panics. Snapshots are safe to hand to
// another goroutine.
//
// Model values are not safe for concurrent use.
package model
