package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/pagenum/event"
)

// Style is a page-label numbering style.
type Style int

const (
	StyleNone Style = iota
	StyleDecimal
	StyleLowerLetters
	StyleUpperLetters
	StyleLowerRoman
	StyleUpperRoman
)

var styleNames = map[Style]string{
	StyleNone:         "none",
	StyleDecimal:      "decimal",
	StyleLowerLetters: "lower-letters",
	StyleUpperLetters: "upper-letters",
	StyleLowerRoman:   "lower-roman",
	StyleUpperRoman:   "upper-roman",
}

// String returns the style's short name
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// PDFName returns the /S name used in a page label dictionary.
// StyleNone has no name and returns "".
func (s Style) PDFName() string {
	switch s {
	case StyleDecimal:
		return "D"
	case StyleUpperRoman:
		return "R"
	case StyleLowerRoman:
		return "r"
	case StyleUpperLetters:
		return "A"
	case StyleLowerLetters:
		return "a"
	default:
		return ""
	}
}

// StyleFromPDFName maps a /S value back to a Style. An empty name is
// StyleNone.
func StyleFromPDFName(name string) (Style, error) {
	switch name {
	case "":
		return StyleNone, nil
	case "D":
		return StyleDecimal, nil
	case "R":
		return StyleUpperRoman, nil
	case "r":
		return StyleLowerRoman, nil
	case "A":
		return StyleUpperLetters, nil
	case "a":
		return StyleLowerLetters, nil
	}
	return StyleNone, fmt.Errorf("unknown page label style %q", name)
}

// ParseStyle accepts a short name ("decimal", "upper-roman", ...) or a PDF
// style letter (D, R, r, A, a).
func ParseStyle(s string) (Style, error) {
	for style, name := range styleNames {
		if strings.EqualFold(s, name) {
			return style, nil
		}
	}
	return StyleFromPDFName(s)
}

// LabelRange describes how the pages from its start index onward are labelled.
type LabelRange struct {
	Prefix string // Empty means no prefix
	Start  int    // First number of the range, at least 1
	Style  Style
}

// DefaultLabelRange returns a decimal range starting at 1 with no prefix.
func DefaultLabelRange() LabelRange {
	return LabelRange{Start: 1, Style: StyleDecimal}
}

// TableOp identifies the kind of label table mutation.
type TableOp int

const (
	OpAdd TableOp = iota
	OpRemove
	OpMove
	OpSetPrefix
	OpSetStart
	OpSetStyle
	OpReplace
)

func (op TableOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpSetPrefix:
		return "set-prefix"
	case OpSetStart:
		return "set-start"
	case OpSetStyle:
		return "set-style"
	case OpReplace:
		return "replace"
	}
	return fmt.Sprintf("TableOp(%d)", int(op))
}

// TableChanged is posted after every label table mutation. Index is the
// affected page index, or -1 for OpReplace. From is the old index of an
// OpMove.
type TableChanged struct {
	Op    TableOp
	Index int
	From  int
}

// LabelEntry pairs a page index with its range.
type LabelEntry struct {
	Index int
	Range LabelRange
}

// LabelTable is the sorted mapping from page index to label range.
type LabelTable struct {
	keys   []int // sorted, unique
	ranges map[int]LabelRange
	bus    *event.Bus
	frozen bool
}

// NewLabelTable creates an empty table.
func NewLabelTable() *LabelTable {
	return &LabelTable{
		ranges: make(map[int]LabelRange),
		bus:    event.NewBus(),
	}
}

// NewDefaultLabelTable returns the table used for documents without labels:
// a single decimal range at index 0.
func NewDefaultLabelTable() *LabelTable {
	t := NewLabelTable()
	t.insert(0, DefaultLabelRange())
	return t
}

// LabelTableOf builds a table from entries without posting events.
// It panics on duplicate or invalid entries.
func LabelTableOf(entries ...LabelEntry) *LabelTable {
	t := NewLabelTable()
	for _, e := range entries {
		t.checkNew(e.Index, e.Range)
		t.insert(e.Index, e.Range)
	}
	return t
}

// Bus returns the table's event bus.
func (t *LabelTable) Bus() *event.Bus { return t.bus }

// Len returns the number of ranges.
func (t *LabelTable) Len() int { return len(t.keys) }

// IsEmpty reports whether the table has no ranges.
func (t *LabelTable) IsEmpty() bool { return len(t.keys) == 0 }

// Keys returns the page indices in increasing order.
func (t *LabelTable) Keys() []int {
	return append([]int(nil), t.keys...)
}

// Get returns the range starting at index.
func (t *LabelTable) Get(index int) (LabelRange, bool) {
	r, ok := t.ranges[index]
	return r, ok
}

// Has reports whether a range starts at index.
func (t *LabelTable) Has(index int) bool {
	_, ok := t.ranges[index]
	return ok
}

// LastKey returns the greatest index.
func (t *LabelTable) LastKey() (int, bool) {
	if len(t.keys) == 0 {
		return 0, false
	}
	return t.keys[len(t.keys)-1], true
}

// RangeFor returns the range that covers page, with the index it starts at.
func (t *LabelTable) RangeFor(page int) (int, LabelRange, bool) {
	i := sort.SearchInts(t.keys, page+1) - 1
	if i < 0 {
		return 0, LabelRange{}, false
	}
	key := t.keys[i]
	return key, t.ranges[key], true
}

// Entries returns all ranges in index order.
func (t *LabelTable) Entries() []LabelEntry {
	out := make([]LabelEntry, len(t.keys))
	for i, k := range t.keys {
		out[i] = LabelEntry{Index: k, Range: t.ranges[k]}
	}
	return out
}

// Add inserts a default decimal range right after the last index (at 1 for
// an empty table) and returns its index.
func (t *LabelTable) Add() int {
	index := 1
	if last, ok := t.LastKey(); ok {
		index = last + 1
	}
	t.PutNew(index, DefaultLabelRange())
	return index
}

// PutNew inserts r at index. It panics if index is already present.
func (t *LabelTable) PutNew(index int, r LabelRange) {
	t.mutable()
	t.checkNew(index, r)
	t.insert(index, r)
	t.bus.Post(TableChanged{Op: OpAdd, Index: index})
}

// RemoveExisting removes and returns the range at index. Index 0 cannot be
// removed; it panics on 0 or on an absent index.
func (t *LabelTable) RemoveExisting(index int) LabelRange {
	t.mutable()
	r := t.checkRemovable(index)
	t.delete(index)
	t.bus.Post(TableChanged{Op: OpRemove, Index: index})
	return r
}

// Move relocates the range at oldIndex to newIndex with a single OpMove
// event. Moving onto itself does nothing.
func (t *LabelTable) Move(oldIndex, newIndex int) {
	if oldIndex == newIndex {
		return
	}
	t.mutable()
	r := t.checkRemovable(oldIndex)
	t.checkNew(newIndex, r)
	t.delete(oldIndex)
	t.insert(newIndex, r)
	t.bus.Post(TableChanged{Op: OpMove, Index: newIndex, From: oldIndex})
}

// SetPrefix changes the prefix of the range at index.
func (t *LabelTable) SetPrefix(index int, prefix string) {
	r := t.mustGet(index)
	if r.Prefix == prefix {
		return
	}
	t.mutable()
	r.Prefix = prefix
	t.ranges[index] = r
	t.bus.Post(TableChanged{Op: OpSetPrefix, Index: index})
}

// SetStart changes the first number of the range at index.
func (t *LabelTable) SetStart(index int, start int) {
	r := t.mustGet(index)
	if start < 1 {
		panic(fmt.Sprintf("model: label start must be at least 1, got %d", start))
	}
	if r.Start == start {
		return
	}
	t.mutable()
	r.Start = start
	t.ranges[index] = r
	t.bus.Post(TableChanged{Op: OpSetStart, Index: index})
}

// SetStyle changes the numbering style of the range at index.
func (t *LabelTable) SetStyle(index int, style Style) {
	r := t.mustGet(index)
	if r.Style == style {
		return
	}
	t.mutable()
	r.Style = style
	t.ranges[index] = r
	t.bus.Post(TableChanged{Op: OpSetStyle, Index: index})
}

// Clear removes every range, index 0 included.
func (t *LabelTable) Clear() {
	t.mutable()
	t.keys = nil
	t.ranges = make(map[int]LabelRange)
	t.bus.Post(TableChanged{Op: OpReplace, Index: -1})
}

// ReplaceAll makes t a copy of src's ranges with a single OpReplace event.
func (t *LabelTable) ReplaceAll(src *LabelTable) {
	t.mutable()
	t.keys = append([]int(nil), src.keys...)
	t.ranges = make(map[int]LabelRange, len(src.ranges))
	for k, r := range src.ranges {
		t.ranges[k] = r
	}
	t.bus.Post(TableChanged{Op: OpReplace, Index: -1})
}

// Equal compares indices and ranges.
func (t *LabelTable) Equal(other *LabelTable) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	if len(t.keys) != len(other.keys) {
		return false
	}
	for i, k := range t.keys {
		if other.keys[i] != k || other.ranges[k] != t.ranges[k] {
			return false
		}
	}
	return true
}

// Clone returns an independent, mutable copy with its own bus.
func (t *LabelTable) Clone() *LabelTable {
	c := NewLabelTable()
	c.keys = append([]int(nil), t.keys...)
	for k, r := range t.ranges {
		c.ranges[k] = r
	}
	return c
}

// Freeze makes every later mutation panic.
func (t *LabelTable) Freeze() { t.frozen = true }

// Frozen reports whether the table is read-only.
func (t *LabelTable) Frozen() bool { return t.frozen }

// String formats the table as "0:decimal/1 4:'A-'upper-roman/1".
func (t *LabelTable) String() string {
	parts := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		r := t.ranges[k]
		if r.Prefix != "" {
			parts = append(parts, fmt.Sprintf("%d:%q%s/%d", k, r.Prefix, r.Style, r.Start))
		} else {
			parts = append(parts, fmt.Sprintf("%d:%s/%d", k, r.Style, r.Start))
		}
	}
	return strings.Join(parts, " ")
}

func (t *LabelTable) mutable() {
	if t.frozen {
		panic("model: label table is frozen")
	}
}

func (t *LabelTable) mustGet(index int) LabelRange {
	r, ok := t.ranges[index]
	if !ok {
		panic(fmt.Sprintf("model: no label range at index %d", index))
	}
	return r
}

func (t *LabelTable) checkNew(index int, r LabelRange) {
	if index < 0 {
		panic(fmt.Sprintf("model: negative page index %d", index))
	}
	if r.Start < 1 {
		panic(fmt.Sprintf("model: label start must be at least 1, got %d", r.Start))
	}
	if _, exists := t.ranges[index]; exists {
		panic(fmt.Sprintf("model: label range already present at index %d", index))
	}
}

func (t *LabelTable) checkRemovable(index int) LabelRange {
	if index == 0 {
		panic("model: the label range at index 0 cannot be removed")
	}
	return t.mustGet(index)
}

func (t *LabelTable) insert(index int, r LabelRange) {
	i := sort.SearchInts(t.keys, index)
	t.keys = append(t.keys, 0)
	copy(t.keys[i+1:], t.keys[i:])
	t.keys[i] = index
	t.ranges[index] = r
}

func (t *LabelTable) delete(index int) {
	i := sort.SearchInts(t.keys, index)
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	delete(t.ranges, index)
}
