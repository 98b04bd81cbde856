package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tsawler/pagenum/event"
)

// Bookmark is the data carried by an outline node.
type Bookmark struct {
	Title     string
	PageIndex int // zero-based physical page
}

// OutlineChanged is posted after a child is removed from Parent.
type OutlineChanged struct {
	Parent          *Node
	RemovedPosition int
}

// OutlineChangedAll is posted after any other outline change.
type OutlineChangedAll struct{}

// Node is an outline entry. A node owns its children; the parent link is a
// lookup relation only. Nodes are identified by an ID assigned at creation,
// while Equal compares content and order.
type Node struct {
	id       uuid.UUID
	bookmark *Bookmark
	parent   *Node
	order    int // position among the parent's children, -1 when detached
	children []*Node
	owner    *Outline // set on an outline's root only
}

// NewNode creates a detached node carrying b, with the given children.
func NewNode(b Bookmark, children ...*Node) *Node {
	if b.PageIndex < 0 {
		panic(fmt.Sprintf("model: negative bookmark page %d", b.PageIndex))
	}
	n := &Node{id: uuid.New(), bookmark: &b, order: -1}
	for _, c := range children {
		n.attach(len(n.children), c)
	}
	return n
}

// NewEmptyNode creates a detached node with no bookmark. It may not receive
// children until a bookmark is set.
func NewEmptyNode() *Node {
	return &Node{id: uuid.New(), order: -1}
}

// ID returns the node's stable identifier.
func (n *Node) ID() uuid.UUID { return n.id }

// Bookmark returns the node's data; ok is false for the root and empty nodes.
func (n *Node) Bookmark() (b Bookmark, ok bool) {
	if n.bookmark == nil {
		return Bookmark{}, false
	}
	return *n.bookmark, true
}

// IsRoot reports whether n is the virtual root of an Outline.
func (n *Node) IsRoot() bool { return n.owner != nil }

// Parent returns the parent node, nil for roots and detached nodes.
func (n *Node) Parent() *Node { return n.parent }

// LocalOrder returns the position among the parent's children.
func (n *Node) LocalOrder() (int, bool) {
	if n.parent == nil {
		return 0, false
	}
	return n.order, true
}

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the child at pos.
func (n *Node) Child(pos int) *Node { return n.children[pos] }

// Outline returns the outline n belongs to, or nil when detached.
func (n *Node) Outline() *Outline {
	return n.top().owner
}

// AddChild inserts child at pos among n's children.
func (n *Node) AddChild(pos int, child *Node) {
	n.mutable()
	n.attach(pos, child)
	n.post(OutlineChangedAll{})
}

// AddAsLastChild appends child.
func (n *Node) AddAsLastChild(child *Node) {
	n.AddChild(len(n.children), child)
}

// Remove detaches and returns the child at pos.
func (n *Node) Remove(pos int) *Node {
	n.mutable()
	if pos < 0 || pos >= len(n.children) {
		panic(fmt.Sprintf("model: no child at position %d (have %d)", pos, len(n.children)))
	}
	child := n.detach(pos)
	n.post(OutlineChanged{Parent: n, RemovedPosition: pos})
	return child
}

// SetBookmark replaces the node's data. Passing nil is only allowed for a
// node without children. It returns false, without an event, when b equals
// the current bookmark.
func (n *Node) SetBookmark(b *Bookmark) bool {
	n.mutable()
	if n.owner != nil {
		panic("model: the outline root carries no bookmark")
	}
	if b == nil && len(n.children) > 0 {
		panic("model: a node with children needs a bookmark")
	}
	if b != nil && b.PageIndex < 0 {
		panic(fmt.Sprintf("model: negative bookmark page %d", b.PageIndex))
	}
	if bookmarkPtrEqual(n.bookmark, b) {
		return false
	}
	if b == nil {
		n.bookmark = nil
	} else {
		copied := *b
		n.bookmark = &copied
	}
	n.post(OutlineChangedAll{})
	return true
}

// ChangeParent moves n to the end of newParent's children. It returns false
// when n already is newParent's last child.
func (n *Node) ChangeParent(newParent *Node) bool {
	n.mutable()
	n.checkMovable(newParent)
	if newParent == n.parent && newParent.children[len(newParent.children)-1] == n {
		return false
	}
	if n.parent != nil {
		n.parent.Remove(n.order)
	}
	newParent.AddAsLastChild(n)
	return true
}

// SetAsNextSiblingOf moves n right after anchor, possibly under another
// parent. It returns false when n already follows anchor.
func (n *Node) SetAsNextSiblingOf(anchor *Node) bool {
	n.mutable()
	if anchor == n {
		panic("model: a node cannot follow itself")
	}
	newParent := anchor.parent
	if newParent == nil {
		panic("model: anchor has no parent")
	}
	n.checkMovable(newParent)
	if newParent == n.parent && anchor.order+1 < len(newParent.children) &&
		newParent.children[anchor.order+1] == n {
		return false
	}
	if n.parent != nil {
		n.parent.Remove(n.order)
	}
	// The removal may have shifted anchor.
	newParent.AddChild(anchor.order+1, n)
	return true
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Equal compares bookmarks and ordered children recursively. A root and an
// empty node without children are equal.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == nil && other == nil
	}
	if !bookmarkPtrEqual(n.bookmark, other.bookmark) {
		return false
	}
	if len(n.children) != len(other.children) {
		return false
	}
	for i, c := range n.children {
		if !c.Equal(other.children[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies the subtree rooted at n into detached nodes with fresh
// IDs. An outline root has no detached form and panics; use Outline.Clone.
func (n *Node) Clone() *Node {
	if n.owner != nil {
		panic("model: the outline root cannot be cloned as a node, use Outline.Clone")
	}
	c := &Node{id: uuid.New(), order: -1}
	if n.bookmark != nil {
		b := *n.bookmark
		c.bookmark = &b
	}
	for _, child := range n.children {
		c.attach(len(c.children), child.Clone())
	}
	return c
}

// String formats the subtree for debugging.
func (n *Node) String() string {
	s := "<root>"
	if n.bookmark != nil {
		s = fmt.Sprintf("%q@%d", n.bookmark.Title, n.bookmark.PageIndex)
	} else if n.owner == nil {
		s = "<empty>"
	}
	if len(n.children) == 0 {
		return s
	}
	s += "["
	for i, c := range n.children {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + "]"
}

func (n *Node) attach(pos int, child *Node) {
	if child == nil {
		panic("model: nil outline node")
	}
	if child.parent != nil || child.owner != nil {
		panic("model: node already belongs to a tree")
	}
	if pos < 0 || pos > len(n.children) {
		panic(fmt.Sprintf("model: insert position %d out of range [0, %d]", pos, len(n.children)))
	}
	if child.IsAncestorOf(n) {
		panic("model: a node cannot become its own descendant")
	}
	if n.owner == nil && n.bookmark == nil {
		panic("model: a node without bookmark cannot have children")
	}
	n.children = append(n.children, nil)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = child
	for i := pos + 1; i < len(n.children); i++ {
		n.children[i].order = i
	}
	child.parent = n
	child.order = pos
}

func (n *Node) detach(pos int) *Node {
	child := n.children[pos]
	n.children = append(n.children[:pos], n.children[pos+1:]...)
	for i := pos; i < len(n.children); i++ {
		n.children[i].order = i
	}
	child.parent = nil
	child.order = -1
	return child
}

func (n *Node) checkMovable(newParent *Node) {
	if newParent == nil {
		panic("model: nil parent")
	}
	if n.owner != nil {
		panic("model: the outline root cannot be moved")
	}
	if n.IsAncestorOf(newParent) {
		panic("model: a node cannot become its own descendant")
	}
}

func (n *Node) top() *Node {
	t := n
	for t.parent != nil {
		t = t.parent
	}
	return t
}

func (n *Node) mutable() {
	if o := n.top().owner; o != nil && o.frozen {
		panic("model: outline is frozen")
	}
}

func (n *Node) post(ev event.Event) {
	if o := n.top().owner; o != nil {
		o.bus.Post(ev)
	}
}

func bookmarkPtrEqual(a, b *Bookmark) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Outline is a bookmark tree under a virtual root without data.
type Outline struct {
	root   *Node
	bus    *event.Bus
	frozen bool
}

// NewOutline creates an empty outline.
func NewOutline() *Outline {
	o := &Outline{bus: event.NewBus()}
	o.root = &Node{id: uuid.New(), order: -1, owner: o}
	return o
}

// OutlineOf builds an outline whose top-level entries are nodes, without
// posting events.
func OutlineOf(nodes ...*Node) *Outline {
	o := NewOutline()
	for _, n := range nodes {
		o.root.attach(len(o.root.children), n)
	}
	return o
}

// Root returns the virtual root.
func (o *Outline) Root() *Node { return o.root }

// Bus returns the outline's event bus.
func (o *Outline) Bus() *event.Bus { return o.bus }

// IsEmpty reports whether the outline has no entries.
func (o *Outline) IsEmpty() bool { return len(o.root.children) == 0 }

// Len returns the number of nodes, the root excluded.
func (o *Outline) Len() int {
	count := -1
	o.Walk(func(*Node, int) bool { count++; return true })
	return count
}

// Walk visits nodes depth-first in document order, starting with the root
// at depth 0. Returning false from fn skips the node's children.
func (o *Outline) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(o.root, 0)
}

// Find returns the node with the given ID, or nil.
func (o *Outline) Find(id uuid.UUID) *Node {
	var found *Node
	o.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.id == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// RemoveByID removes the node with the given ID from its parent. It returns
// false when no such node exists or id is the root's.
func (o *Outline) RemoveByID(id uuid.UUID) bool {
	n := o.Find(id)
	if n == nil || n == o.root {
		return false
	}
	n.parent.Remove(n.order)
	return true
}

// Clear removes every entry with a single OutlineChangedAll.
func (o *Outline) Clear() {
	o.root.mutable()
	if len(o.root.children) == 0 {
		return
	}
	for len(o.root.children) > 0 {
		o.root.detach(len(o.root.children) - 1)
	}
	o.bus.Post(OutlineChangedAll{})
}

// ReplaceAll replaces the entries with copies of src's, posting one
// OutlineChangedAll.
func (o *Outline) ReplaceAll(src *Outline) {
	o.root.mutable()
	for len(o.root.children) > 0 {
		o.root.detach(len(o.root.children) - 1)
	}
	for _, c := range src.root.children {
		o.root.attach(len(o.root.children), c.Clone())
	}
	o.bus.Post(OutlineChangedAll{})
}

// Equal compares the two trees structurally.
func (o *Outline) Equal(other *Outline) bool {
	if o == nil || other == nil {
		return o == nil && other == nil
	}
	return o.root.Equal(other.root)
}

// Clone returns an independent, mutable copy with fresh IDs and its own bus.
func (o *Outline) Clone() *Outline {
	c := NewOutline()
	for _, child := range o.root.children {
		c.root.attach(len(c.root.children), child.Clone())
	}
	return c
}

// Freeze makes every later mutation of the tree panic.
func (o *Outline) Freeze() { o.frozen = true }

// Frozen reports whether the outline is read-only.
func (o *Outline) Frozen() bool { return o.frozen }

func (o *Outline) String() string { return o.root.String() }
