package pages

import (
	"fmt"

	"github.com/tsawler/pagenum/core"
)

// ObjectResolver resolves indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Catalog is the document catalog, the root of the document structure
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a catalog from its dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Dict returns the underlying dictionary
func (c *Catalog) Dict() core.Dict {
	return c.dict
}

// Type returns the /Type name, normally "Catalog"
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Pages returns the root of the page tree
func (c *Catalog) Pages() (core.Dict, error) {
	if !c.dict.Has("Pages") {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	return c.resolveDict("Pages")
}

// PageLabels returns the /PageLabels number tree, or nil when absent
func (c *Catalog) PageLabels() (core.Dict, error) {
	return c.optionalDict("PageLabels")
}

// Outlines returns the outline dictionary, or nil when absent
func (c *Catalog) Outlines() (core.Dict, error) {
	return c.optionalDict("Outlines")
}

// Dests returns the PDF 1.1 named destination dictionary, or nil
func (c *Catalog) Dests() (core.Dict, error) {
	return c.optionalDict("Dests")
}

// NamedDests returns the /Dests name tree of the /Names dictionary, or nil
func (c *Catalog) NamedDests() (core.Dict, error) {
	names, err := c.optionalDict("Names")
	if err != nil || names == nil {
		return nil, err
	}
	if !names.Has("Dests") {
		return nil, nil
	}
	obj, err := c.resolver.Resolve(names.Get("Dests"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Names /Dests: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Names /Dests type: %T", obj)
	}
	return dict, nil
}

func (c *Catalog) optionalDict(key string) (core.Dict, error) {
	if !c.dict.Has(key) {
		return nil, nil
	}
	return c.resolveDict(key)
}

func (c *Catalog) resolveDict(key string) (core.Dict, error) {
	obj, err := c.resolver.Resolve(c.dict.Get(key))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /%s type: %T", key, obj)
	}
	return dict, nil
}

// PageTree flattens the page tree into document order
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
	index    map[core.IndirectRef]int
}

// NewPageTree creates a page tree from its root /Pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the number of leaf pages actually reachable, which can
// differ from a damaged /Count.
func (t *PageTree) Count() (int, error) {
	pages, err := t.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// GetPage returns the page at index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

// Pages returns all pages in document order
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	return t.pages, nil
}

// IndexOf returns the page index of the page object ref
func (t *PageTree) IndexOf(ref core.IndirectRef) (int, bool) {
	if _, err := t.Pages(); err != nil {
		return 0, false
	}
	i, ok := t.index[ref]
	return i, ok
}

func (t *PageTree) loadPages() error {
	t.pages = make([]*Page, 0)
	t.index = make(map[core.IndirectRef]int)
	visited := make(map[core.IndirectRef]bool)
	if err := t.traverse(t.root, core.IndirectRef{}, nil, visited); err != nil {
		t.pages = nil
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// traverse walks node depth first. ancestors holds the /Pages nodes above
// node, nearest first, for inherited attributes.
func (t *PageTree) traverse(node core.Dict, ref core.IndirectRef, ancestors []core.Dict, visited map[core.IndirectRef]bool) error {
	typ, _ := node.GetName("Type")
	// Some writers omit /Type; a node with /Kids is an intermediate node.
	if typ == "" && node.Has("Kids") {
		typ = "Pages"
	}

	switch typ {
	case "Pages":
		kidsObj, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsObj)
		}

		chain := append([]core.Dict{node}, ancestors...)
		for i, kid := range kids {
			kidRef, isRef := kid.(core.IndirectRef)
			if isRef {
				if visited[kidRef] {
					return fmt.Errorf("page tree cycle at %v", kidRef)
				}
				visited[kidRef] = true
			}
			resolved, err := t.resolver.Resolve(kid)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := resolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", resolved)
			}
			if err := t.traverse(kidDict, kidRef, chain, visited); err != nil {
				return err
			}
		}

	case "Page":
		page := NewPage(node, ancestors, t.resolver)
		page.ref = ref
		if ref.Number > 0 {
			t.index[ref] = len(t.pages)
		}
		t.pages = append(t.pages, page)

	default:
		return fmt.Errorf("unexpected page node type: %q", typ)
	}
	return nil
}

// Page is a single leaf of the page tree
type Page struct {
	dict      core.Dict
	ref       core.IndirectRef
	ancestors []core.Dict // nearest first
	resolver  ObjectResolver
}

// NewPage creates a page. ancestors are the /Pages nodes above it, nearest
// first.
func NewPage(dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:      dict,
		ancestors: ancestors,
		resolver:  resolver,
	}
}

// Ref returns the page's object reference; the zero value for a page
// embedded directly in /Kids.
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// Dict returns the page dictionary
func (p *Page) Dict() core.Dict {
	return p.dict
}

// inherited looks key up on the page and then on each ancestor
func (p *Page) inherited(key string) core.Object {
	if obj := p.dict.Get(key); obj != nil {
		return obj
	}
	for _, a := range p.ancestors {
		if obj := a.Get(key); obj != nil {
			return obj
		}
	}
	return nil
}

// MediaBox returns the inherited media box [x1 y1 x2 y2]
func (p *Page) MediaBox() ([]float64, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the inherited crop box, defaulting to the media box
func (p *Page) CropBox() ([]float64, error) {
	if p.inherited("CropBox") == nil {
		return p.MediaBox()
	}
	return p.getBox("CropBox")
}

func (p *Page) getBox(name string) ([]float64, error) {
	obj := p.inherited(name)
	if obj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s type: %T", name, resolved)
	}
	if len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(arr))
	}
	box, err := arr.Floats()
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return box, nil
}

// Rotate returns the inherited rotation in degrees, 0 by default
func (p *Page) Rotate() int {
	if rotate, ok := p.inherited("Rotate").(core.Int); ok {
		return int(rotate)
	}
	return 0
}

// Width returns the media box width
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the media box height
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
