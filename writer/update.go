package writer

import (
	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pages"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/reader"
)

// update collects the objects of one incremental update
type update struct {
	r        *reader.Reader
	rootRef  core.IndirectRef
	catalog  core.Dict
	pages    []*pages.Page
	objects  map[core.IndirectRef]core.Object
	nextNum  int
	xrefStm  bool
	trailer  core.Dict
	prevXRef int64
}

func newUpdate(r *reader.Reader) (*update, error) {
	rootRef, err := r.RootRef()
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CodeMalformed, "cannot find catalog", err)
	}
	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CodeMalformed, "cannot read catalog", err)
	}
	tree, err := r.PageTree()
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CodeMalformed, "cannot read page tree", err)
	}
	list, err := tree.Pages()
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CodeMalformed, "cannot read page tree", err)
	}

	size, _ := r.Trailer().GetInt("Size")
	next := int(size)
	for num := range r.XRefTable().Entries {
		if num >= next {
			next = num + 1
		}
	}
	if next < 1 {
		next = 1
	}

	return &update{
		r:        r,
		rootRef:  rootRef,
		catalog:  catalog.Clone(),
		pages:    list,
		objects:  make(map[core.IndirectRef]core.Object),
		nextNum:  next,
		xrefStm:  r.UsesXRefStream(),
		trailer:  r.Trailer(),
		prevXRef: r.StartXRef(),
	}, nil
}

// alloc reserves a new object number
func (u *update) alloc() core.IndirectRef {
	ref := core.IndirectRef{Number: u.nextNum}
	u.nextNum++
	return ref
}

// apply stages every change of snap
func (u *update) apply(snap *model.Snapshot) error {
	if snap.Labels != nil {
		if last, ok := snap.Labels.LastKey(); ok && last >= len(u.pages) {
			return pdferr.Newf(pdferr.CodeUnsupported,
				"label range starts at page %d, document has %d", last, len(u.pages))
		}
	}
	if snap.Labels != nil && !snap.Labels.IsEmpty() {
		u.catalog.Set("PageLabels", labelTree(snap.Labels))
	} else {
		u.catalog.Delete("PageLabels")
	}

	if snap.Outline != nil {
		ref, err := u.addOutline(snap.Outline)
		if err != nil {
			return err
		}
		u.catalog.Set("Outlines", ref)
	}

	if snap.CropBox != nil {
		box := cropArray(*snap.CropBox)
		for _, p := range u.pages {
			dict := p.Dict().Clone()
			dict.Set("CropBox", box)
			u.objects[p.Ref()] = dict
		}
	}

	u.objects[u.rootRef] = u.catalog
	return nil
}

// labelTree builds a flat /PageLabels number tree. /St is omitted when it
// is 1 and /S when the style is StyleNone.
func labelTree(t *model.LabelTable) core.Dict {
	nums := make(core.Array, 0, 2*t.Len())
	for _, e := range t.Entries() {
		d := core.Dict{}
		if name := e.Range.Style.PDFName(); name != "" {
			d.Set("S", core.Name(name))
		}
		if e.Range.Prefix != "" {
			d.Set("P", core.EncodeTextString(e.Range.Prefix))
		}
		if e.Range.Start != 1 {
			d.Set("St", core.Int(e.Range.Start))
		}
		nums = append(nums, core.Int(e.Index), d)
	}
	return core.Dict{"Nums": nums}
}

func cropArray(r model.Rect) core.Array {
	a := r.Array()
	return core.Array{core.Real(a[0]), core.Real(a[1]), core.Real(a[2]), core.Real(a[3])}
}

// addOutline stages the outline dictionary and its items. Items with
// children are written closed.
func (u *update) addOutline(o *model.Outline) (core.IndirectRef, error) {
	rootRef := u.alloc()
	root := core.Dict{"Type": core.Name("Outlines")}
	children := o.Root().Children()
	if len(children) == 0 {
		root.Set("Count", core.Int(0))
		u.objects[rootRef] = root
		return rootRef, nil
	}

	first, last, err := u.addItems(children, rootRef)
	if err != nil {
		return core.IndirectRef{}, err
	}
	root.Set("First", first)
	root.Set("Last", last)
	root.Set("Count", core.Int(len(children)))
	u.objects[rootRef] = root
	return rootRef, nil
}

// addItems stages the siblings nodes under parent and returns the first
// and last item references.
func (u *update) addItems(nodes []*model.Node, parent core.IndirectRef) (core.IndirectRef, core.IndirectRef, error) {
	refs := make([]core.IndirectRef, len(nodes))
	for i := range nodes {
		refs[i] = u.alloc()
	}

	for i, n := range nodes {
		b, ok := n.Bookmark()
		if !ok {
			return core.IndirectRef{}, core.IndirectRef{}, pdferr.New(pdferr.CodeUnsupported, "outline node without a bookmark")
		}
		if b.PageIndex < 0 || b.PageIndex >= len(u.pages) {
			return core.IndirectRef{}, core.IndirectRef{}, pdferr.Newf(pdferr.CodeUnsupported,
				"bookmark %q points to page %d, document has %d", b.Title, b.PageIndex, len(u.pages))
		}

		item := core.Dict{
			"Title":  core.EncodeTextString(b.Title),
			"Parent": parent,
			"Dest":   core.Array{u.pages[b.PageIndex].Ref(), core.Name("Fit")},
		}
		if i > 0 {
			item.Set("Prev", refs[i-1])
		}
		if i < len(nodes)-1 {
			item.Set("Next", refs[i+1])
		}
		if kids := n.Children(); len(kids) > 0 {
			first, last, err := u.addItems(kids, refs[i])
			if err != nil {
				return core.IndirectRef{}, core.IndirectRef{}, err
			}
			item.Set("First", first)
			item.Set("Last", last)
			item.Set("Count", core.Int(-len(kids)))
		}
		u.objects[refs[i]] = item
	}
	return refs[0], refs[len(refs)-1], nil
}

// trailerDict returns the trailer entries of the new section
func (u *update) trailerDict() core.Dict {
	t := core.Dict{
		"Size": core.Int(u.nextNum),
		"Root": u.rootRef,
		"Prev": core.Int(u.prevXRef),
	}
	for _, key := range []string{"Info", "ID"} {
		if v := u.trailer.Get(key); v != nil {
			t.Set(key, v)
		}
	}
	return t
}
