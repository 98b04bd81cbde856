package loader

import (
	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pages"
	"github.com/tsawler/pagenum/pdferr"
)

// maxOutlineItems bounds the walk of a damaged /Next chain.
const maxOutlineItems = 100000

// ReadOutline reads the outline of catalog. A document without /Outlines
// has an empty outline. Every item must lead to a page of tree, otherwise
// the error has code CodeComplexOutline.
func ReadOutline(r pages.ObjectResolver, catalog *pages.Catalog, tree *pages.PageTree) (*model.Outline, error) {
	outlines, err := catalog.Outlines()
	if err != nil {
		return nil, pdferr.Wrap(pdferr.CodeMalformed, "cannot read outline", err)
	}
	outline := model.NewOutline()
	if outlines == nil {
		return outline, nil
	}

	rd := &outlineReader{
		r:       r,
		catalog: catalog,
		tree:    tree,
		visited: make(map[core.IndirectRef]bool),
	}
	if err := rd.readItems(outlines.Get("First"), outline.Root()); err != nil {
		return nil, err
	}
	return outline, nil
}

type outlineReader struct {
	r       pages.ObjectResolver
	catalog *pages.Catalog
	tree    *pages.PageTree
	visited map[core.IndirectRef]bool
	count   int
}

func tooComplex(format string, args ...interface{}) error {
	return pdferr.Newf(pdferr.CodeComplexOutline, format, args...)
}

// readItems appends the item first and its /Next siblings to parent.
func (rd *outlineReader) readItems(first core.Object, parent *model.Node) error {
	for item := first; item != nil; {
		if ref, ok := item.(core.IndirectRef); ok {
			if rd.visited[ref] {
				return pdferr.Newf(pdferr.CodeMalformed, "outline item %v visited twice", ref)
			}
			rd.visited[ref] = true
		}
		if rd.count++; rd.count > maxOutlineItems {
			return pdferr.Newf(pdferr.CodeMalformed, "more than %d outline items", maxOutlineItems)
		}

		obj, err := rd.r.Resolve(item)
		if err != nil {
			return pdferr.Wrapf(pdferr.CodeMalformed, err, "cannot read outline item %v", item)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			return pdferr.Newf(pdferr.CodeMalformed, "outline item is %T", obj)
		}

		title := ""
		if t, ok := dict.GetString("Title"); ok {
			title = core.DecodeTextString(t)
		}
		page, err := rd.itemPage(dict)
		if err != nil {
			return err
		}

		node := model.NewNode(model.Bookmark{Title: title, PageIndex: page})
		parent.AddAsLastChild(node)
		if err := rd.readItems(dict.Get("First"), node); err != nil {
			return err
		}
		item = dict.Get("Next")
	}
	return nil
}

// itemPage finds the page of an item from /Dest or a GoTo action.
func (rd *outlineReader) itemPage(item core.Dict) (int, error) {
	dest := item.Get("Dest")
	if dest == nil {
		obj, err := rd.r.Resolve(item.Get("A"))
		if err == nil {
			if action, ok := obj.(core.Dict); ok {
				if s, _ := action.GetName("S"); s == "GoTo" {
					dest = action.Get("D")
				}
			}
		}
	}
	if dest == nil {
		return 0, tooComplex("outline item without a local destination")
	}
	return rd.destPage(dest, 0)
}

// destPage resolves an explicit or named destination to a page index.
func (rd *outlineReader) destPage(dest core.Object, depth int) (int, error) {
	if depth > 4 {
		return 0, tooComplex("destination chain too long")
	}
	obj, err := rd.r.Resolve(dest)
	if err != nil {
		return 0, tooComplex("cannot resolve destination: %v", err)
	}

	switch d := obj.(type) {
	case core.Array:
		switch target := d.Get(0).(type) {
		case core.IndirectRef:
			if index, ok := rd.tree.IndexOf(target); ok {
				return index, nil
			}
			return 0, tooComplex("destination %v is not a page of this document", target)
		case core.Int:
			// remote-style page number used in a local destination
			count, _ := rd.tree.Count()
			if int(target) >= 0 && int(target) < count {
				return int(target), nil
			}
		}
		return 0, tooComplex("unsupported destination %v", d)

	case core.Dict:
		if inner := d.Get("D"); inner != nil {
			return rd.destPage(inner, depth+1)
		}

	case core.Name:
		dests, err := rd.catalog.Dests()
		if err == nil && dests != nil {
			if target := dests.Get(string(d)); target != nil {
				return rd.destPage(target, depth+1)
			}
		}

	case core.String:
		tree, err := rd.catalog.NamedDests()
		if err == nil && tree != nil {
			if target, ok := lookupNameTree(rd.r, tree, string(d), 0); ok {
				return rd.destPage(target, depth+1)
			}
		}
	}
	return 0, tooComplex("cannot resolve destination %v", obj)
}

// lookupNameTree finds key in a name tree, pruning kids by /Limits.
func lookupNameTree(r pages.ObjectResolver, node core.Dict, key string, depth int) (core.Object, bool) {
	if depth > maxTreeDepth {
		return nil, false
	}
	if names, err := resolveArray(r, node.Get("Names")); err == nil {
		for i := 0; i+1 < len(names); i += 2 {
			if k, ok := names[i].(core.String); ok && string(k) == key {
				return names[i+1], true
			}
		}
	}
	kids, err := resolveArray(r, node.Get("Kids"))
	if err != nil {
		return nil, false
	}
	for _, kid := range kids {
		obj, err := r.Resolve(kid)
		if err != nil {
			continue
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		if limits, ok := dict.GetArray("Limits"); ok && len(limits) == 2 {
			lo, ok1 := limits[0].(core.String)
			hi, ok2 := limits[1].(core.String)
			if ok1 && ok2 && (key < string(lo) || key > string(hi)) {
				continue
			}
		}
		if v, ok := lookupNameTree(r, dict, key, depth+1); ok {
			return v, true
		}
	}
	return nil, false
}
