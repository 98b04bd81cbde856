package loader

import (
	"fmt"

	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pages"
)

// ReadLabels reads the /PageLabels number tree of catalog. Without one the
// result is the default table; a table lacking index 0 gets a default
// range there.
func ReadLabels(r pages.ObjectResolver, catalog *pages.Catalog) (*model.LabelTable, error) {
	root, err := catalog.PageLabels()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return model.NewDefaultLabelTable(), nil
	}

	table := model.NewLabelTable()
	add := func(key core.Object, value core.Object) error {
		index, ok := key.(core.Int)
		if !ok || index < 0 {
			return fmt.Errorf("invalid page label key %v", key)
		}
		obj, err := r.Resolve(value)
		if err != nil {
			return fmt.Errorf("page label %d: %w", index, err)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			return fmt.Errorf("page label %d is %T, not a dictionary", index, obj)
		}
		lr, err := labelRange(dict)
		if err != nil {
			return fmt.Errorf("page label %d: %w", index, err)
		}
		if table.Has(int(index)) {
			return fmt.Errorf("duplicate page label key %d", index)
		}
		table.PutNew(int(index), lr)
		return nil
	}

	if err := walkNumberTree(r, root, add, 0); err != nil {
		return nil, err
	}
	if !table.Has(0) {
		table.PutNew(0, model.DefaultLabelRange())
	}
	return table, nil
}

func labelRange(dict core.Dict) (model.LabelRange, error) {
	lr := model.LabelRange{Start: 1}
	if name, ok := dict.GetName("S"); ok {
		style, err := model.StyleFromPDFName(string(name))
		if err != nil {
			return lr, err
		}
		lr.Style = style
	}
	if p, ok := dict.GetString("P"); ok {
		lr.Prefix = core.DecodeTextString(p)
	}
	if st, ok := dict.GetInt("St"); ok && st >= 1 {
		lr.Start = int(st)
	}
	return lr, nil
}

const maxTreeDepth = 32

// walkNumberTree calls fn for each key/value pair of a number tree, in the
// order stored. The depth limit also stops reference cycles.
func walkNumberTree(r pages.ObjectResolver, node core.Dict, fn func(key, value core.Object) error, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("number tree deeper than %d levels", maxTreeDepth)
	}

	if nums, err := resolveArray(r, node.Get("Nums")); err != nil {
		return err
	} else if nums != nil {
		if len(nums)%2 != 0 {
			return fmt.Errorf("odd /Nums length %d", len(nums))
		}
		for i := 0; i < len(nums); i += 2 {
			if err := fn(nums[i], nums[i+1]); err != nil {
				return err
			}
		}
	}

	kids, err := resolveArray(r, node.Get("Kids"))
	if err != nil {
		return err
	}
	for i, kid := range kids {
		obj, err := r.Resolve(kid)
		if err != nil {
			return fmt.Errorf("number tree kid %d: %w", i, err)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			return fmt.Errorf("number tree kid %d is %T", i, obj)
		}
		if err := walkNumberTree(r, dict, fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func resolveArray(r pages.ObjectResolver, obj core.Object) (core.Array, error) {
	if obj == nil {
		return nil, nil
	}
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", resolved)
	}
	return arr, nil
}
