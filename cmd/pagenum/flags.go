package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tsawler/pagenum/model"
)

type labelSpec struct {
	index int
	rng   model.LabelRange
}

// labelFlags collects -label values of the form page:style[:prefix[:start]]
type labelFlags []labelSpec

func (f *labelFlags) String() string {
	parts := make([]string, len(*f))
	for i, l := range *f {
		parts[i] = fmt.Sprintf("%d:%s:%s:%d", l.index+1, l.rng.Style.PDFName(), l.rng.Prefix, l.rng.Start)
	}
	return strings.Join(parts, ",")
}

func (f *labelFlags) Set(value string) error {
	l, err := parseLabel(value)
	if err != nil {
		return err
	}
	*f = append(*f, l)
	return nil
}

// indexFlags collects one-based page numbers as zero-based indices
type indexFlags []int

func (f *indexFlags) String() string {
	parts := make([]string, len(*f))
	for i, n := range *f {
		parts[i] = strconv.Itoa(n + 1)
	}
	return strings.Join(parts, ",")
}

func (f *indexFlags) Set(value string) error {
	n, err := parsePage(value)
	if err != nil {
		return err
	}
	*f = append(*f, n)
	return nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n - 1, nil
}

// parseLabel parses page:style[:prefix[:start]]. An empty style means no
// numbering; start defaults to 1.
func parseLabel(s string) (labelSpec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 2 {
		return labelSpec{}, fmt.Errorf("invalid label %q: want page:style[:prefix[:start]]", s)
	}
	index, err := parsePage(parts[0])
	if err != nil {
		return labelSpec{}, err
	}

	rng := model.LabelRange{Start: 1}
	if parts[1] != "" {
		if rng.Style, err = model.ParseStyle(parts[1]); err != nil {
			return labelSpec{}, err
		}
	}
	if len(parts) > 2 {
		rng.Prefix = parts[2]
	}
	if len(parts) > 3 {
		if rng.Start, err = strconv.Atoi(parts[3]); err != nil || rng.Start < 1 {
			return labelSpec{}, fmt.Errorf("invalid start %q in label %q", parts[3], s)
		}
	}
	return labelSpec{index: index, rng: rng}, nil
}

// parseRect parses x1,y1,x2,y2
func parseRect(s string) (model.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.Rect{}, fmt.Errorf("invalid crop box %q: want x1,y1,x2,y2", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.Rect{}, fmt.Errorf("invalid crop box %q: %v", s, err)
		}
		v[i] = f
	}
	return model.NewRect(model.Point{X: v[0], Y: v[1]}, model.Point{X: v[2], Y: v[3]}), nil
}

// formatLabel describes a range as shown by inspect
func formatLabel(r model.LabelRange) string {
	var sb strings.Builder
	sb.WriteString(r.Style.String())
	if r.Prefix != "" {
		fmt.Fprintf(&sb, " prefix %q", r.Prefix)
	}
	if r.Start != 1 {
		fmt.Fprintf(&sb, " from %d", r.Start)
	}
	return sb.String()
}
