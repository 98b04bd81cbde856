package writer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/internal/filters"
)

// serialize writes the staged objects and the new cross-reference section
// to buf. base is the length of the original file, so offsets are absolute.
func (u *update) serialize(buf *bytes.Buffer, base int64) error {
	refs := make([]core.IndirectRef, 0, len(u.objects))
	for ref := range u.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Number < refs[j].Number })

	offsets := make(map[core.IndirectRef]int64, len(refs))
	for _, ref := range refs {
		offsets[ref] = base + int64(buf.Len())
		if err := core.WriteIndirectObject(buf, ref, u.objects[ref]); err != nil {
			return err
		}
	}

	if u.xrefStm {
		return u.writeXRefStream(buf, base, refs, offsets)
	}
	return u.writeXRefTable(buf, base, refs, offsets)
}

// subsections groups sorted refs into runs of consecutive numbers
func subsections(refs []core.IndirectRef) [][]core.IndirectRef {
	var out [][]core.IndirectRef
	for i, ref := range refs {
		if i == 0 || ref.Number != refs[i-1].Number+1 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], ref)
	}
	return out
}

func (u *update) writeXRefTable(buf *bytes.Buffer, base int64, refs []core.IndirectRef, offsets map[core.IndirectRef]int64) error {
	start := base + int64(buf.Len())
	buf.WriteString("xref\n")
	for _, sub := range subsections(refs) {
		fmt.Fprintf(buf, "%d %d\n", sub[0].Number, len(sub))
		for _, ref := range sub {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[ref], ref.Generation)
		}
	}
	buf.WriteString("trailer\n")
	if err := core.WriteObject(buf, u.trailerDict()); err != nil {
		return err
	}
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", start)
	return nil
}

// writeXRefStream writes the section as a compressed stream object with
// rows of type (1 byte), offset and generation (2 bytes).
func (u *update) writeXRefStream(buf *bytes.Buffer, base int64, refs []core.IndirectRef, offsets map[core.IndirectRef]int64) error {
	self := u.alloc()
	start := base + int64(buf.Len())
	offsets[self] = start
	refs = append(refs, self)

	width := bytesNeeded(start)
	columns := 1 + width + 2
	rows := make([]byte, 0, len(refs)*columns)
	index := make(core.Array, 0)
	for _, sub := range subsections(refs) {
		index = append(index, core.Int(sub[0].Number), core.Int(len(sub)))
		for _, ref := range sub {
			row := make([]byte, columns)
			row[0] = 1
			putBigEndian(row[1:1+width], offsets[ref])
			putBigEndian(row[1+width:], int64(ref.Generation))
			rows = append(rows, row...)
		}
	}

	params := filters.Params{"Predictor": 12, "Columns": columns}
	data, err := filters.FlateEncode(rows, params)
	if err != nil {
		return fmt.Errorf("compress xref stream: %w", err)
	}

	dict := u.trailerDict()
	dict.Set("Type", core.Name("XRef"))
	dict.Set("W", core.Array{core.Int(1), core.Int(width), core.Int(2)})
	dict.Set("Index", index)
	dict.Set("Filter", core.Name("FlateDecode"))
	dict.Set("DecodeParms", core.Dict{"Predictor": core.Int(12), "Columns": core.Int(columns)})

	if err := core.WriteIndirectObject(buf, self, &core.Stream{Dict: dict, Data: data}); err != nil {
		return err
	}
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", start)
	return nil
}

// bytesNeeded returns how many bytes hold n, at least one
func bytesNeeded(n int64) int {
	count := 1
	for n > 0xff {
		count++
		n >>= 8
	}
	return count
}

func putBigEndian(dst []byte, value int64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(value)
		value >>= 8
	}
}
