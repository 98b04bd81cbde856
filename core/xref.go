package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// EntryKind classifies a cross-reference entry
type EntryKind int

const (
	EntryFree       EntryKind = iota
	EntryInUse                // stored at a byte offset
	EntryCompressed           // stored inside an object stream
)

// XRefEntry locates one object
type XRefEntry struct {
	Kind       EntryKind
	Offset     int64 // byte offset for EntryInUse
	Generation int
	StreamNum  int // object stream number for EntryCompressed
	Index      int // index inside that object stream
}

// InUse reports whether the entry points at an object
func (e *XRefEntry) InUse() bool {
	return e.Kind != EntryFree
}

// XRefTable is one cross-reference section with its trailer, or the merge
// of several sections.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	Offset   int64 // where the section starts
	IsStream bool  // the section is a cross-reference stream
}

// NewXRefTable creates an empty table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get returns the entry for objNum
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces an entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// ObjectNumbers returns the numbers of all in-use objects, sorted
func (x *XRefTable) ObjectNumbers() []int {
	var nums []int
	for n, e := range x.Entries {
		if e.InUse() {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// XRefParser reads cross-reference sections: classic tables, streams and
// hybrid files whose tables point at a stream through /XRefStm.
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a parser over the whole file
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// FindXRef returns the offset named by the last startxref keyword
func (x *XRefParser) FindXRef() (int64, error) {
	size, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}
	tail := int64(1024)
	if size < tail {
		tail = size
	}
	if _, err := x.reader.Seek(size-tail, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}
	buf := make([]byte, tail)
	if _, err := io.ReadFull(x.reader, buf); err != nil {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	rest := bytes.TrimLeft(buf[idx+len("startxref"):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	offset, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= size {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, size)
	}
	return offset, nil
}

// ParseXRef parses the section at offset, whichever form it has
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	isStream, err := x.isXRefStream(offset)
	if err != nil {
		return nil, err
	}
	if isStream {
		return x.parseXRefStream(offset)
	}
	table, err := x.parseXRefTable(offset)
	if err != nil {
		return nil, err
	}

	// Hybrid file: the stream supplies the entries of compressed objects.
	if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok {
		hidden, err := x.parseXRefStream(int64(stmOffset))
		if err != nil {
			return nil, fmt.Errorf("/XRefStm at %d: %w", stmOffset, err)
		}
		for num, entry := range hidden.Entries {
			if existing, ok := table.Entries[num]; !ok || !existing.InUse() {
				table.Entries[num] = entry
			}
		}
	}
	return table, nil
}

// isXRefStream reports whether the section at offset is a stream object
// rather than a table starting with the xref keyword.
func (x *XRefParser) isXRefStream(offset int64) (bool, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return false, fmt.Errorf("failed to seek to xref: %w", err)
	}
	lex := NewLexerAt(x.reader, offset)
	tok, err := lex.NextToken()
	if err != nil {
		return false, err
	}
	switch {
	case tok.Type == TokenKeyword && string(tok.Value) == "xref":
		return false, nil
	case tok.Type == TokenInteger:
		return true, nil
	}
	return false, fmt.Errorf("no cross-reference section at offset %d (found %v)", offset, tok)
}

func (x *XRefParser) parseXRefTable(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}
	lex := NewLexerAt(x.reader, offset)
	if tok, err := lex.NextToken(); err != nil || string(tok.Value) != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword at %d", offset)
	}

	table := NewXRefTable()
	table.Offset = offset
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection header %v", tok)
		}
		first, _ := strconv.Atoi(string(tok.Value))
		count, err := nextInt(lex)
		if err != nil {
			return nil, fmt.Errorf("subsection %d count: %w", first, err)
		}
		for i := 0; i < count; i++ {
			entry, err := readTableEntry(lex)
			if err != nil {
				return nil, fmt.Errorf("entry for object %d: %w", first+i, err)
			}
			table.Set(first+i, entry)
		}
	}

	trailer, err := newParser(lex).ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %T, not a dictionary", trailer)
	}
	table.Trailer = dict
	return table, nil
}

func nextInt(lex *Lexer) (int, error) {
	tok, err := lex.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected integer, got %v", tok)
	}
	return strconv.Atoi(string(tok.Value))
}

// readTableEntry reads "oooooooooo ggggg n" or the free form ending in f
func readTableEntry(lex *Lexer) (*XRefEntry, error) {
	offset, err := nextInt(lex)
	if err != nil {
		return nil, err
	}
	gen, err := nextInt(lex)
	if err != nil {
		return nil, err
	}
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	switch string(tok.Value) {
	case "n":
		return &XRefEntry{Kind: EntryInUse, Offset: int64(offset), Generation: gen}, nil
	case "f":
		return &XRefEntry{Kind: EntryFree, Offset: int64(offset), Generation: gen}, nil
	}
	return nil, fmt.Errorf("invalid in-use flag %v", tok)
}

// parseXRefStream reads a /Type /XRef stream object. Its dictionary doubles
// as the trailer.
func (x *XRefParser) parseXRefStream(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref stream: %w", err)
	}
	ind, err := NewParserAt(x.reader, offset).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream object: %w", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is %T", ind.Object)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("object %d is not an xref stream", ind.Ref.Number)
	}

	widths, err := xrefWidths(stream.Dict)
	if err != nil {
		return nil, err
	}
	sections, err := xrefIndex(stream.Dict)
	if err != nil {
		return nil, err
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Offset = offset
	table.IsStream = true
	table.Trailer = stream.Dict

	rowLen := widths[0] + widths[1] + widths[2]
	pos := 0
	for _, sec := range sections {
		for i := 0; i < sec[1]; i++ {
			if pos+rowLen > len(data) {
				return nil, fmt.Errorf("xref stream truncated at object %d", sec[0]+i)
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			kind := int64(1)
			if widths[0] > 0 {
				kind = readField(row[:widths[0]])
			}
			f2 := readField(row[widths[0] : widths[0]+widths[1]])
			f3 := readField(row[widths[0]+widths[1]:])
			var entry *XRefEntry
			switch kind {
			case 0:
				entry = &XRefEntry{Kind: EntryFree, Offset: f2, Generation: int(f3)}
			case 1:
				entry = &XRefEntry{Kind: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entry = &XRefEntry{Kind: EntryCompressed, StreamNum: int(f2), Index: int(f3)}
			default:
				// unknown types are treated as null references
				continue
			}
			table.Set(sec[0]+i, entry)
		}
	}
	return table, nil
}

func xrefWidths(dict Dict) ([3]int, error) {
	var w [3]int
	arr, ok := dict.GetArray("W")
	if !ok || len(arr) != 3 {
		return w, fmt.Errorf("xref stream needs a /W array of 3 widths")
	}
	for i := range w {
		n, ok := arr.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return w, fmt.Errorf("invalid /W entry %v", arr.Get(i))
		}
		w[i] = int(n)
	}
	return w, nil
}

// xrefIndex returns the [first count] pairs; the default is [0 Size]
func xrefIndex(dict Dict) ([][2]int, error) {
	arr, ok := dict.GetArray("Index")
	if !ok {
		size, ok := dict.GetInt("Size")
		if !ok {
			return nil, fmt.Errorf("xref stream missing /Size")
		}
		return [][2]int{{0, int(size)}}, nil
	}
	if len(arr)%2 != 0 {
		return nil, fmt.Errorf("odd /Index length %d", len(arr))
	}
	out := make([][2]int, 0, len(arr)/2)
	for i := 0; i < len(arr); i += 2 {
		first, ok1 := arr.GetInt(i)
		count, ok2 := arr.GetInt(i + 1)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid /Index pair at %d", i)
		}
		out = append(out, [2]int{int(first), int(count)})
	}
	return out, nil
}

// readField decodes a big-endian field of up to 8 bytes
func readField(b []byte) int64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return int64(binary.BigEndian.Uint64(buf[:]))
}

// ParseAllXRefs follows the chain of /Prev links from the last section and
// returns the sections oldest first. Loops in the chain are cut.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	visited := make(map[int64]bool)
	for {
		if visited[offset] {
			break
		}
		visited[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			if len(tables) > 0 {
				return nil, fmt.Errorf("previous xref at %d: %w", offset, err)
			}
			return nil, err
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// MergeXRefTables merges sections given oldest first. Later entries win
// and the trailer is the newest one, with keys missing from it inherited
// from older trailers.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for num, entry := range table.Entries {
			merged.Set(num, entry)
		}
		for k, v := range table.Trailer {
			merged.Trailer[k] = v
		}
		merged.Offset = table.Offset
		merged.IsStream = table.IsStream
	}
	return merged
}
