// Package pdftest builds small PDF files for tests. Offsets and xref
// sections are computed, so fixtures stay readable as plain object bodies.
package pdftest

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Builder collects object bodies by number
type Builder struct {
	objects    map[int]string
	compressed map[int]bool
	max        int
}

// New creates an empty builder
func New() *Builder {
	return &Builder{
		objects:    make(map[int]string),
		compressed: make(map[int]bool),
	}
}

// Add stores body under the next free object number and returns it
func (b *Builder) Add(body string) int {
	b.max++
	b.objects[b.max] = body
	return b.max
}

// Set stores body under num
func (b *Builder) Set(num int, body string) {
	b.objects[num] = body
	if num > b.max {
		b.max = num
	}
}

// Compress marks objects to be packed into an object stream by
// XRefStreamBytes. Classic output ignores it.
func (b *Builder) Compress(nums ...int) {
	for _, n := range nums {
		b.compressed[n] = true
	}
}

func (b *Builder) numbers() []int {
	nums := make([]int, 0, len(b.objects))
	for n := range b.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Document creates a catalog (object 1), a page tree (object 2) and n
// letter-sized pages (objects 3 onward). catalogExtra is spliced into the
// catalog dictionary.
func Document(n int, catalogExtra string) *Builder {
	b := New()
	b.Add("<< /Type /Catalog /Pages 2 0 R " + catalogExtra + " >>")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	b.Add(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		b.Add("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}
	return b
}

// Bytes lays the objects out with a classic xref table. The trailer gets
// /Size and /Root 1 0 R plus trailerExtra.
func (b *Builder) Bytes(trailerExtra string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")
	offsets := make(map[int]int)
	for _, n := range b.numbers() {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, b.objects[n])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", b.max+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= b.max; n++ {
		if off, ok := offsets[n]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 00001 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R %s >>\nstartxref\n%d\n%%%%EOF\n", b.max+1, trailerExtra, xref)
	return buf.Bytes()
}

// XRefStreamBytes lays the objects out with a cross-reference stream.
// Objects marked with Compress go into one object stream.
func (b *Builder) XRefStreamBytes(trailerExtra string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n%\xE2\xE3\xCF\xD3\n")

	type entry struct {
		kind  byte
		field int
		index int
	}
	entries := make(map[int]entry)

	var plain, packed []int
	for _, n := range b.numbers() {
		if b.compressed[n] {
			packed = append(packed, n)
		} else {
			plain = append(plain, n)
		}
	}
	for _, n := range plain {
		entries[n] = entry{kind: 1, field: buf.Len()}
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, b.objects[n])
	}

	next := b.max + 1
	if len(packed) > 0 {
		objStm := next
		next++
		var header, body bytes.Buffer
		for i, n := range packed {
			fmt.Fprintf(&header, "%d %d ", n, body.Len())
			body.WriteString(b.objects[n])
			body.WriteByte('\n')
			entries[n] = entry{kind: 2, field: objStm, index: i}
		}
		data := header.String() + body.String()
		entries[objStm] = entry{kind: 1, field: buf.Len()}
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /ObjStm /N %d /First %d /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			objStm, len(packed), header.Len(), len(data), data)
	}

	xrefNum := next
	size := xrefNum + 1
	xref := buf.Len()
	entries[xrefNum] = entry{kind: 1, field: xref}

	var rows []byte
	for n := 0; n < size; n++ {
		e := entries[n]
		rows = append(rows, e.kind,
			byte(e.field>>24), byte(e.field>>16), byte(e.field>>8), byte(e.field),
			byte(e.index>>8), byte(e.index))
	}
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Root 1 0 R %s /Length %d >>\nstream\n",
		xrefNum, size, trailerExtra, len(rows))
	buf.Write(rows)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// AppendUpdate appends an incremental update redefining objects, with a
// classic xref section chained to base through /Prev.
func AppendUpdate(base []byte, objects map[int]string, trailerExtra string) []byte {
	prev := LastStartXRef(base)
	buf := bytes.NewBuffer(append([]byte(nil), base...))

	nums := make([]int, 0, len(objects))
	maxNum := 0
	for n := range objects {
		nums = append(nums, n)
		if n > maxNum {
			maxNum = n
		}
	}
	sort.Ints(nums)
	if size := lastSize(base); size > maxNum {
		maxNum = size - 1
	}

	offsets := make(map[int]int)
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", n, objects[n])
	}
	xref := buf.Len()
	buf.WriteString("xref\n")
	for _, n := range nums {
		fmt.Fprintf(buf, "%d 1\n%010d 00000 n \n", n, offsets[n])
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R /Prev %d %s >>\nstartxref\n%d\n%%%%EOF\n", maxNum+1, prev, trailerExtra, xref)
	return buf.Bytes()
}

var sizeRE = regexp.MustCompile(`/Size\s+(\d+)`)

// lastSize returns the last /Size value in data, or 0
func lastSize(data []byte) int {
	matches := sizeRE.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(string(matches[len(matches)-1][1]))
	return n
}

// LastStartXRef returns the offset after the last startxref keyword, or -1
func LastStartXRef(data []byte) int {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return -1
	}
	fields := strings.Fields(string(data[idx+len("startxref"):]))
	if len(fields) == 0 {
		return -1
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return -1
	}
	return n
}
