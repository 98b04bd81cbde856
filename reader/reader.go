package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/pagenum/core"
	"github.com/tsawler/pagenum/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader reads objects from a PDF. It is not safe for concurrent use.
type Reader struct {
	src        io.ReaderAt
	closer     io.Closer
	fileSize   int64
	version    PDFVersion
	xrefTable  *core.XRefTable
	trailer    core.Dict
	startXRef  int64
	lastStream bool
	sections   int
	objCache   map[int]core.Object
	objStreams map[int]*core.ObjectStream
	pageTree   *pages.PageTree
}

var _ pages.ObjectResolver = (*Reader)(nil)

// NewReader reads the header and all cross-reference sections of the
// size bytes in src.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{
		src:        src,
		fileSize:   size,
		objCache:   make(map[int]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	if err := r.loadXRef(); err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	return r, nil
}

// Open opens a PDF file and returns a Reader
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	r, err := NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// OpenBytes reads a PDF held in memory
func OpenBytes(data []byte) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// Close releases the underlying file, if Open created one
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

var versionRE = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y within the first kilobyte; some files carry
// junk before it.
func (r *Reader) parseHeader() (PDFVersion, error) {
	n := r.fileSize
	if n > 1024 {
		n = 1024
	}
	head := make([]byte, n)
	read, err := r.src.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	matches := versionRE.FindSubmatch(head[:read])
	if matches == nil {
		return PDFVersion{}, fmt.Errorf("invalid PDF header")
	}
	major, _ := strconv.Atoi(string(matches[1]))
	minor, _ := strconv.Atoi(string(matches[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

func (r *Reader) loadXRef() error {
	parser := core.NewXRefParser(io.NewSectionReader(r.src, 0, r.fileSize))
	start, err := parser.FindXRef()
	if err != nil {
		return err
	}
	tables, err := parser.ParseAllXRefs()
	if err != nil {
		return err
	}

	r.startXRef = start
	r.sections = len(tables)
	r.lastStream = tables[len(tables)-1].IsStream
	r.xrefTable = core.MergeXRefTables(tables...)
	r.trailer = r.xrefTable.Trailer
	return nil
}

// Version returns the version from the header
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the merged trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// XRefTable returns the merged cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// StartXRef returns the offset of the newest cross-reference section
func (r *Reader) StartXRef() int64 {
	return r.startXRef
}

// UsesXRefStream reports whether the newest section is a cross-reference
// stream. Incremental updates must use the same form.
func (r *Reader) UsesXRefStream() bool {
	return r.lastStream
}

// Sections returns the number of cross-reference sections in the file
func (r *Reader) Sections() int {
	return r.sections
}

// FileSize returns the size of the PDF in bytes
func (r *Reader) FileSize() int64 {
	return r.fileSize
}

// NumObjects returns the trailer /Size
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

// IsEncrypted reports whether the trailer names an encryption dictionary
func (r *Reader) IsEncrypted() bool {
	return r.trailer.Has("Encrypt")
}

// GetObject loads an object by number, from its byte offset or from the
// object stream that holds it. Objects are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}

	var obj core.Object
	var err error
	switch entry.Kind {
	case core.EntryInUse:
		obj, err = r.readObjectAt(objNum, entry.Offset)
	case core.EntryCompressed:
		obj, err = r.readCompressed(objNum, entry)
	default:
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) readObjectAt(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= r.fileSize {
		return nil, fmt.Errorf("object %d offset %d outside file", objNum, offset)
	}
	section := io.NewSectionReader(r.src, offset, r.fileSize-offset)
	parser := core.NewParserAt(section, offset)
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

func (r *Reader) readCompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	objStm, err := r.objectStream(entry.StreamNum)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}
	obj, num, err := objStm.GetObjectByIndex(entry.Index)
	if err == nil && num == objNum {
		return obj, nil
	}
	// The index is only a hint; fall back to a search by number.
	obj, _, err = objStm.GetObjectByNumber(objNum)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}
	return obj, nil
}

func (r *Reader) objectStream(num int) (*core.ObjectStream, error) {
	if objStm, ok := r.objStreams[num]; ok {
		return objStm, nil
	}
	obj, err := r.GetObject(num)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %T", num, obj)
	}
	objStm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	r.objStreams[num] = objStm
	return objStm, nil
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves obj if it is an indirect reference
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// RootRef returns the trailer's /Root reference
func (r *Reader) RootRef() (core.IndirectRef, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return core.IndirectRef{}, fmt.Errorf("trailer missing /Root reference")
	}
	return ref, nil
}

// GetCatalog returns the document catalog dictionary
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, err := r.RootRef()
	if err != nil {
		return nil, err
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// Catalog wraps the catalog for typed access
func (r *Reader) Catalog() (*pages.Catalog, error) {
	dict, err := r.GetCatalog()
	if err != nil {
		return nil, err
	}
	return pages.NewCatalog(dict, r), nil
}

// GetInfo returns the document info dictionary, or nil when absent
func (r *Reader) GetInfo() (core.Dict, error) {
	infoObj := r.trailer.Get("Info")
	if infoObj == nil {
		return nil, nil
	}
	obj, err := r.Resolve(infoObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}
	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}
	return info, nil
}

// PageTree returns the flattened page tree, loading it on first use
func (r *Reader) PageTree() (*pages.PageTree, error) {
	if r.pageTree != nil {
		return r.pageTree, nil
	}
	catalog, err := r.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	root, err := catalog.Pages()
	if err != nil {
		return nil, err
	}
	r.pageTree = pages.NewPageTree(root, r)
	return r.pageTree, nil
}

// PageCount returns the number of pages
func (r *Reader) PageCount() (int, error) {
	tree, err := r.PageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns the page at index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(index)
}

// ClearCache drops cached objects
func (r *Reader) ClearCache() {
	r.objCache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	return len(r.objCache)
}
