package core

import (
	"bytes"
	"fmt"
)

// ObjectStream is a /Type /ObjStm stream holding several compressed
// objects. The stream is decoded lazily on first access.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef
	objects map[int]Object // by index
	offsets []objectOffset
	decoded []byte
}

type objectOffset struct {
	objNum int
	offset int // relative to First
}

// NewObjectStream validates /Type, /N and /First of stream
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type %v", stream.Dict.Get("Type"))
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First %v", stream.Dict.Get("First"))
	}

	objStm := &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}
	if obj := stream.Dict.Get("Extends"); obj != nil {
		ref, ok := obj.(IndirectRef)
		if !ok {
			return nil, fmt.Errorf("invalid /Extends type: %T", obj)
		}
		objStm.extends = &ref
	}
	return objStm, nil
}

// N returns the number of objects in the stream
func (o *ObjectStream) N() int { return o.n }

// Extends returns the stream this one extends, or nil
func (o *ObjectStream) Extends() *IndirectRef { return o.extends }

func (o *ObjectStream) decode() error {
	if o.decoded != nil {
		return nil
	}
	decoded, err := o.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if o.first > len(decoded) {
		return fmt.Errorf("/First %d exceeds decoded length %d", o.first, len(decoded))
	}

	lex := NewLexer(bytes.NewReader(decoded[:o.first]))
	offsets := make([]objectOffset, 0, o.n)
	for i := 0; i < o.n; i++ {
		num, err := nextInt(lex)
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		off, err := nextInt(lex)
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		offsets = append(offsets, objectOffset{objNum: num, offset: off})
	}
	o.decoded = decoded
	o.offsets = offsets
	return nil
}

// GetObjectByIndex returns the object at header position index and its
// object number.
func (o *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := o.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(o.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(o.offsets))
	}
	num := o.offsets[index].objNum
	if obj, ok := o.objects[index]; ok {
		return obj, num, nil
	}

	start := o.first + o.offsets[index].offset
	end := len(o.decoded)
	if index+1 < len(o.offsets) {
		end = o.first + o.offsets[index+1].offset
	}
	if start >= len(o.decoded) || end > len(o.decoded) || start > end {
		return nil, 0, fmt.Errorf("object %d lies outside the decoded data", num)
	}

	obj, err := NewParser(bytes.NewReader(o.decoded[start:end])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object %d in object stream: %w", num, err)
	}
	o.objects[index] = obj
	return obj, num, nil
}

// GetObjectByNumber finds an object by number and returns it with its index
func (o *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := o.decode(); err != nil {
		return nil, 0, err
	}
	for i, entry := range o.offsets {
		if entry.objNum == objNum {
			obj, _, err := o.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers lists the object numbers in header order
func (o *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := o.decode(); err != nil {
		return nil, err
	}
	nums := make([]int, len(o.offsets))
	for i, entry := range o.offsets {
		nums[i] = entry.objNum
	}
	return nums, nil
}
