package core

import (
	"strings"
	"testing"
)

func parseOne(t *testing.T, input string) Object {
	t.Helper()
	obj, err := NewParser(strings.NewReader(input)).ParseObject()
	if err != nil {
		t.Fatalf("parsing %q: unexpected error: %v", input, err)
	}
	return obj
}

// TestParserScalars tests parsing of simple objects
func TestParserScalars(t *testing.T) {
	tests := []struct {
		input    string
		expected Object
	}{
		{"null", Null{}},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.5", Real(3.5)},
		{".5", Real(0.5)},
		{"(hello)", String("hello")},
		{"<48656C6C6F>", String("Hello")},
		{"<414>", String("A@")},
		{"/Type", Name("Type")},
		{"12 0 R", IndirectRef{Number: 12, Generation: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			obj := parseOne(t, tt.input)
			if obj != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, obj, obj)
			}
		})
	}
}

// TestParserArray tests arrays mixing integers and references
func TestParserArray(t *testing.T) {
	arr, ok := parseOne(t, "[1 2 3 0 R /N (s)]").(Array)
	if !ok {
		t.Fatal("expected Array")
	}
	if arr.Len() != 5 {
		t.Fatalf("expected 5 elements, got %d: %v", arr.Len(), arr)
	}
	if arr[1] != Int(2) {
		t.Errorf("expected 2, got %v", arr[1])
	}
	if arr[2] != (IndirectRef{Number: 3, Generation: 0}) {
		t.Errorf("expected 3 0 R, got %v", arr[2])
	}
}

// TestParserDict tests nested dictionaries and dropped nulls
func TestParserDict(t *testing.T) {
	d, ok := parseOne(t, "<< /Type /Catalog /Pages 2 0 R /Nested << /A [0 1] >> /Gone null >>").(Dict)
	if !ok {
		t.Fatal("expected Dict")
	}
	if name, _ := d.GetName("Type"); name != "Catalog" {
		t.Errorf("expected /Catalog, got %v", name)
	}
	if ref, _ := d.GetIndirectRef("Pages"); ref.Number != 2 {
		t.Errorf("expected 2 0 R, got %v", ref)
	}
	nested, ok := d.GetDict("Nested")
	if !ok {
		t.Fatal("expected nested dictionary")
	}
	if arr, _ := nested.GetArray("A"); arr.Len() != 2 {
		t.Errorf("expected 2 elements, got %v", arr)
	}
	if d.Has("Gone") {
		t.Error("expected null entry to be dropped")
	}
}

// TestParseIndirectObject tests indirect objects with and without streams
func TestParseIndirectObject(t *testing.T) {
	ind, err := NewParser(strings.NewReader("7 0 obj\n<< /A 1 >>\nendobj")).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ind.Ref.Number != 7 {
		t.Errorf("expected object 7, got %d", ind.Ref.Number)
	}

	input := "8 0 obj\n<< /Length 5 >>\nstream\r\nhello\nendstream\nendobj"
	ind, err = NewParser(strings.NewReader(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", ind.Object)
	}
	if string(stream.Data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", stream.Data)
	}
}

type mapResolver map[int]Object

func (m mapResolver) ResolveReference(ref IndirectRef) (Object, error) {
	return m[ref.Number], nil
}

// TestParseStreamIndirectLength tests /Length given as a reference
func TestParseStreamIndirectLength(t *testing.T) {
	input := "8 0 obj\n<< /Length 9 0 R >>\nstream\nabc\nendstream\nendobj"

	p := NewParser(strings.NewReader(input))
	if _, err := p.ParseIndirectObject(); err == nil {
		t.Error("expected error without a resolver")
	}

	p = NewParser(strings.NewReader(input))
	p.SetReferenceResolver(mapResolver{9: Int(3)})
	ind, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data := ind.Object.(*Stream).Data; string(data) != "abc" {
		t.Errorf("expected %q, got %q", "abc", data)
	}
}

// TestParserErrors tests malformed objects
func TestParserErrors(t *testing.T) {
	inputs := []string{"[1 2", "<< /A >>", "<< 1 2 >>", "endobj", ""}
	for _, input := range inputs {
		if _, err := NewParser(strings.NewReader(input)).ParseObject(); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
