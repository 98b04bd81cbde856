package core

import (
	"testing"

	"github.com/tsawler/pagenum/internal/filters"
)

func newTestObjectStream(t *testing.T, compress bool) *ObjectStream {
	t.Helper()
	header := "10 0 11 3 "
	data := []byte(header + "42 << /Type /Page >>")
	dict := Dict{"Type": Name("ObjStm"), "N": Int(2), "First": Int(len(header))}
	if compress {
		var err error
		data, err = filters.FlateEncode(data, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		dict["Filter"] = Name("FlateDecode")
	}
	os, err := NewObjectStream(&Stream{Dict: dict, Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return os
}

// TestObjectStreamLookup tests access by index and by number
func TestObjectStreamLookup(t *testing.T) {
	for _, compress := range []bool{false, true} {
		os := newTestObjectStream(t, compress)

		obj, num, err := os.GetObjectByIndex(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if num != 10 || obj != Int(42) {
			t.Errorf("expected object 10 = 42, got %d = %v", num, obj)
		}

		obj, index, err := os.GetObjectByNumber(11)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if index != 1 {
			t.Errorf("expected index 1, got %d", index)
		}
		if d, ok := obj.(Dict); !ok || d["Type"] != Name("Page") {
			t.Errorf("expected page dictionary, got %v", obj)
		}

		if _, _, err := os.GetObjectByNumber(12); err == nil {
			t.Error("expected error for missing object")
		}
		if _, _, err := os.GetObjectByIndex(2); err == nil {
			t.Error("expected error for index out of range")
		}
		nums, _ := os.ObjectNumbers()
		if len(nums) != 2 || nums[0] != 10 || nums[1] != 11 {
			t.Errorf("expected [10 11], got %v", nums)
		}
	}
}

// TestNewObjectStreamErrors tests invalid stream dictionaries
func TestNewObjectStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		dict Dict
	}{
		{"wrong type", Dict{"Type": Name("XRef"), "N": Int(1), "First": Int(0)}},
		{"missing N", Dict{"Type": Name("ObjStm"), "First": Int(0)}},
		{"negative First", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(-1)}},
		{"bad Extends", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(0), "Extends": Int(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(&Stream{Dict: tt.dict}); err == nil {
				t.Error("expected error")
			}
		})
	}

	os, err := NewObjectStream(&Stream{Dict: Dict{
		"Type": Name("ObjStm"), "N": Int(0), "First": Int(0),
		"Extends": IndirectRef{Number: 7},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if os.Extends() == nil || os.Extends().Number != 7 {
		t.Errorf("expected /Extends 7 0 R, got %v", os.Extends())
	}
}
