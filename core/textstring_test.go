package core

import "testing"

// TestDecodeTextString tests the three text string encodings
func TestDecodeTextString(t *testing.T) {
	tests := []struct {
		name     string
		input    String
		expected string
	}{
		{"ascii", String("Preface"), "Preface"},
		{"utf16", String("\xFE\xFF\x00C\x00a\x00f\x00\xE9"), "Café"},
		{"utf8", String("\xEF\xBB\xBFna\xC3\xAFve"), "naïve"},
		{"pdfdoc latin", String("Caf\xE9"), "Café"},
		{"pdfdoc special", String("\x80 \x84 \xA0"), "• — €"},
		{"empty", String(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeTextString(tt.input)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// TestEncodeTextString tests that encoding round-trips through decoding
func TestEncodeTextString(t *testing.T) {
	if got := EncodeTextString("Part A-"); got != String("Part A-") {
		t.Errorf("expected ASCII to stay as is, got %q", got)
	}

	for _, s := range []string{"Café", "第一章", "Ωmega"} {
		encoded := EncodeTextString(s)
		if len(encoded) < 2 || encoded[0] != 0xFE || encoded[1] != 0xFF {
			t.Errorf("%q: expected a UTF-16BE byte order mark, got % X", s, []byte(encoded))
		}
		if got := DecodeTextString(encoded); got != s {
			t.Errorf("expected %q, got %q", s, got)
		}
	}
}
