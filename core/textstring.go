package core

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// pdfDocHigh maps the PDFDocEncoding bytes that differ from Latin-1.
// Zero marks an undefined code.
var pdfDocHigh = map[byte]rune{
	0x18: '˘', 0x19: 'ˇ', 0x1A: 'ˆ', 0x1B: '˙',
	0x1C: '˝', 0x1D: '˛', 0x1E: '˚', 0x1F: '˜',
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…',
	0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰',
	0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ',
	0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł',
	0x9C: 'œ', 0x9D: 'š', 0x9E: 'ž', 0x9F: 0,
	0xA0: '€', 0xAD: 0,
}

// DecodeTextString converts a PDF text string (page label prefixes,
// outline titles) to UTF-8. UTF-16BE and UTF-8 strings are recognized by
// their byte order mark; anything else is PDFDocEncoding.
func DecodeTextString(s String) string {
	b := []byte(s)
	switch {
	case bytes.HasPrefix(b, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err == nil {
			return strings.TrimRight(string(out), "\x00")
		}
	case bytes.HasPrefix(b, bomUTF8):
		if utf8.Valid(b[3:]) {
			return string(b[3:])
		}
	}

	var sb strings.Builder
	for _, c := range b {
		if r, ok := pdfDocHigh[c]; ok {
			if r != 0 {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(utf8.RuneError)
			}
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// EncodeTextString converts UTF-8 text to a PDF text string. Plain ASCII
// is kept as is; everything else becomes UTF-16BE with a byte order mark.
func EncodeTextString(s string) String {
	ascii := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || (c < ' ' && c != '\n' && c != '\r' && c != '\t') {
			ascii = false
			break
		}
	}
	if ascii {
		return String(s)
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return String(s)
	}
	return String(out)
}
