package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// WriteObject writes obj in PDF syntax. Dictionary keys are written in
// sorted order so output is deterministic.
func WriteObject(w io.Writer, obj Object) error {
	var buf bytes.Buffer
	appendObject(&buf, obj)
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatObject returns obj in PDF syntax
func FormatObject(obj Object) []byte {
	var buf bytes.Buffer
	appendObject(&buf, obj)
	return buf.Bytes()
}

// WriteIndirectObject writes "num gen obj ... endobj". A stream gets its
// /Length set from its data.
func WriteIndirectObject(w io.Writer, ref IndirectRef, obj Object) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Number, ref.Generation)
	appendObject(&buf, obj)
	buf.WriteString("\nendobj\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func appendObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		buf.WriteString(formatReal(float64(v)))
	case String:
		appendString(buf, []byte(v))
	case Name:
		appendName(buf, string(v))
	case Array:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			appendObject(buf, elem)
		}
		buf.WriteByte(']')
	case Dict:
		appendDict(buf, v)
	case *Stream:
		dict := v.Dict.Clone()
		dict["Length"] = Int(len(v.Data))
		appendDict(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	case IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	default:
		buf.WriteString(v.String())
	}
}

func appendDict(buf *bytes.Buffer, d Dict) {
	buf.WriteString("<<")
	for i, key := range d.Keys() {
		if i > 0 {
			buf.WriteByte(' ')
		}
		appendName(buf, key)
		buf.WriteByte(' ')
		appendObject(buf, d[key])
	}
	buf.WriteString(">>")
}

// formatReal avoids exponents, which PDF does not allow
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

// appendName writes /Name, escaping bytes outside the regular printable
// range as #xx.
func appendName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

// appendString writes a literal string when the bytes are printable and a
// hex string otherwise.
func appendString(buf *bytes.Buffer, s []byte) {
	printable := true
	for _, c := range s {
		if (c < ' ' || c > '~') && c != '\n' && c != '\r' && c != '\t' {
			printable = false
			break
		}
	}
	if !printable {
		fmt.Fprintf(buf, "<%X>", s)
		return
	}

	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}
