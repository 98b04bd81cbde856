package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType is the kind of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, xref, trailer, n, f ...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

var tokenTypeNames = [...]string{
	TokenEOF:         "EOF",
	TokenComment:     "comment",
	TokenKeyword:     "keyword",
	TokenInteger:     "integer",
	TokenReal:        "real",
	TokenString:      "string",
	TokenHexString:   "hex string",
	TokenName:        "name",
	TokenArrayStart:  "'['",
	TokenArrayEnd:    "']'",
	TokenDictStart:   "'<<'",
	TokenDictEnd:     "'>>'",
	TokenIndirectRef: "'R'",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token. Pos is the offset of its first byte.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	if len(t.Value) == 0 {
		return t.Type.String()
	}
	return fmt.Sprintf("%s %q", t.Type, t.Value)
}

// Lexer splits PDF syntax into tokens
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a lexer reading from r. Positions start at 0.
func NewLexer(r io.Reader) *Lexer {
	return NewLexerAt(r, 0)
}

// NewLexerAt creates a lexer whose positions start at base, for readers
// positioned inside a larger file.
func NewLexerAt(r io.Reader, base int64) *Lexer {
	return &Lexer{reader: bufio.NewReader(r), pos: base}
}

// Offset returns the position of the next unread byte
func (l *Lexer) Offset() int64 {
	return l.pos
}

// NextToken returns the next token, skipping whitespace
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespace(); err != nil && err != io.EOF {
		return nil, err
	}

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch b {
	case '%':
		return l.readComment()
	case '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '<' {
			l.SkipBytes(2)
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '>' {
			l.SkipBytes(2)
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", start)
	case '/':
		return l.readName()
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	if isRegular(b) {
		return l.readKeyword()
	}
	return nil, fmt.Errorf("unexpected character %q at position %d", b, start)
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// skipWhitespace skips PDF whitespace: space, tab, LF, CR, FF and NUL
func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			return nil
		}
		l.readByte()
	}
}

// readComment reads from % to the end of the line
func (l *Lexer) readComment() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '\r' || b == '\n' {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: start}, nil
}

// readString reads a literal string, resolving escapes and balanced
// parentheses.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte() // (
	var buf bytes.Buffer
	depth := 1
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at position %d: %w", start, err)
		}
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
		case '\r':
			// EOL inside a string reads as LF
			if next, err := l.peek(); err == nil && next == '\n' {
				l.readByte()
			}
			b = '\n'
		case '\\':
			if err := l.readEscape(&buf); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteByte(b)
	}
}

func (l *Lexer) readEscape(buf *bytes.Buffer) error {
	next, err := l.readByte()
	if err != nil {
		return err
	}
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		// line continuation
		if p, err := l.peek(); err == nil && p == '\n' {
			l.readByte()
		}
	case '\n':
	default:
		if !isOctalDigit(next) {
			buf.WriteByte(next)
			return nil
		}
		val := next - '0'
		for i := 0; i < 2; i++ {
			p, err := l.peek()
			if err != nil || !isOctalDigit(p) {
				break
			}
			l.readByte()
			val = val*8 + (p - '0')
		}
		buf.WriteByte(val)
	}
	return nil
}

// readHexString reads <...>; the token value holds the hex digits only
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte() // <
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at position %d: %w", start, err)
		}
		if b == '>' {
			return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("invalid hex digit %q at position %d", b, l.pos-1)
		}
		buf.WriteByte(b)
	}
}

// readName reads /Name, decoding #xx escapes
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte() // /
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(b) {
			break
		}
		l.readByte()
		if b == '#' {
			hex, err := l.reader.Peek(2)
			if err == nil && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
				l.SkipBytes(2)
				continue
			}
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readNumber reads an integer or a real
func (l *Lexer) readNumber() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	isReal := false
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sign := (b == '-' || b == '+') && buf.Len() == 0
		if b == '.' && !isReal {
			isReal = true
		} else if !isDigit(b) && !sign {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: buf.Bytes(), Pos: start}, nil
}

// readKeyword reads a bare word such as obj, endobj, true or R
func (l *Lexer) readKeyword() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	value := buf.Bytes()
	if len(value) == 1 && value[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword: LF or CR LF. A lone CR is tolerated.
func (l *Lexer) SkipStreamEOL() error {
	b, err := l.peek()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		l.readByte()
	case '\r':
		l.readByte()
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
	}
	return nil
}

// ReadBytes reads exactly n raw bytes
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	read, err := io.ReadFull(l.reader, data)
	l.pos += int64(read)
	if err != nil {
		return data[:read], fmt.Errorf("expected %d bytes, got %d: %w", n, read, err)
	}
	return data, nil
}

// SkipBytes discards n bytes
func (l *Lexer) SkipBytes(n int) error {
	skipped, err := l.reader.Discard(n)
	l.pos += int64(skipped)
	return err
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isRegular reports whether b may appear inside a name or keyword
func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
