package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser needs one for
// streams whose /Length is an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from lexer tokens with one token of lookahead
type Parser struct {
	lexer    *Lexer
	current  *Token
	peek     *Token
	err      error
	resolver ReferenceResolver
}

// NewParser creates a parser reading from r
func NewParser(r io.Reader) *Parser {
	return newParser(NewLexer(r))
}

// NewParserAt creates a parser whose token positions start at base
func NewParserAt(r io.Reader, base int64) *Parser {
	return newParser(NewLexerAt(r, base))
}

func newParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.advance()
	p.advance()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// advance shifts the lookahead. After the stream keyword the lexer is left
// in place, because binary data follows.
func (p *Parser) advance() {
	p.current = p.peek
	if p.current != nil && p.current.Type == TokenKeyword && string(p.current.Value) == "stream" {
		p.peek = nil
		return
	}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			p.err = err
			p.peek = nil
			return
		}
		if tok.Type != TokenComment {
			p.peek = tok
			return
		}
	}
}

func (p *Parser) isKeyword(word string) bool {
	return p.current != nil && p.current.Type == TokenKeyword && string(p.current.Value) == word
}

// ParseObject parses the next direct object or indirect reference
func (p *Parser) ParseObject() (Object, error) {
	if p.current == nil {
		if p.err != nil {
			return nil, p.err
		}
		return nil, fmt.Errorf("unexpected end of input")
	}

	tok := p.current
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			p.advance()
			return Null{}, nil
		case "true":
			p.advance()
			return Bool(true), nil
		case "false":
			p.advance()
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at position %d", tok.Value, tok.Pos)

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at position %d: %w", tok.Value, tok.Pos, err)
		}
		p.advance()
		return Real(val), nil

	case TokenString:
		p.advance()
		return String(tok.Value), nil

	case TokenHexString:
		p.advance()
		return String(decodeHexDigits(tok.Value)), nil

	case TokenName:
		p.advance()
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected %v at position %d", tok.Type, tok.Pos)
}

// decodeHexDigits converts validated hex digits; an odd trailing digit is
// padded with 0.
func decodeHexDigits(digits []byte) []byte {
	out := make([]byte, (len(digits)+1)/2)
	for i, d := range digits {
		if i%2 == 0 {
			out[i/2] = hexValue(d) << 4
		} else {
			out[i/2] |= hexValue(d)
		}
	}
	return out
}

// parseNumber parses an integer, a malformed number as a real, or an
// indirect reference "num gen R".
func (p *Parser) parseNumber() (Object, error) {
	tok := p.current
	first, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", tok.Value, tok.Pos)
		}
		p.advance()
		return Real(f), nil
	}

	if p.peek != nil && p.peek.Type == TokenInteger {
		if gen, err := strconv.ParseInt(string(p.peek.Value), 10, 64); err == nil {
			p.advance()
			if p.peek != nil && p.peek.Type == TokenIndirectRef {
				p.advance()
				p.advance()
				return IndirectRef{Number: int(first), Generation: int(gen)}, nil
			}
			// the second integer is now current and stays unparsed
			return Int(first), nil
		}
	}

	p.advance()
	return Int(first), nil
}

func (p *Parser) parseArray() (Object, error) {
	p.advance() // [
	arr := Array{}
	for {
		if p.current == nil {
			return nil, fmt.Errorf("unexpected end of input in array")
		}
		switch p.current.Type {
		case TokenArrayEnd:
			p.advance()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	p.advance() // <<
	dict := make(Dict)
	for {
		if p.current == nil {
			return nil, fmt.Errorf("unexpected end of input in dictionary")
		}
		switch p.current.Type {
		case TokenDictEnd:
			p.advance()
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key, got %v at position %d", p.current.Type, p.current.Pos)
		}
		key := string(p.current.Value)
		p.advance()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		// a null value is equivalent to an absent entry
		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses "num gen obj ... endobj", including streams
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("obj") {
		return nil, fmt.Errorf("expected 'obj' keyword, got %v", p.current)
	}
	p.advance()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	if p.isKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d %d stream: %w", num, gen, err)
		}
		obj = stream
	}

	// Some writers omit endobj before the next object; accept that.
	if p.isKeyword("endobj") {
		p.advance()
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func (p *Parser) expectInt(what string) (int, error) {
	if p.current == nil || p.current.Type != TokenInteger {
		return 0, fmt.Errorf("expected %s, got %v", what, p.current)
	}
	n, err := strconv.Atoi(string(p.current.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", what, err)
	}
	p.advance()
	return n, nil
}

// parseStream reads /Length bytes after the stream keyword
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}

	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("missing data after stream keyword: %w", err)
	}
	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("reading stream data: %w", err)
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		return nil, fmt.Errorf("expected 'endstream', got %v", tok)
	}

	p.peek = nil
	p.advance()
	p.advance()
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, error) {
	var length Object = dict.Get("Length")
	if ref, ok := length.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect stream length %v needs a resolver", ref)
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("resolving stream length: %w", err)
		}
		length = resolved
	}
	n, ok := length.(Int)
	if !ok {
		return 0, fmt.Errorf("invalid stream length %v", length)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative stream length %d", n)
	}
	return int(n), nil
}
