// Package outlinemd converts outlines to and from Markdown.
//
// An outline is a nested bullet list. Each item is a link whose target
// names the one-based page, the way PDF open parameters do:
//
//	- [Preface](#page=1)
//	- [Chapter 1](#page=3)
//	  - [Section 1.1](#page=4)
//
// Anything outside lists, such as headings or paragraphs, is ignored by
// Parse.
package outlinemd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/tsawler/pagenum/model"
)

const pagePrefix = "#page="

// Format renders o as a Markdown list
func Format(o *model.Outline) string {
	var buf bytes.Buffer
	Write(&buf, o)
	return buf.String()
}

// Write renders o as a Markdown list to w
func Write(w io.Writer, o *model.Outline) error {
	var err error
	o.Walk(func(n *model.Node, depth int) bool {
		if err != nil {
			return false
		}
		b, ok := n.Bookmark()
		if !ok {
			return true
		}
		_, err = fmt.Fprintf(w, "%s- [%s](%s%d)\n", strings.Repeat("  ", depth-1), escape(b.Title), pagePrefix, b.PageIndex+1)
		return err == nil
	})
	return err
}

// inlineMarkers are the characters that can open or close an inline
// construct (emphasis, code span, link, autolink, raw HTML, entity).
const inlineMarkers = "\\`*_[]<>&!~"

// escape backslash-escapes inline markers so a title parses back as plain
// text. Line breaks become spaces.
func escape(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r == '\n' || r == '\r':
			sb.WriteByte(' ')
		case strings.ContainsRune(inlineMarkers, r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Parse reads the bullet lists of src into a new outline
func Parse(src []byte) (*model.Outline, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	outline := model.NewOutline()
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		if list, ok := child.(*ast.List); ok {
			if err := parseList(list, src, outline.Root()); err != nil {
				return nil, err
			}
		}
	}
	return outline, nil
}

func parseList(list *ast.List, src []byte, parent *model.Node) error {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var node *model.Node
		for block := item.FirstChild(); block != nil; block = block.NextSibling() {
			switch b := block.(type) {
			case *ast.List:
				if node == nil {
					return fmt.Errorf("outlinemd: nested list without a parent item")
				}
				if err := parseList(b, src, node); err != nil {
					return err
				}
			case *ast.Paragraph, *ast.TextBlock:
				if node != nil {
					continue
				}
				bm, err := bookmark(block, src)
				if err != nil {
					return err
				}
				node = model.NewNode(bm)
				parent.AddAsLastChild(node)
			}
		}
	}
	return nil
}

// bookmark extracts the first #page= link of a list item's text
func bookmark(block ast.Node, src []byte) (model.Bookmark, error) {
	var link *ast.Link
	ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if l, ok := n.(*ast.Link); ok && entering && link == nil {
			if strings.HasPrefix(string(l.Destination), pagePrefix) {
				link = l
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if link == nil {
		return model.Bookmark{}, fmt.Errorf("outlinemd: item %q has no %sN link", plainText(block, src), pagePrefix)
	}

	page, err := strconv.Atoi(strings.TrimPrefix(string(link.Destination), pagePrefix))
	if err != nil || page < 1 {
		return model.Bookmark{}, fmt.Errorf("outlinemd: invalid page in %q", link.Destination)
	}
	return model.Bookmark{Title: plainText(link, src), PageIndex: page - 1}, nil
}

// plainText concatenates the text below n
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(util.UnescapePunctuations(t.Segment.Value(src)))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
