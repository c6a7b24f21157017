package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// voidElements never take children, so they are not pushed on the open stack.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Document is an immutable parsed page.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from markup.
//
// The tree mirrors the markup as written: elements nest exactly as their
// tags open and close, and no implied html/body/table wrappers are
// inserted. Snapshot pages and fragments like a bare <tbody> therefore keep
// the shape the extraction paths were written against. An end tag closes the
// nearest open element with the same name; stray end tags are dropped.
func Parse(r io.Reader) (*Document, error) {
	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	z := html.NewTokenizer(r)

	for {
		tt := z.Next()
		top := stack[len(stack)-1]

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("tokenize markup: %w", err)
			}
			return &Document{doc: goquery.NewDocumentFromNode(root)}, nil

		case html.TextToken:
			appendText(top, string(z.Text()))

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			node := &html.Node{
				Type:     html.ElementNode,
				Data:     tok.Data,
				DataAtom: tok.DataAtom,
				Attr:     tok.Attr,
			}
			top.AppendChild(node)
			if tt == html.StartTagToken && !voidElements[tok.Data] {
				stack = append(stack, node)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == tag {
					stack = stack[:i]
					break
				}
			}

		case html.CommentToken:
			top.AppendChild(&html.Node{Type: html.CommentNode, Data: string(z.Text())})

		case html.DoctypeToken:
			top.AppendChild(&html.Node{Type: html.DoctypeNode, Data: string(z.Text())})
		}
	}
}

// ParseString is Parse over an in-memory string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

func appendText(parent *html.Node, text string) {
	if text == "" {
		return
	}
	if last := parent.LastChild; last != nil && last.Type == html.TextNode {
		last.Data += text
		return
	}
	parent.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Selection returns the document root for structural navigation.
func (d *Document) Selection() *goquery.Selection {
	if d == nil || d.doc == nil {
		return &goquery.Selection{}
	}
	return d.doc.Selection
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node {
	if d == nil || d.doc == nil || len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// Resolve evaluates path from the document root.
func (d *Document) Resolve(path Path) (*goquery.Selection, bool) {
	return path.Resolve(d.Selection())
}

// Text returns the trimmed text content of the whole document.
func (d *Document) Text() string {
	return NormalizeText(d.Selection().Text())
}
