package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed node tree together with the listeners registered on it.
// The zero value with a Root is ready to use.
type Document struct {
	Root      *html.Node
	listeners map[*html.Node][]listener
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		Root:      root,
		listeners: make(map[*html.Node][]listener),
	}
}

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseList parses markup as the content of a <ul>, e.g. the output of
// template.Show. The fragment nodes become children of a document node.
func ParseList(markup string) (*Document, error) {
	context := &html.Node{Type: html.ElementNode, Data: "ul", DataAtom: atom.Ul}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return NewDocument(root), nil
}

// QS returns the first descendant of scope matching selector, nil if none matches.
// A nil scope searches the whole document.
func (d *Document) QS(selector string, scope *html.Node) (*html.Node, error) {
	nodes, err := d.QSA(selector, scope)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// QSA returns all descendants of scope matching selector in document order.
// The scope itself is never part of the result.
func (d *Document) QSA(selector string, scope *html.Node) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	if scope == nil {
		scope = d.Root
	}
	var out []*html.Node
	for _, n := range sel.MatchAll(scope) {
		if n != scope {
			out = append(out, n)
		}
	}
	return out, nil
}

// Parent returns the closest ancestor of n (n excluded) with the tag,
// compared case-insensitively. Returns nil if no ancestor matches.
func Parent(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, tag) {
			return p
		}
	}
	return nil
}

// Attr returns the value of an attribute of n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}
