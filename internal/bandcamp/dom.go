package bandcamp

import (
	"strings"

	"golang.org/x/net/html"
)

// matcher selects element nodes of a parsed document.
type matcher func(n *html.Node) bool

// elementWithAttr matches elements named tag (any tag if empty) that carry key.
func elementWithAttr(tag, key string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || (tag != "" && n.Data != tag) {
			return false
		}
		_, ok := attr(n, key)
		return ok
	}
}

// elementWithAttrValue matches elements named tag whose key attribute equals value.
func elementWithAttrValue(tag, key, value string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || (tag != "" && n.Data != tag) {
			return false
		}
		v, ok := attr(n, key)
		return ok && v == value
	}
}

// childOf matches nodes accepted by m whose parent is accepted by parent.
func childOf(parent, m matcher) matcher {
	return func(n *html.Node) bool {
		return m(n) && n.Parent != nil && parent(n.Parent)
	}
}

// find returns the first node in document order accepted by m.
func find(root *html.Node, m matcher) *html.Node {
	if m(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, m); n != nil {
			return n
		}
	}
	return nil
}

// findAll returns every node in document order accepted by m.
func findAll(root *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if m(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// text returns the concatenated text children of n.
func text(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func parseDocument(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// FirstLink returns the href of the first anchor element in markup.
//
// Used on delivery emails, whose only relevant link is the download page.
func FirstLink(markup string) (string, bool) {
	doc, err := parseDocument(markup)
	if err != nil {
		return "", false
	}
	a := find(doc, elementWithAttr("a", "href"))
	if a == nil {
		return "", false
	}
	href, _ := attr(a, "href")
	return href, href != ""
}
