package views

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// dom wraps a parsed fragment with the few queries the tests need.
type dom struct {
	root *html.Node
}

func parse(t *testing.T, markup string) dom {
	t.Helper()
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("failed to parse markup: %v", err)
	}
	return dom{root: root}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func (d dom) all(match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

func (d dom) allByTestID(id string) []*html.Node {
	return d.all(func(n *html.Node) bool {
		v, ok := attr(n, "data-testid")
		return ok && v == id
	})
}

func (d dom) byTestID(t *testing.T, id string) *html.Node {
	t.Helper()
	nodes := d.allByTestID(id)
	if len(nodes) != 1 {
		t.Fatalf("expected one element with data-testid=%q, found %d", id, len(nodes))
	}
	return nodes[0]
}

func (d dom) byClass(class string) []*html.Node {
	return d.all(func(n *html.Node) bool { return hasClass(n, class) })
}

func (d dom) text() string {
	return text(d.root)
}
