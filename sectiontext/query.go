package sectiontext

import (
	"strings"

	"golang.org/x/net/html"
)

// QueryAll returns all nodes matching a simple CSS selector.
// Supported:
//   - tag: "article", "main", "div"
//   - .class: ".product-specs"
//   - #id: "#resources"
//   - tag.class, tag#id
//   - tag[attr], tag[attr=val]
//   - combinations separated by space (descendant combinator)
//
// Multiple comma-separated selectors are tried left to right; the first
// selector with matches wins.
func QueryAll(doc *html.Node, selector string) []*html.Node {
	for _, alt := range strings.Split(selector, ",") {
		parts := strings.Fields(alt)
		if len(parts) == 0 {
			continue
		}
		matches := matchSimple(doc, parts[0])
		for i := 1; i < len(parts); i++ {
			var next []*html.Node
			for _, parent := range matches {
				next = append(next, matchSimple(parent, parts[i])...)
			}
			matches = next
		}
		if len(matches) > 0 {
			return matches
		}
	}
	return nil
}

// QueryOne returns the first node matching selector, or nil.
func QueryOne(doc *html.Node, selector string) *html.Node {
	matches := QueryAll(doc, selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesSelector(n, m) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if s.tag != "" && n.Data != s.tag {
		return false
	}

	if s.id != "" && Attr(n, "id") != s.id {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range strings.Fields(Attr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		val := Attr(n, s.attrKey)
		if s.attrVal != "" {
			if val != s.attrVal {
				return false
			}
		} else if !hasAttr(n, s.attrKey) {
			return false
		}
	}

	return true
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
