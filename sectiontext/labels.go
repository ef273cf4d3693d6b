package sectiontext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LabeledValue is a "Label: value" pair found in spec tables, definition
// lists, or plain text.
type LabeledValue struct {
	Label string
	Value string
}

var labelLinePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 /()&.-]{0,40}?)\s*:\s+(.+)$`)

// LabeledValues extracts label/value pairs from a node subtree. It scans,
// in order: <dt>/<dd> pairs, table rows with two cells, and visible text
// lines of the form "Label: value". Duplicate labels keep the first value.
func LabeledValues(root *html.Node) []LabeledValue {
	var out []LabeledValue
	seen := make(map[string]bool)

	add := func(label, value string) {
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			return
		}
		key := strings.ToLower(label)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, LabeledValue{Label: label, Value: value})
	}

	// Definition lists.
	for _, dl := range AllByTag(root, atom.Dl) {
		var pending string
		for c := dl.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Dt:
				pending = Text(c)
			case atom.Dd:
				if pending != "" {
					add(pending, Text(c))
					pending = ""
				}
			}
		}
	}

	// Two-cell table rows.
	for _, tr := range AllByTag(root, atom.Tr) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, Text(c))
			}
		}
		if len(cells) == 2 {
			add(strings.TrimSuffix(cells[0], ":"), cells[1])
		}
	}

	// Plain "Label: value" text lines (list items, paragraphs, divs).
	for _, tag := range []atom.Atom{atom.Li, atom.P, atom.Span, atom.Div} {
		for _, n := range AllByTag(root, tag) {
			// Leaf-ish nodes only, to avoid matching entire containers.
			if n.FirstChild == nil || n.FirstChild != n.LastChild {
				continue
			}
			if m := labelLinePattern.FindStringSubmatch(Text(n)); m != nil {
				add(m[1], m[2])
			}
		}
	}

	return out
}
