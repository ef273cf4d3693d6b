// Package pagefetch defines the section-fetch collaborator contract of the
// extraction pipeline and provides an HTTP implementation.
//
// A product page is fetched as named sections ("main", "specifications",
// "resources"); each section independently succeeds or fails, and the
// pipeline proceeds with whatever is present.
package pagefetch

import (
	"context"
	"sort"
)

// Section is one independently fetched logical part of a product page.
type Section struct {
	Name string `json:"name"`
	HTML string `json:"html"`
	Text string `json:"text,omitempty"` // optional plain-text rendering
	OK   bool   `json:"ok"`
	Err  string `json:"err,omitempty"` // failure reason when !OK
}

// Bundle is the named-section content for one URL. It is owned by a single
// pipeline run and discarded after record assembly.
type Bundle struct {
	URL      string             `json:"url"`
	Sections map[string]Section `json:"sections"`
}

// NewBundle returns an empty bundle for url.
func NewBundle(url string) *Bundle {
	return &Bundle{URL: url, Sections: make(map[string]Section)}
}

// Get returns the named section and whether it fetched successfully.
func (b *Bundle) Get(name string) (Section, bool) {
	s, ok := b.Sections[name]
	return s, ok && s.OK
}

// OKCount returns the number of successfully fetched sections.
func (b *Bundle) OKCount() int {
	n := 0
	for _, s := range b.Sections {
		if s.OK {
			n++
		}
	}
	return n
}

// Names returns all section names in sorted order.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Sections))
	for name := range b.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Adapter supplies named content sections for a product URL.
//
// Implementations must return a Bundle even when every section failed;
// an error is reserved for misuse (invalid or disallowed URL).
type Adapter interface {
	FetchSections(ctx context.Context, url string) (*Bundle, error)
}
