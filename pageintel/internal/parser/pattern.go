package parser

import (
	"regexp"
	"strings"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/sectiontext"
)

// fieldPattern is one family-specific regex extraction: the first match of
// re in the section text yields an observation for field. Patterns are
// tried in table order; a specific price phrasing listed before the bare
// price pattern therefore wins the first-seen tie in the normalizer.
// When reject is set, a match whose trailing text hits it is skipped: a
// value the page labels with some other unit must not be claimed for this
// field.
type fieldPattern struct {
	field     string
	re        *regexp.Regexp
	group     int
	transform func(string) string
	reject    *regexp.Regexp
}

// patternPass applies the family's regex table to the flattened section
// text. Every match is emitted; the normalizer collapses duplicates.
func patternPass(b *pagefetch.Bundle, patterns []fieldPattern) []record.Observation {
	text := flatText(b)
	if text == "" {
		return nil
	}
	var obs []record.Observation
	for _, p := range patterns {
		val, ok := firstMatch(text, p)
		if !ok {
			continue
		}
		if p.transform != nil {
			val = p.transform(val)
		}
		if val == "" {
			continue
		}
		obs = append(obs, record.Obs(p.field, val, record.PassPattern))
	}
	return obs
}

// firstMatch returns the first occurrence of p.re in text that survives
// the reject check on the text immediately following the match.
func firstMatch(text string, p fieldPattern) (string, bool) {
	for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
		g := 2 * p.group
		if g+1 >= len(idx) || idx[g] < 0 {
			continue
		}
		if p.reject != nil {
			tail := text[idx[1]:min(idx[1]+16, len(text))]
			if p.reject.MatchString(tail) {
				continue
			}
		}
		return strings.TrimSpace(text[idx[g]:idx[g+1]]), true
	}
	return "", false
}

// flatText joins the plain text of every successful section, specification
// section first since it carries the densest signal.
func flatText(b *pagefetch.Bundle) string {
	var parts []string
	appendSection := func(name string) {
		s, ok := b.Get(name)
		if !ok {
			return
		}
		t := s.Text
		if t == "" {
			if doc, err := sectiontext.Parse(s.HTML); err == nil {
				t = sectiontext.CleanText(doc)
			}
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	appendSection("specifications")
	for _, name := range b.Names() {
		if name != "specifications" {
			appendSection(name)
		}
	}
	return strings.Join(parts, "\n")
}

// numeric strips currency commas from a captured number.
func numeric(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func lower(s string) string { return strings.ToLower(s) }

// Shared patterns reused across family tables.
var (
	reCoveragePerBox = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*sq\.?\s*ft\.?\s*(?:/|per)\s*(?:box|carton)`)
	rePricePerSqFt   = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d+)?)\s*(?:/|per)\s*sq\.?\s*ft`)
	rePricePerBox    = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d+)?)\s*(?:/|per)\s*(?:box|carton)`)
	rePricePerEach   = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d+)?)\s*(?:(?:/|per)\s*)?(?:each|piece|bag|pail)`)
	rePriceBare      = regexp.MustCompile(`\$\s*([\d,]+\.\d{2})`)
	reWeightLb       = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:lb|lbs|pound)s?\b`)
	reDimensions     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s*(?:in\.?|")?\s*x\s*\d+(?:\.\d+)?\s*(?:in\.?|")?)`)

	// A bare dollar amount immediately followed by per-unit phrasing is
	// some other field's price, not this family's price slot.
	rePerUnitSuffix = regexp.MustCompile(`(?i)^\s*(?:/|per\b|each\b)`)
)
