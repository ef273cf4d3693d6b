// Package normalize collapses raw field observations from all extraction
// passes into one canonical field set.
//
// Observations are grouped by a canonicalization function (lowercase,
// separators stripped, known aliases mapped); within each group the
// highest-priority source pass wins, ties break by first-seen order.
package normalize

import (
	"sort"
	"strings"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/refdata"
)

// Canonicalizer maps raw field spellings onto canonical names. It is the
// single naming authority shared by the normalizer and the schema expander.
type Canonicalizer struct {
	aliases map[string]string
}

// New builds a canonicalizer over a squashed-alias table from the
// reference-data snapshot.
func New(aliases map[string]string) *Canonicalizer {
	return &Canonicalizer{aliases: aliases}
}

// Canonical returns the canonical name for a raw field spelling. Known
// aliases map through the table; unknown spellings derive a snake_case
// name, so "boxWeight" and "box_weight" converge even without an alias
// entry.
func (c *Canonicalizer) Canonical(field string) string {
	if canonical, ok := c.aliases[refdata.Squash(field)]; ok {
		return canonical
	}
	return snakeCase(field)
}

// Normalize collapses observations into canonical fields, at most one per
// canonical name. Same-tier disagreements keep the first value and record
// the loser as a discarded alternative for diagnostics.
func (c *Canonicalizer) Normalize(obs []record.Observation) ([]record.CanonicalField, []record.Discarded) {
	chosen := make(map[string]record.Observation)
	var discarded []record.Discarded

	for _, o := range obs {
		o.Value = strings.TrimSpace(o.Value)
		if o.Value == "" {
			continue
		}
		name := c.Canonical(o.Field)
		cur, ok := chosen[name]
		if !ok {
			chosen[name] = o
			continue
		}
		switch {
		case o.Pass > cur.Pass:
			chosen[name] = o
		case o.Pass == cur.Pass && o.Value != cur.Value:
			discarded = append(discarded, record.Discarded{Name: name, Value: o.Value, Pass: o.Pass})
		}
		// Lower-priority duplicates and same-value repeats drop silently.
	}

	fields := make([]record.CanonicalField, 0, len(chosen))
	for name, o := range chosen {
		fields = append(fields, record.CanonicalField{
			Name:       name,
			Value:      o.Value,
			Pass:       o.Pass,
			Confidence: o.Confidence,
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, discarded
}

// snakeCase derives a canonical spelling for a field with no alias entry:
// camelCase boundaries become underscores, separators collapse, everything
// lowercases.
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	lastUnderscore := true // suppress a leading underscore
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			// Break only at a lower-to-upper boundary, so acronyms like
			// "SKU" stay one word.
			if !lastUnderscore && i > 0 && isLowerOrDigit(s[i-1]) {
				b.WriteByte('_')
			}
			b.WriteByte(c + ('a' - 'A'))
			lastUnderscore = false
		case c == ' ' || c == '-' || c == '_' || c == '\t' || c == '.' || c == '/':
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
		default:
			b.WriteByte(c)
			lastUnderscore = false
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func isLowerOrDigit(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
