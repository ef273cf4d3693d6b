// Package parser implements the family-specific extraction strategies.
//
// Each parser consumes whatever sections are available and emits raw field
// observations plus the mandatory fields it could not resolve. Extraction
// runs up to three passes in fixed priority order — embedded structured
// product data, family-specific regex patterns, generic labeled-value
// heuristics — and stops early once the family's mandatory fields are all
// satisfied.
//
// Parsers never fabricate values: a field with no observation from any
// pass is reported as unresolved, not defaulted.
package parser

import (
	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

// Canonical maps a raw field spelling to its canonical name. The parser
// only needs it to check mandatory-field satisfaction; the normalizer owns
// the authoritative collapse.
type Canonical func(string) string

// Parser is the common extraction contract, one implementation per family.
type Parser interface {
	Family() record.Family
	Extract(b *pagefetch.Bundle) (obs []record.Observation, unresolved []string)
}

// ForFamily returns the parser for a family. Unknown (and any unrecognized
// label) gets the default structured-data-only parser.
func ForFamily(f record.Family, canon Canonical) Parser {
	switch f {
	case record.FamilyTile:
		return newFamilyParser(tileSpec, canon)
	case record.FamilyGrout:
		return newFamilyParser(groutSpec, canon)
	case record.FamilyTrimMolding:
		return newFamilyParser(trimMoldingSpec, canon)
	case record.FamilyLuxuryVinyl:
		return newFamilyParser(luxuryVinylSpec, canon)
	case record.FamilyInstallationTool:
		return newFamilyParser(installationToolSpec, canon)
	}
	return newDefaultParser(canon)
}

// familySpec is the static tuning table of one family parser.
type familySpec struct {
	family record.Family

	// mandatory lists the canonical field names the family considers
	// required; shortfall flags the record incomplete.
	mandatory []string

	// priceSlot is the canonical name a displayed price with no unit
	// phrasing maps to (per-box for area goods, per-unit for the rest).
	priceSlot string

	patterns []fieldPattern
}

type familyParser struct {
	spec  familySpec
	canon Canonical
}

func newFamilyParser(spec familySpec, canon Canonical) *familyParser {
	return &familyParser{spec: spec, canon: canon}
}

func (p *familyParser) Family() record.Family { return p.spec.family }

func (p *familyParser) Extract(b *pagefetch.Bundle) ([]record.Observation, []string) {
	obs := structuredPass(b, p.spec.priceSlot)
	if missing := p.missing(obs); len(missing) == 0 {
		return obs, nil
	}

	obs = append(obs, patternPass(b, p.spec.patterns)...)
	if missing := p.missing(obs); len(missing) == 0 {
		return obs, nil
	}

	obs = append(obs, heuristicPass(b)...)
	return obs, p.missing(obs)
}

// missing returns the mandatory canonical names with no observation yet.
func (p *familyParser) missing(obs []record.Observation) []string {
	seen := make(map[string]bool, len(obs))
	for _, o := range obs {
		if o.Value != "" {
			seen[p.canon(o.Field)] = true
		}
	}
	var out []string
	for _, name := range p.spec.mandatory {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// defaultParser is the fallback when classification confidence is
// insufficient: a minimal structured-data pass with no family tuning.
type defaultParser struct {
	canon Canonical
}

func newDefaultParser(canon Canonical) *defaultParser {
	return &defaultParser{canon: canon}
}

func (p *defaultParser) Family() record.Family { return record.FamilyUnknown }

func (p *defaultParser) Extract(b *pagefetch.Bundle) ([]record.Observation, []string) {
	obs := structuredPass(b, "price_per_unit")
	seen := make(map[string]bool, len(obs))
	for _, o := range obs {
		seen[p.canon(o.Field)] = true
	}
	var unresolved []string
	for _, name := range []string{"title", "sku"} {
		if !seen[name] {
			unresolved = append(unresolved, name)
		}
	}
	return obs, unresolved
}
