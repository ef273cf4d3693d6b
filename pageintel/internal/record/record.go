// Package record defines the value types shared by every stage of the
// extraction pipeline: page families, extraction passes, field observations,
// canonical fields, and the assembled product record.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Family is one of the closed set of structurally distinct product page
// types the catalog publishes.
type Family string

const (
	FamilyTile             Family = "tile"
	FamilyGrout            Family = "grout"
	FamilyTrimMolding      Family = "trim_molding"
	FamilyLuxuryVinyl      Family = "luxury_vinyl"
	FamilyInstallationTool Family = "installation_tool"
	FamilyUnknown          Family = "unknown"
)

// Families returns the classifiable families in fixed evaluation order.
// Unknown is not classifiable; it is the fallback label.
func Families() []Family {
	return []Family{
		FamilyTile,
		FamilyGrout,
		FamilyTrimMolding,
		FamilyLuxuryVinyl,
		FamilyInstallationTool,
	}
}

// Valid reports whether f is a recognized family label.
func (f Family) Valid() bool {
	switch f {
	case FamilyTile, FamilyGrout, FamilyTrimMolding, FamilyLuxuryVinyl,
		FamilyInstallationTool, FamilyUnknown:
		return true
	}
	return false
}

// Pass identifies which extraction pass produced an observation. Higher
// values outrank lower ones when the normalizer collapses duplicates.
type Pass int

const (
	PassHeuristic Pass = iota + 1
	PassPattern
	PassStructured
)

func (p Pass) String() string {
	switch p {
	case PassStructured:
		return "structured"
	case PassPattern:
		return "pattern"
	case PassHeuristic:
		return "heuristic"
	}
	return fmt.Sprintf("pass(%d)", int(p))
}

// Confidence returns the base confidence assigned to values from this pass.
func (p Pass) Confidence() float64 {
	switch p {
	case PassStructured:
		return 0.9
	case PassPattern:
		return 0.7
	case PassHeuristic:
		return 0.5
	}
	return 0
}

func (p Pass) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "structured":
		*p = PassStructured
	case "pattern":
		*p = PassPattern
	case "heuristic":
		*p = PassHeuristic
	default:
		return fmt.Errorf("record: unknown pass %q", s)
	}
	return nil
}

// Observation is a single raw (field, value, pass, confidence) tuple emitted
// by a family parser. Several observations may describe the same semantic
// field under different spellings; the normalizer collapses them.
type Observation struct {
	Field      string
	Value      string
	Pass       Pass
	Confidence float64
}

// Obs builds an observation with the pass's base confidence.
func Obs(field, value string, pass Pass) Observation {
	return Observation{Field: field, Value: value, Pass: pass, Confidence: pass.Confidence()}
}

// CanonicalField is the single de-duplicated representation of a semantic
// attribute after alias collapsing.
type CanonicalField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Pass       Pass    `json:"pass"`
	Confidence float64 `json:"confidence"`
}

// Discarded is a same-tier alternative dropped during normalization. It is
// kept for diagnostics only and never reaches the product record.
type Discarded struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Pass  Pass   `json:"pass"`
}

// Classification is the page classifier's verdict for one run.
type Classification struct {
	Family     Family  `json:"family"`
	Confidence float64 `json:"confidence"`
	Matched    int     `json:"matched"` // count of matched features
}

// ResourceLink is an auxiliary document attached to a product record.
// Verified is true only after a reachability check succeeded.
type ResourceLink struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// FixedFields is the set of canonical names that map to fixed product
// record attributes rather than the open side-map.
var FixedFields = map[string]bool{
	"title":          true,
	"sku":            true,
	"price_per_sqft": true,
	"price_per_box":  true,
	"price_per_unit": true,
	"coverage":       true,
	"dimensions":     true,
	"material":       true,
	"finish":         true,
}

// ProductRecord is the final output of one pipeline run. Re-extraction of
// the same URL replaces the prior record wholesale (upsert by URL).
//
// The record deliberately carries no timestamps or run identifiers: two runs
// over identical section content must marshal to identical bytes.
type ProductRecord struct {
	SKU    string `json:"sku,omitempty"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Family Family `json:"family"`

	// The three price representations are mutually non-exclusive and all
	// optional; a page may display any combination.
	PricePerSqFt *float64 `json:"price_per_sqft,omitempty"`
	PricePerBox  *float64 `json:"price_per_box,omitempty"`
	PricePerUnit *float64 `json:"price_per_unit,omitempty"`

	Coverage   *float64 `json:"coverage,omitempty"` // sq ft per container
	Dimensions string   `json:"dimensions,omitempty"`
	Material   string   `json:"material,omitempty"`
	Finish     string   `json:"finish,omitempty"`

	// Markdown is a cleaned markdown rendering of the main section, kept
	// for downstream retrieval consumers.
	Markdown string `json:"markdown,omitempty"`

	// Open holds canonical fields outside the fixed schema, keyed by
	// canonical name.
	Open map[string]CanonicalField `json:"open,omitempty"`

	Resources []ResourceLink `json:"resources,omitempty"`

	// Incomplete is set when any mandatory family field stayed unresolved.
	Incomplete bool `json:"incomplete"`

	// RefVersion is the reference-data snapshot version used by the run.
	RefVersion string `json:"ref_version,omitempty"`
}

// Marshal renders the record as deterministic JSON: map keys sort, slices
// are pre-sorted by the assembler.
func (r *ProductRecord) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// FieldProvenance records which pass produced one resolved field.
type FieldProvenance struct {
	Name       string  `json:"name"`
	Pass       Pass    `json:"pass"`
	Confidence float64 `json:"confidence"`
}

// Report is the per-run provenance report: what was resolved, by which
// pass, and what stayed missing. It accompanies every record.
type Report struct {
	URL            string            `json:"url"`
	Family         Family            `json:"family"`
	Confidence     float64           `json:"confidence"`
	Fields         []FieldProvenance `json:"fields,omitempty"`
	Unresolved     []string          `json:"unresolved,omitempty"`
	Discarded      []Discarded       `json:"discarded,omitempty"`
	SectionErrors  map[string]string `json:"section_errors,omitempty"`
	SchemaConflict []string          `json:"schema_conflicts,omitempty"`
	Incomplete     bool              `json:"incomplete"`
}

// SortFields orders the provenance entries by field name for stable output.
func (r *Report) SortFields() {
	sort.Slice(r.Fields, func(i, j int) bool { return r.Fields[i].Name < r.Fields[j].Name })
	sort.Strings(r.Unresolved)
}
