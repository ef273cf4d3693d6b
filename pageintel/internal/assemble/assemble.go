// Package assemble combines fixed-schema values, the open side-map, and
// verified resource links into the final product record plus its
// provenance report.
//
// Assembly never fails: a run with every mandatory field missing still
// yields a record, flagged incomplete, because partial data is still
// useful for catalog presence tracking.
package assemble

import (
	"sort"
	"strconv"
	"strings"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

// Input carries everything a finished pipeline run produced.
type Input struct {
	URL            string
	Classification record.Classification

	// Fields is the normalized canonical field set (fixed and open alike).
	Fields []record.CanonicalField

	// Open is the side-map the schema expander admitted.
	Open map[string]record.CanonicalField

	Resources []record.ResourceLink

	Unresolved      []string
	Discarded       []record.Discarded
	SchemaConflicts []string
	SectionErrors   map[string]string

	Markdown   string
	RefVersion string
}

// Assemble builds the immutable product record and provenance report.
func Assemble(in Input) (*record.ProductRecord, *record.Report) {
	rec := &record.ProductRecord{
		URL:        in.URL,
		Family:     in.Classification.Family,
		Markdown:   in.Markdown,
		RefVersion: in.RefVersion,
		Incomplete: len(in.Unresolved) > 0,
	}

	for _, f := range in.Fields {
		bindFixed(rec, f)
	}

	if len(in.Open) > 0 {
		rec.Open = in.Open
	}

	if len(in.Resources) > 0 {
		rec.Resources = append([]record.ResourceLink(nil), in.Resources...)
		sort.Slice(rec.Resources, func(i, j int) bool {
			a, b := rec.Resources[i], rec.Resources[j]
			if a.Type != b.Type {
				return a.Type < b.Type
			}
			return a.URL < b.URL
		})
	}

	rep := &record.Report{
		URL:            in.URL,
		Family:         in.Classification.Family,
		Confidence:     in.Classification.Confidence,
		Unresolved:     append([]string(nil), in.Unresolved...),
		Discarded:      in.Discarded,
		SchemaConflict: in.SchemaConflicts,
		SectionErrors:  in.SectionErrors,
		Incomplete:     rec.Incomplete,
	}
	for _, f := range in.Fields {
		rep.Fields = append(rep.Fields, record.FieldProvenance{
			Name:       f.Name,
			Pass:       f.Pass,
			Confidence: f.Confidence,
		})
	}
	rep.SortFields()

	return rec, rep
}

// bindFixed maps a canonical field onto its fixed record attribute, when it
// has one. Numeric attributes that fail to parse stay unbound; the value is
// still visible through the provenance report.
func bindFixed(rec *record.ProductRecord, f record.CanonicalField) {
	switch f.Name {
	case "title":
		rec.Title = f.Value
	case "sku":
		rec.SKU = f.Value
	case "price_per_sqft":
		rec.PricePerSqFt = parseAmount(f.Value)
	case "price_per_box":
		rec.PricePerBox = parseAmount(f.Value)
	case "price_per_unit":
		rec.PricePerUnit = parseAmount(f.Value)
	case "coverage":
		rec.Coverage = parseAmount(f.Value)
	case "dimensions":
		rec.Dimensions = f.Value
	case "material":
		rec.Material = f.Value
	case "finish":
		rec.Finish = f.Value
	}
}

// parseAmount parses a displayed number, tolerating currency symbols,
// thousands separators, and trailing unit words ("287.04", "$1,287.04",
// "10.98 sq ft").
func parseAmount(s string) *float64 {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, ",", "")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
