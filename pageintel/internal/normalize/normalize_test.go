package normalize

import (
	"testing"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/refdata"
)

func newTestCanonicalizer() *Canonicalizer {
	return New(refdata.Default().Aliases)
}

func TestCanonical(t *testing.T) {
	c := newTestCanonicalizer()
	tests := []struct{ in, want string }{
		{"boxWeight", "box_weight"},     // alias table
		{"box_weight", "box_weight"},    // already canonical
		{"Box Weight", "box_weight"},    // squash handles spaces
		{"Colour", "color"},             // alias
		{"weight", "weight"},            // bare item weight is not box_weight
		{"Glaze Finish", "glaze_finish"}, // no alias: derived
		{"glazeFinish", "glaze_finish"},  // derived, camelCase boundary
		{"SKU", "sku"},
		{"PEI Rating", "pei_rating"},
	}
	for _, tt := range tests {
		if got := c.Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_AliasCollapse(t *testing.T) {
	// Same semantic field from two passes under two spellings collapses to
	// exactly one canonical field; the structured pass wins.
	obs := []record.Observation{
		record.Obs("boxWeight", "22.9 lbs", record.PassPattern),
		record.Obs("box_weight", "22.9 lbs", record.PassStructured),
	}
	fields, discarded := newTestCanonicalizer().Normalize(obs)
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1: %+v", len(fields), fields)
	}
	f := fields[0]
	if f.Name != "box_weight" || f.Pass != record.PassStructured {
		t.Fatalf("got %+v", f)
	}
	if len(discarded) != 0 {
		t.Fatalf("cross-tier duplicate should drop silently, got %+v", discarded)
	}
}

func TestNormalize_HigherPassWinsRegardlessOfOrder(t *testing.T) {
	obs := []record.Observation{
		record.Obs("color", "gray-ish", record.PassHeuristic),
		record.Obs("color", "Grey", record.PassStructured),
	}
	fields, _ := newTestCanonicalizer().Normalize(obs)
	if len(fields) != 1 || fields[0].Value != "Grey" {
		t.Fatalf("got %+v", fields)
	}
}

func TestNormalize_SameTierDisagreementKeepsFirst(t *testing.T) {
	obs := []record.Observation{
		record.Obs("finish", "Matte", record.PassPattern),
		record.Obs("finish", "Polished", record.PassPattern),
	}
	fields, discarded := newTestCanonicalizer().Normalize(obs)
	if len(fields) != 1 || fields[0].Value != "Matte" {
		t.Fatalf("fields = %+v", fields)
	}
	if len(discarded) != 1 || discarded[0].Value != "Polished" {
		t.Fatalf("discarded = %+v", discarded)
	}
}

func TestNormalize_EmptyValuesSkipped(t *testing.T) {
	obs := []record.Observation{
		record.Obs("color", "   ", record.PassStructured),
		record.Obs("color", "Grey", record.PassHeuristic),
	}
	fields, _ := newTestCanonicalizer().Normalize(obs)
	if len(fields) != 1 || fields[0].Value != "Grey" {
		t.Fatalf("fields = %+v", fields)
	}
}

func TestNormalize_OutputSortedByName(t *testing.T) {
	obs := []record.Observation{
		record.Obs("material", "Porcelain", record.PassPattern),
		record.Obs("color", "Grey", record.PassPattern),
		record.Obs("finish", "Matte", record.PassPattern),
	}
	fields, _ := newTestCanonicalizer().Normalize(obs)
	want := []string{"color", "finish", "material"}
	for i, name := range want {
		if fields[i].Name != name {
			t.Fatalf("order = %+v, want %v", fields, want)
		}
	}
}
