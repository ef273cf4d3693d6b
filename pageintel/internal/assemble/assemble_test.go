package assemble

import (
	"bytes"
	"testing"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

func TestAssemble_BindsFixedFields(t *testing.T) {
	rec, rep := Assemble(Input{
		URL:            "https://example.com/p/650041",
		Classification: record.Classification{Family: record.FamilyTile, Confidence: 0.6},
		Fields: []record.CanonicalField{
			{Name: "title", Value: "Hampton Carrara", Pass: record.PassStructured, Confidence: 0.9},
			{Name: "sku", Value: "650041", Pass: record.PassStructured, Confidence: 0.9},
			{Name: "price_per_box", Value: "$287.04", Pass: record.PassStructured, Confidence: 0.9},
			{Name: "coverage", Value: "10.98", Pass: record.PassPattern, Confidence: 0.7},
			{Name: "material", Value: "marble", Pass: record.PassPattern, Confidence: 0.7},
		},
	})

	if rec.Title != "Hampton Carrara" || rec.SKU != "650041" {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.PricePerBox == nil || *rec.PricePerBox != 287.04 {
		t.Fatalf("price_per_box = %v", rec.PricePerBox)
	}
	if rec.Coverage == nil || *rec.Coverage != 10.98 {
		t.Fatalf("coverage = %v", rec.Coverage)
	}
	if rec.Incomplete {
		t.Fatal("record with no unresolved fields flagged incomplete")
	}
	if len(rep.Fields) != 5 {
		t.Fatalf("report fields = %+v", rep.Fields)
	}
}

func TestAssemble_TotalFailureStillProducesRecord(t *testing.T) {
	rec, rep := Assemble(Input{
		URL:            "https://example.com/p/x",
		Classification: record.Classification{Family: record.FamilyUnknown},
		Unresolved:     []string{"title", "sku"},
		SectionErrors:  map[string]string{"main": "http 410"},
	})

	if rec == nil {
		t.Fatal("no record from empty run")
	}
	if rec.Family != record.FamilyUnknown || !rec.Incomplete {
		t.Fatalf("rec = %+v", rec)
	}
	if len(rep.Unresolved) != 2 || !rep.Incomplete {
		t.Fatalf("report = %+v", rep)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	in := Input{
		URL:            "https://example.com/p/650041",
		Classification: record.Classification{Family: record.FamilyGrout, Confidence: 0.5},
		Fields: []record.CanonicalField{
			{Name: "title", Value: "Grout", Pass: record.PassStructured, Confidence: 0.9},
		},
		Open: map[string]record.CanonicalField{
			"color":      {Name: "color", Value: "Grey", Pass: record.PassHeuristic, Confidence: 0.5},
			"box_weight": {Name: "box_weight", Value: "25", Pass: record.PassPattern, Confidence: 0.7},
		},
		Resources: []record.ResourceLink{
			{Type: "sell_sheet", Title: "Sell Sheet", URL: "https://d/sell.pdf", Verified: true},
			{Type: "data_sheet", Title: "TDS", URL: "https://d/tds.pdf", Verified: true},
		},
	}

	recA, _ := Assemble(in)
	recB, _ := Assemble(in)
	a, err := recA.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b, err := recB.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("non-deterministic marshal:\n%s\n%s", a, b)
	}
	// Resources sort by type regardless of input order.
	if recA.Resources[0].Type != "data_sheet" {
		t.Fatalf("resources = %+v", recA.Resources)
	}
}

func TestAssemble_UnparseableAmountStaysUnbound(t *testing.T) {
	rec, _ := Assemble(Input{
		URL: "https://example.com/p/x",
		Fields: []record.CanonicalField{
			{Name: "price_per_unit", Value: "call for pricing", Pass: record.PassHeuristic},
		},
	})
	if rec.PricePerUnit != nil {
		t.Fatalf("price = %v", *rec.PricePerUnit)
	}
}
