package parser

import (
	"regexp"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

// tileSpec: coverage-area pricing, material/origin/finish. Material also
// feeds natural-stone safety-sheet eligibility downstream.
var tileSpec = familySpec{
	family:    record.FamilyTile,
	mandatory: []string{"title", "price_per_box", "coverage", "material"},
	priceSlot: "price_per_box",
	patterns: []fieldPattern{
		{field: "coverage", re: reCoveragePerBox, group: 1, transform: numeric},
		{field: "price_per_sqft", re: rePricePerSqFt, group: 1, transform: numeric},
		{field: "price_per_box", re: rePricePerBox, group: 1, transform: numeric},
		{field: "material", group: 1, transform: lower,
			re: regexp.MustCompile(`(?i)\b(porcelain|ceramic|marble|travertine|limestone|slate|granite|quartzite|glass)\b`)},
		{field: "finish", group: 1, transform: lower,
			re: regexp.MustCompile(`(?i)\b(polished|honed|matte|glossy|textured|tumbled|brushed)\b`)},
		{field: "dimensions", re: reDimensions, group: 1},
		{field: "origin", group: 1,
			re: regexp.MustCompile(`(?i)(?:made\s+in|country\s+of\s+origin:?)\s+([a-z]+(?:\s[a-z]+)?)`)},
		{field: "price_per_box", re: rePriceBare, group: 1, transform: numeric, reject: rePerUnitSuffix},
	},
}

// groutSpec: weight-based package sizing, color as the primary
// differentiator.
var groutSpec = familySpec{
	family:    record.FamilyGrout,
	mandatory: []string{"title", "price_per_unit", "box_weight", "color"},
	priceSlot: "price_per_unit",
	patterns: []fieldPattern{
		{field: "box_weight", re: reWeightLb, group: 1, transform: numeric},
		// Horizontal whitespace only: a newline after the label means the
		// value belongs to something else.
		{field: "color", group: 1,
			re: regexp.MustCompile(`(?i)colou?r:?[ \t]+([a-z]+(?:[ \t][a-z]+)?)\b`)},
		{field: "price_per_unit", re: rePricePerEach, group: 1, transform: numeric},
		{field: "price_per_unit", re: rePriceBare, group: 1, transform: numeric, reject: rePerUnitSuffix},
	},
}

// trimMoldingSpec: linear dimension over area, piece count per container.
var trimMoldingSpec = familySpec{
	family:    record.FamilyTrimMolding,
	mandatory: []string{"title", "price_per_unit", "length"},
	priceSlot: "price_per_unit",
	patterns: []fieldPattern{
		{field: "length", group: 1, transform: numeric,
			re: regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:in\.?|inch(?:es)?|")\s*(?:long|length)`)},
		{field: "length", group: 1, transform: numeric,
			re: regexp.MustCompile(`(?i)length:?\s*([\d,]+(?:\.\d+)?)`)},
		{field: "pieces_per_box", group: 1,
			re: regexp.MustCompile(`(?i)(\d+)\s*(?:pieces?|pcs)\s*(?:/|per)\s*(?:box|carton)`)},
		{field: "dimensions", re: reDimensions, group: 1},
		{field: "price_per_unit", re: rePricePerEach, group: 1, transform: numeric},
		{field: "price_per_unit", re: rePriceBare, group: 1, transform: numeric, reject: rePerUnitSuffix},
	},
}

// luxuryVinylSpec: wear-layer thickness, installation method, coverage
// pricing like tile.
var luxuryVinylSpec = familySpec{
	family:    record.FamilyLuxuryVinyl,
	mandatory: []string{"title", "price_per_box", "coverage", "wear_layer"},
	priceSlot: "price_per_box",
	patterns: []fieldPattern{
		{field: "wear_layer", group: 1, transform: numeric,
			re: regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*mil\b`)},
		{field: "installation_method", group: 1, transform: lower,
			re: regexp.MustCompile(`(?i)\b(click[\s-]?lock|glue[\s-]?down|loose[\s-]?lay|floating)\b`)},
		{field: "coverage", re: reCoveragePerBox, group: 1, transform: numeric},
		{field: "price_per_sqft", re: rePricePerSqFt, group: 1, transform: numeric},
		{field: "price_per_box", re: rePricePerBox, group: 1, transform: numeric},
		{field: "price_per_box", re: rePriceBare, group: 1, transform: numeric, reject: rePerUnitSuffix},
	},
}

// installationToolSpec: single-unit pricing, dimensional/weight specs,
// minimal resource expectations.
var installationToolSpec = familySpec{
	family:    record.FamilyInstallationTool,
	mandatory: []string{"title", "price_per_unit"},
	priceSlot: "price_per_unit",
	patterns: []fieldPattern{
		{field: "price_per_unit", re: rePricePerEach, group: 1, transform: numeric},
		{field: "weight", re: reWeightLb, group: 1, transform: numeric},
		{field: "dimensions", re: reDimensions, group: 1},
		{field: "price_per_unit", re: rePriceBare, group: 1, transform: numeric, reject: rePerUnitSuffix},
	},
}
