// Package pageintel is the product page intelligence pipeline: it turns
// heterogeneous, loosely structured catalog pages into normalized product
// records.
//
// One run flows strictly top-to-bottom: section fetch → family
// classification → family-specific extraction (three prioritized passes) →
// specification normalization → schema expansion → resource resolution →
// record assembly → upsert by URL. Every run produces a record; partial
// failures downgrade to an incomplete flag and a provenance report rather
// than an error.
package pageintel

import (
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/schemax"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/store"
)

// Re-exported pipeline value types.
type (
	Family         = record.Family
	Pass           = record.Pass
	Classification = record.Classification
	CanonicalField = record.CanonicalField
	ResourceLink   = record.ResourceLink
	ProductRecord  = record.ProductRecord
	Report         = record.Report
	Run            = store.Run
	Stats          = store.Stats
)

const (
	FamilyTile             = record.FamilyTile
	FamilyGrout            = record.FamilyGrout
	FamilyTrimMolding      = record.FamilyTrimMolding
	FamilyLuxuryVinyl      = record.FamilyLuxuryVinyl
	FamilyInstallationTool = record.FamilyInstallationTool
	FamilyUnknown          = record.FamilyUnknown
)

const (
	PassStructured = record.PassStructured
	PassPattern    = record.PassPattern
	PassHeuristic  = record.PassHeuristic
)

// Families returns the classifiable family labels.
func Families() []Family { return record.Families() }

// Re-exported sentinel errors.
var (
	ErrNotFound       = store.ErrNotFound
	ErrSchemaConflict = schemax.ErrConflict
)
