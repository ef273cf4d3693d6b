// Package classify scores fetched page content against per-family feature
// sets and picks the page family for the run.
//
// Scoring is a pure function of the section bundle: keyword presence in
// section text (weight 1 each), family-specific regex hits (weight 2 each),
// and a family hint inside embedded structured product data (weight 3).
// Confidence is the matched weight over the family's total possible weight.
package classify

import (
	"regexp"
	"strings"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/sectiontext"
)

type featureSet struct {
	keywords []string
	patterns []*regexp.Regexp
	// structuredHints match against the raw text of embedded ld+json
	// blocks; any hit counts as one weight-3 feature.
	structuredHints []string

	// keywordRes holds the word-bounded form of each keyword, so "tile"
	// scores nothing inside "versatile" or "textile".
	keywordRes []*regexp.Regexp
}

func init() {
	for _, fs := range features {
		for _, kw := range fs.keywords {
			fs.keywordRes = append(fs.keywordRes,
				regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
}

func (fs *featureSet) maxScore() int {
	return len(fs.keywords) + 2*len(fs.patterns) + 3
}

var features = map[record.Family]*featureSet{
	record.FamilyTile: {
		keywords: []string{"tile", "porcelain", "ceramic", "mosaic", "marble",
			"travertine", "backsplash", "pei rating"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)sq\.?\s*ft\.?\s*(?:/|per)\s*(?:box|carton)`),
			regexp.MustCompile(`(?i)(?:/|per)\s*sq\.?\s*ft`),
		},
		structuredHints: []string{"tile", "porcelain", "ceramic", "mosaic"},
	},
	record.FamilyGrout: {
		keywords: []string{"grout", "sanded", "unsanded", "joint", "cementitious"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:lb|lbs|pound)s?\b`),
			regexp.MustCompile(`(?i)(?:/|per)\s*(?:bag|pail)`),
		},
		structuredHints: []string{"grout"},
	},
	record.FamilyTrimMolding: {
		keywords: []string{"trim", "molding", "moulding", "bullnose",
			"pencil liner", "chair rail", "edge piece"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\blinear\s+(?:foot|feet|ft)\b`),
			regexp.MustCompile(`(?i)\d+\s*(?:pieces?|pcs)\s*(?:/|per)\s*(?:box|carton)`),
		},
		structuredHints: []string{"trim", "molding", "bullnose"},
	},
	record.FamilyLuxuryVinyl: {
		keywords: []string{"vinyl", "luxury vinyl", "lvp", "lvt", "plank",
			"rigid core", "wear layer", "waterproof"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*mil\b`),
			regexp.MustCompile(`(?i)click[\s-]?lock`),
		},
		structuredHints: []string{"vinyl", "plank"},
	},
	record.FamilyInstallationTool: {
		keywords: []string{"trowel", "spacer", "cutter", "blade", "float",
			"sponge", "leveling", "wedge"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)sold\s+(?:individually|separately)`),
			regexp.MustCompile(`(?i)(?:/|per)\s*(?:each|piece)\b`),
		},
		structuredHints: []string{"tool", "trowel", "cutter"},
	},
}

// Classifier scores a section bundle against the family feature sets.
type Classifier struct {
	floor     float64
	tieWindow float64
}

// New returns a classifier with the given confidence floor and tie window.
// Both come from the reference-data snapshot of the run.
func New(floor, tieWindow float64) *Classifier {
	return &Classifier{floor: floor, tieWindow: tieWindow}
}

// Classify picks the family for the bundle. It never fails: absence of
// signal yields Unknown with confidence 0; a result below the confidence
// floor, or a tie between the top two families, also yields Unknown but
// keeps the top confidence for the report.
func (c *Classifier) Classify(b *pagefetch.Bundle) record.Classification {
	text, structured := corpus(b)

	type scored struct {
		family  record.Family
		score   int
		matched int
		conf    float64
	}
	results := make([]scored, 0, len(features))
	for _, fam := range record.Families() {
		fs := features[fam]
		score, matched := 0, 0
		for _, re := range fs.keywordRes {
			if re.MatchString(text) {
				score++
				matched++
			}
		}
		for _, re := range fs.patterns {
			if re.MatchString(text) {
				score += 2
				matched++
			}
		}
		for _, hint := range fs.structuredHints {
			if structured != "" && strings.Contains(structured, hint) {
				score += 3
				matched++
				break
			}
		}
		results = append(results, scored{
			family:  fam,
			score:   score,
			matched: matched,
			conf:    float64(score) / float64(fs.maxScore()),
		})
	}

	// Families() order is fixed, so equal scores resolve deterministically
	// and then fall into the tie window below.
	top, second := results[0], scored{}
	for _, r := range results[1:] {
		switch {
		case r.score > top.score:
			second = top
			top = r
		case r.score > second.score:
			second = r
		}
	}

	if top.score == 0 {
		return record.Classification{Family: record.FamilyUnknown}
	}

	out := record.Classification{Family: top.family, Confidence: top.conf, Matched: top.matched}
	gap := float64(top.score-second.score) / float64(top.score)
	if gap <= c.tieWindow || top.conf < c.floor {
		out.Family = record.FamilyUnknown
	}
	return out
}

// corpus flattens the bundle into lowercase section text plus the lowercase
// concatenation of embedded ld+json blocks.
func corpus(b *pagefetch.Bundle) (text, structured string) {
	var tb, sb strings.Builder
	for _, name := range b.Names() {
		s, ok := b.Get(name)
		if !ok {
			continue
		}
		t := s.Text
		doc, err := sectiontext.Parse(s.HTML)
		if err == nil {
			if t == "" {
				t = sectiontext.CleanText(doc)
			}
			for _, script := range sectiontext.Scripts(doc, "application/ld+json") {
				sb.WriteString(script)
				sb.WriteByte('\n')
			}
		}
		tb.WriteString(t)
		tb.WriteByte('\n')
	}
	return strings.ToLower(tb.String()), strings.ToLower(sb.String())
}
