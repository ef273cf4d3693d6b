package parser

import (
	"regexp"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/sectiontext"
)

var reHexColor = regexp.MustCompile(`#[0-9a-fA-F]{6}\b`)

// heuristicPass is the last-resort generic pass: any visibly labeled
// "Label: value" pair from spec tables, definition lists, or text lines
// becomes an observation under its raw label, and a hex code anywhere in
// the markup is captured as a color candidate.
func heuristicPass(b *pagefetch.Bundle) []record.Observation {
	var obs []record.Observation
	for _, name := range b.Names() {
		s, ok := b.Get(name)
		if !ok {
			continue
		}
		doc, err := sectiontext.Parse(s.HTML)
		if err != nil {
			continue
		}
		for _, lv := range sectiontext.LabeledValues(doc) {
			obs = append(obs, record.Obs(lv.Label, lv.Value, record.PassHeuristic))
		}
		if hex := reHexColor.FindString(s.HTML); hex != "" {
			obs = append(obs, record.Obs("color_hex", hex, record.PassHeuristic))
		}
	}
	return obs
}
