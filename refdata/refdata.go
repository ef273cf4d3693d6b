// Package refdata loads the externally editable reference data used by the
// extraction pipeline: the field alias table, the family→document mapping,
// and classifier thresholds. The catalog's vocabulary drifts over time, so
// these are versioned files rather than compiled constants.
//
// Files under the reference directory:
//
//	aliases.yaml     — alias spelling → canonical field name
//	resources.yaml   — family → auxiliary document rules
//	classifier.yaml  — confidence floor and tie window
//
// Missing files fall back to built-in defaults.
package refdata

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Data is one immutable snapshot of the reference data. A new snapshot is
// produced on every reload; consumers must not mutate it.
type Data struct {
	// Version is the newest version string across the loaded files.
	Version string

	// Aliases maps a squashed alias spelling (lowercase, separators
	// stripped) to its canonical field name.
	Aliases map[string]string

	// Resources maps a family name (lowercase) to its document rules.
	Resources map[string][]ResourceRule

	// ConfidenceFloor is the minimum classifier confidence; below it the
	// family is Unknown. TieWindow is the relative gap under which the two
	// top family scores count as ambiguous.
	ConfidenceFloor float64
	TieWindow       float64
}

// ResourceRule describes one auxiliary document predictable for a family.
type ResourceRule struct {
	Type        string `yaml:"type"`
	Title       string `yaml:"title"`
	URLTemplate string `yaml:"url_template"`

	// RequiresField/RequiresAnyOf optionally gate the rule on a canonical
	// field value (e.g. safety sheets only for natural stone materials).
	RequiresField string   `yaml:"requires_field"`
	RequiresAnyOf []string `yaml:"requires_any_of"`
}

type aliasFile struct {
	Version string            `yaml:"version"`
	Aliases map[string]string `yaml:"aliases"`
}

type resourceFile struct {
	Version   string                    `yaml:"version"`
	Resources map[string][]ResourceRule `yaml:"resources"`
}

type classifierFile struct {
	Version         string  `yaml:"version"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	TieWindow       float64 `yaml:"tie_window"`
}

// Load reads the reference data files from dir. Missing files use defaults;
// malformed files are an error.
func Load(dir string) (*Data, error) {
	d := Default()

	var af aliasFile
	ok, err := loadYAML(filepath.Join(dir, "aliases.yaml"), &af)
	if err != nil {
		return nil, err
	}
	if ok {
		for alias, canonical := range af.Aliases {
			d.Aliases[Squash(alias)] = canonical
		}
		d.Version = newerVersion(d.Version, af.Version)
	}

	var rf resourceFile
	ok, err = loadYAML(filepath.Join(dir, "resources.yaml"), &rf)
	if err != nil {
		return nil, err
	}
	if ok {
		for family, rules := range rf.Resources {
			d.Resources[family] = rules
		}
		d.Version = newerVersion(d.Version, rf.Version)
	}

	var cf classifierFile
	ok, err = loadYAML(filepath.Join(dir, "classifier.yaml"), &cf)
	if err != nil {
		return nil, err
	}
	if ok {
		if cf.ConfidenceFloor > 0 {
			d.ConfidenceFloor = cf.ConfidenceFloor
		}
		if cf.TieWindow > 0 {
			d.TieWindow = cf.TieWindow
		}
		d.Version = newerVersion(d.Version, cf.Version)
	}

	return d, nil
}

func loadYAML(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("refdata: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("refdata: parse %s: %w", path, err)
	}
	return true, nil
}

func newerVersion(a, b string) string {
	if b > a {
		return b
	}
	return a
}

// Squash normalizes a field spelling for alias lookup: lowercase with
// spaces, underscores, and hyphens removed.
func Squash(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c == ' ' || c == '_' || c == '-' || c == '\t':
			// dropped
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// Default returns the built-in reference data used when no files exist.
func Default() *Data {
	return &Data{
		Version: "builtin",
		Aliases: map[string]string{
			"boxweight":        "box_weight",
			"approximatesize":  "dimensions",
			"size":             "dimensions",
			"sqftperbox":       "coverage",
			"coveragearea":     "coverage",
			"boxcoverage":      "coverage",
			"colorgroup":       "color",
			"colour":           "color",
			"shade":            "color",
			"materialtype":     "material",
			"stonetype":        "material",
			"finishtype":       "finish",
			"surfacefinish":    "finish",
			"piecesperbox":     "pieces_per_box",
			"piececount":       "pieces_per_box",
			"wearlayer":        "wear_layer",
			"wearlayermil":     "wear_layer",
			"installmethod":    "installation_method",
			"installationtype": "installation_method",
			"countryoforigin":  "origin",
			"madein":           "origin",
		},
		Resources: map[string][]ResourceRule{
			"tile": {
				{
					Type:          "safety_data_sheet",
					Title:         "Safety Data Sheet",
					URLTemplate:   "https://www.tileshop.com/static/docs/sds/{sku}.pdf",
					RequiresField: "material",
					RequiresAnyOf: []string{"marble", "travertine", "limestone", "slate", "granite", "quartzite"},
				},
			},
			"grout": {
				{Type: "safety_data_sheet", Title: "Safety Data Sheet", URLTemplate: "https://www.tileshop.com/static/docs/sds/{sku}.pdf"},
				{Type: "data_sheet", Title: "Technical Data Sheet", URLTemplate: "https://www.tileshop.com/static/docs/tds/{sku}.pdf"},
				{Type: "sell_sheet", Title: "Sell Sheet", URLTemplate: "https://www.tileshop.com/static/docs/sell/{sku}.pdf"},
			},
			"trim_molding": {
				{Type: "installation_guide", Title: "Installation Guidelines", URLTemplate: "https://www.tileshop.com/static/docs/install/{sku}.pdf"},
			},
			"luxury_vinyl": {
				{Type: "installation_guide", Title: "Installation Guidelines", URLTemplate: "https://www.tileshop.com/static/docs/install/{sku}.pdf"},
				{Type: "data_sheet", Title: "Technical Data Sheet", URLTemplate: "https://www.tileshop.com/static/docs/tds/{sku}.pdf"},
			},
		},
		ConfidenceFloor: 0.25,
		TieWindow:       0.05,
	}
}
