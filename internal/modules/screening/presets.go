package screening

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/market-screener/internal/domain"
)

// Preset is a named, reusable parameter set. Presets are plain data: the
// engine only ever sees the immutable Params they resolve to.
type Preset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Params      Params `yaml:"params"`
}

// LoadPresets reads screening presets from a YAML file.
//
// File shape:
//
//	presets:
//	  - name: classic-schloss
//	    params:
//	      pe_max: 15
//	      pb_max: 1.5
func LoadPresets(path string) (map[string]Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse presets file: %w", err)
	}

	presets := make(map[string]Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.Name == "" {
			return nil, domain.NewConfigError("presets", "preset without a name in %s", path)
		}
		if _, dup := presets[p.Name]; dup {
			return nil, domain.NewConfigError("presets", "duplicate preset %q", p.Name)
		}
		if err := p.Params.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		presets[p.Name] = p
	}

	return presets, nil
}

// DefaultParams returns the classic Schloss parameter set used when a
// caller names no preset: cheap, low-debt, dividend-paying stocks of
// reasonable size across all supported markets.
func DefaultParams() Params {
	return Params{
		PEMax:            Float(15),
		PBMax:            Float(1.5),
		DebtRatioMax:     Float(0.5),
		ROEMin:           Float(0.08),
		MarketCapMin:     Float(1e9),
		DividendYearsMin: Int(3),
		ExcludedIndustries: []string{
			"Banking", "Insurance", "Securities",
		},
	}
}
