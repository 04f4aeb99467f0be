package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/locvowork/mzextract/internal/domain"
	"gopkg.in/yaml.v2"
)

// Preset is a named, reusable list of m/z ranges.
type Preset struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description,omitempty"`
	Ranges      domain.RangeList `yaml:"-" json:"ranges"`
}

type presetFile struct {
	Presets []struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Ranges      [][]float64 `yaml:"ranges"`
	} `yaml:"presets"`
}

// Presets is the set of configured presets keyed by name.
type Presets map[string]Preset

// LoadPresets reads a presets YAML file. An empty path yields no presets.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return Presets{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes presets and validates every range.
func ParsePresets(data []byte) (Presets, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := make(Presets, len(f.Presets))
	for _, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset without name")
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		if len(p.Ranges) == 0 {
			return nil, fmt.Errorf("preset %q has no ranges", p.Name)
		}
		var ranges domain.RangeList
		for _, r := range p.Ranges {
			if len(r) != 2 {
				return nil, fmt.Errorf("preset %q: range %v must be [min, max]", p.Name, r)
			}
			var err error
			if ranges, err = ranges.Add(r[0], r[1]); err != nil {
				return nil, fmt.Errorf("preset %q: %w", p.Name, err)
			}
		}
		out[p.Name] = Preset{Name: p.Name, Description: p.Description, Ranges: ranges}
	}
	return out, nil
}

// List returns the presets sorted by name.
func (p Presets) List() []Preset {
	out := make([]Preset, 0, len(p))
	for _, preset := range p {
		out = append(out, preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
