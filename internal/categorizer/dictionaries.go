package categorizer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"gastos/internal/textnorm"
)

//go:embed dictionaries.yaml
var dictionariesYAML []byte

// Dictionaries are read-only lookup tables mapping category name to terms.
type Dictionaries struct {
	Brands    map[string][]string `yaml:"brands"`
	Locations map[string][]string `yaml:"locations"`
	Actions   map[string][]string `yaml:"actions"`
}

// LoadDictionaries parses YAML dictionaries and normalizes every term.
func LoadDictionaries(data []byte) (Dictionaries, error) {
	var d Dictionaries
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dictionaries{}, fmt.Errorf("parse dictionaries: %w", err)
	}
	for _, table := range []map[string][]string{d.Brands, d.Locations, d.Actions} {
		for category, terms := range table {
			normalized := make([]string, 0, len(terms))
			for _, term := range terms {
				if n := textnorm.Description(term); n != "" {
					normalized = append(normalized, n)
				}
			}
			table[category] = normalized
		}
	}
	return d, nil
}

func defaultDictionaries() Dictionaries {
	d, err := LoadDictionaries(dictionariesYAML)
	if err != nil {
		panic(err)
	}
	return d
}
