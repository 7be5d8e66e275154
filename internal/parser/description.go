package parser

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"gastos/internal/core"
	"gastos/internal/textnorm"
)

//go:embed context_terms.yaml
var contextTermsYAML []byte

// ContextGroup is an ordered list of terms used by the description fallback.
type ContextGroup struct {
	Group string   `yaml:"group"`
	Terms []string `yaml:"terms"`
}

var (
	residualCurrencyRe = regexp.MustCompile(`\$\s?\d+(?:[.,]\d+)*|\$|\bpesos\b`)
	leadingActionRe    = regexp.MustCompile(`^` + actions + `\b\s*`)
	leadingConnRe      = regexp.MustCompile(`^` + connectors + `\b\s*`)
	trailingConnRe     = regexp.MustCompile(`\s*\b` + connectors + `$`)
)

// LoadContextGroups parses YAML context groups, keeping declaration order.
func LoadContextGroups(data []byte) ([]ContextGroup, error) {
	var groups []ContextGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse context terms: %w", err)
	}
	for i := range groups {
		for j, term := range groups[i].Terms {
			groups[i].Terms[j] = textnorm.Message(term)
		}
	}
	return groups, nil
}

func defaultContextGroups() []ContextGroup {
	groups, err := LoadContextGroups(contextTermsYAML)
	if err != nil {
		panic(err) // embedded data; a failure here is a build defect
	}
	return groups
}

// cleanDescription normalizes a captured description. It returns "" when
// nothing meaningful remains.
func cleanDescription(raw string) string {
	s := textnorm.CollapseSpaces(raw)
	s = residualCurrencyRe.ReplaceAllString(s, " ")
	s = textnorm.CollapseSpaces(s)

	for {
		before := s
		s = leadingActionRe.ReplaceAllString(s, "")
		s = leadingConnRe.ReplaceAllString(s, "")
		s = trailingConnRe.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
		if s == before {
			break
		}
	}

	s = strings.Trim(s, " .,;:!?-")
	return textnorm.Capitalize(s)
}

// contextDescription scans the normalized message for the first known term.
func (p *Parser) contextDescription(normalized string) string {
	for _, g := range p.contextGroups {
		for _, term := range g.Terms {
			if textnorm.ContainsWord(normalized, term) {
				return textnorm.TitleCase(term)
			}
		}
	}
	return core.DefaultPlaceholder
}
