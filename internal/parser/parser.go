// Package parser extracts a candidate expense (amount and description) from a
// free-form chat message.
//
// Extraction is a first-match walk over an ordered rule table: the earliest
// rule whose pattern matches and whose amount validates wins, even when a
// later rule would produce a nicer description.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/textnorm"
)

// Parser is safe for concurrent use; it holds only immutable tables.
type Parser struct {
	rules         []Rule
	contextGroups []ContextGroup
	logger        *log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(p *Parser) { p.rules = rules }
}

// WithContextGroups replaces the description fallback dictionaries.
func WithContextGroups(groups []ContextGroup) Option {
	return func(p *Parser) { p.contextGroups = groups }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l.WithComponent(log.ComponentParser) }
}

// New creates a parser with the default rule table and dictionaries.
func New(opts ...Option) *Parser {
	p := &Parser{
		rules:         DefaultRules(),
		contextGroups: defaultContextGroups(),
		logger:        log.New(log.DefaultConfig()).WithComponent(log.ComponentParser),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rules returns a copy of the rule table in evaluation order.
func (p *Parser) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Parse extracts an expense from text. The boolean is false when no rule
// matched or every matching rule failed validation; there is no distinction
// between "not an expense" and "malformed expense".
func (p *Parser) Parse(text string) (core.ParsedExpense, bool) {
	if strings.TrimSpace(text) == "" {
		return core.ParsedExpense{}, false
	}
	normalized := textnorm.Message(text)

	for _, rule := range p.rules {
		m := rule.Pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		amount, err := core.ParseAmount(group(m, rule.AmountGroup))
		if err != nil {
			p.logger.Debug("Rule matched but amount rejected",
				log.FieldRule, rule.ID,
				log.FieldError, err)
			continue
		}

		desc := cleanDescription(group(m, rule.DescriptionGroup))
		if desc == "" {
			desc = p.contextDescription(textnorm.Description(text))
		}

		p.logger.Debug("Expense parsed",
			log.FieldRule, rule.ID,
			log.FieldAmount, amount,
			log.FieldDescription, desc)

		return core.ParsedExpense{
			Amount:       amount,
			Description:  desc,
			PatternID:    rule.ID,
			OriginalText: text,
		}, true
	}
	return core.ParsedExpense{}, false
}

// IsExpenseCandidate is a cheap pre-filter: true when the text mentions an
// action keyword or something that looks like money. It may be true for text
// that Parse ultimately rejects.
func (p *Parser) IsExpenseCandidate(text string) bool {
	normalized := textnorm.Message(text)
	if normalized == "" {
		return false
	}
	return actionRe.MatchString(normalized) || looseAmountRe.MatchString(normalized)
}

var andRe = regexp.MustCompile(`(?i)\s+y\s+`)

// ParseMultiple splits text on commas, semicolons, "y" and newlines and parses
// each segment. When no segment parses it falls back to parsing the whole text.
func (p *Parser) ParseMultiple(text string) []core.ParsedExpense {
	var out []core.ParsedExpense
	for _, segment := range splitSegments(text) {
		if e, ok := p.Parse(segment); ok {
			out = append(out, e)
		}
	}
	if len(out) > 0 {
		return out
	}
	if e, ok := p.Parse(text); ok {
		return []core.ParsedExpense{e}
	}
	return []core.ParsedExpense{}
}

// splitSegments breaks text on separators. A comma between two digits is a
// decimal or thousands separator and does not split.
func splitSegments(text string) []string {
	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == ';' || r == '\n' || r == '\r':
			b.WriteRune('\n')
		case r == ',':
			if i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				b.WriteRune(r)
			} else {
				b.WriteRune('\n')
			}
		default:
			b.WriteRune(r)
		}
	}

	joined := andRe.ReplaceAllString(b.String(), "\n")
	var segments []string
	for _, s := range strings.Split(joined, "\n") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func group(m []string, idx int) string {
	if idx <= NoGroup || idx >= len(m) {
		return ""
	}
	return m[idx]
}
