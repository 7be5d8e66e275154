package parser

import "regexp"

// NoGroup marks a rule without a description capture group.
const NoGroup = 0

// Rule is one declarative extraction rule. Rules are tried in slice order and
// the first one that matches and validates wins.
type Rule struct {
	ID               string
	Pattern          *regexp.Regexp
	AmountGroup      int
	DescriptionGroup int
}

// Rule identifiers, in priority order.
const (
	RuleActionAmountConnector = "action_amount_connector_description"
	RuleActionConnectorAmount = "action_description_connector_amount"
	RuleAmountConnector       = "amount_connector_description"
	RuleDescriptionAmount     = "description_amount"
	RuleActionAmount          = "action_amount_description"
	RuleAmountOnly            = "amount_only"
)

const (
	// actions covers spent/bought/paid/gave/cost/worth/price in their
	// inflected forms, accent-folded.
	actions = `(?:gaste|gastamos|gastaste|gastaron|gasto|gastado|gastar|` +
		`compre|compramos|compraste|compraron|compro|comprado|comprar|` +
		`pague|pagamos|pagaste|pagaron|pago|pagado|pagar|` +
		`di|diste|dimos|dieron|dio|` +
		`costo|costaron|cuesta|cuestan|` +
		`vale|valen|valio|` +
		`precio)`
	action     = `\b` + actions + `\b`
	amount     = `\$?\s?(\d+(?:[.,]\d+)*)(?:\s?pesos)?`
	connectors = `(?:en|de|para|por|con|del|al)`
)

var (
	actionRe = regexp.MustCompile(action)

	// looseAmountRe is the cheap currency-number check used by IsExpenseCandidate.
	looseAmountRe = regexp.MustCompile(`\$\s?\d|\d(?:[.,]\d+)?\s?pesos\b|\b\d{2,}(?:[.,]\d+)?\b`)
)

// DefaultRules returns the fixed, ordered extraction rule list.
func DefaultRules() []Rule {
	return []Rule{
		{
			// "gaste $300 en tacos"
			ID:               RuleActionAmountConnector,
			Pattern:          regexp.MustCompile(action + `\s+` + amount + `\s+` + connectors + `\s+(.+)$`),
			AmountGroup:      1,
			DescriptionGroup: 2,
		},
		{
			// "compre gasolina por $200"
			ID:               RuleActionConnectorAmount,
			Pattern:          regexp.MustCompile(action + `\s+(.+?)\s+` + connectors + `\s+` + amount + `$`),
			AmountGroup:      2,
			DescriptionGroup: 1,
		},
		{
			// "$300 en tacos"
			ID:               RuleAmountConnector,
			Pattern:          regexp.MustCompile(`^` + amount + `\s+` + connectors + `\s+(.+)$`),
			AmountGroup:      1,
			DescriptionGroup: 2,
		},
		{
			// "tacos $45"
			ID:               RuleDescriptionAmount,
			Pattern:          regexp.MustCompile(`^(.+?)\s+` + amount + `$`),
			AmountGroup:      2,
			DescriptionGroup: 1,
		},
		{
			// "pague 200 la renta"
			ID:               RuleActionAmount,
			Pattern:          regexp.MustCompile(action + `\s+` + amount + `\s+(.+)$`),
			AmountGroup:      1,
			DescriptionGroup: 2,
		},
		{
			// "$300"
			ID:               RuleAmountOnly,
			Pattern:          regexp.MustCompile(`^(?:` + actions + `\s+)?` + amount + `$`),
			AmountGroup:      1,
			DescriptionGroup: NoGroup,
		},
	}
}
