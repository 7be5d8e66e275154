// Package textnorm holds the text normalization shared by the parser and the
// categorizer: lowercasing, accent folding, whitespace collapsing and
// currency token canonicalization.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CurrencyToken is the canonical spelling every currency word is rewritten to.
const CurrencyToken = "pesos"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	currencyRe   = regexp.MustCompile(`\b(?:pesos?|mxn)\b`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// Fold lowercases s and strips diacritics, so "Gasté" becomes "gaste" and
// "Año" becomes "ano".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// CollapseSpaces trims s and replaces every run of whitespace with one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Message normalizes free text for the parser.
func Message(s string) string {
	s = CollapseSpaces(Fold(s))
	return currencyRe.ReplaceAllString(s, CurrencyToken)
}

// Description normalizes a description for matching: on top of Message it
// drops every character that is not a letter, digit or space.
func Description(s string) string {
	s = Message(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

// Tokens splits a normalized description into tokens longer than minLen.
func Tokens(s string, minLen int) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}

// TokenSet returns the distinct tokens of s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two token sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// ContainsWord reports whether phrase appears in s on word boundaries.
// Both arguments must already be normalized.
func ContainsWord(s, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

// TitleCase capitalizes the first letter of each word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
