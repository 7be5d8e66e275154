// Package core provides money parsing and handling utilities.
//
// This file contains functions for turning the numeric fragment captured from
// a chat message into a validated amount.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest single expense accepted.
const MaxAmount = 1_000_000

var maxAmount = decimal.NewFromInt(MaxAmount)

// ParseAmount converts a captured amount string into a positive value rounded
// to two decimals.
//
// Currency symbols and words are stripped. Both dot and comma are accepted as
// decimal separators; when both appear the last one is the decimal separator
// and the other is a thousands separator. A single separator followed by
// exactly three digits is read as a thousands separator.
//
// Examples:
//
//	ParseAmount("$300")      -> 300, nil
//	ParseAmount("45,50")     -> 45.5, nil
//	ParseAmount("1,500")     -> 1500, nil
//	ParseAmount("1.234,567") -> 1234.57, nil
//	ParseAmount("0")         -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, token := range []string{"$", "mxn", "pesos", "peso"} {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// RoundAmount rounds a float to two decimals using decimal arithmetic.
func RoundAmount(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

func normalizeSeparators(s string) (string, bool) {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return "", false
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		decSep, thousandsSep := ".", ","
		if lastComma > lastDot {
			decSep, thousandsSep = ",", "."
		}
		s = strings.ReplaceAll(s, thousandsSep, "")
		if strings.Count(s, decSep) > 1 {
			return "", false
		}
		return strings.Replace(s, decSep, ".", 1), true
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		if lastComma >= 0 {
			sep = ","
		}
		parts := strings.Split(s, sep)
		if isThousandsGrouping(parts) {
			return strings.Join(parts, ""), true
		}
		if len(parts) != 2 {
			return "", false
		}
		if parts[0] == "" {
			parts[0] = "0"
		}
		if parts[1] == "" {
			return parts[0], true
		}
		return parts[0] + "." + parts[1], true
	default:
		return s, true
	}
}

func isThousandsGrouping(parts []string) bool {
	lead := parts[0]
	if lead == "" || lead == "0" || len(lead) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// ToCents converts an amount to integer cents for storage.
func ToCents(f float64) int64 {
	return decimal.NewFromFloat(f).Shift(2).Round(0).IntPart()
}

// FromCents converts stored cents back to an amount.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}
