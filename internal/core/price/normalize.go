// Package price turns the heterogeneous price sources a catalog page carries
// into integer amounts and renders amounts back for display.
package price

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// corruptionRatio is how much larger the display-derived amount must be
// before it wins over the machine value.
const corruptionRatio = 10

var (
	dotGrouped   = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	commaGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	numberRun    = regexp.MustCompile(`\d[\d.,]*`)
	plainNumber  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// Normalizer parses prices into minor units at Scale fraction digits.
type Normalizer struct {
	Scale int32
}

var defaultNormalizer = Normalizer{}

func Normalize(raw, display string) int64 {
	return defaultNormalizer.Normalize(raw, display)
}

func ParseDisplay(text string) int64 {
	return defaultNormalizer.ParseDisplay(text)
}

func ParseMachine(raw string) (int64, bool) {
	return defaultNormalizer.ParseMachine(raw)
}

// Normalize prefers the machine value and falls back to the display text
// when the machine value is missing or implausibly small next to it.
func (n Normalizer) Normalize(raw, display string) int64 {
	amount, ok := n.ParseMachine(raw)
	if !ok {
		return n.ParseDisplay(display)
	}
	if display != "" {
		if fromText := n.ParseDisplay(display); Implausible(amount, fromText) {
			return fromText
		}
	}
	return amount
}

// ParseMachine parses a canonical numeric string. Thousands-grouped values
// ("12.000", "1,234,567") have their separators stripped first.
func (n Normalizer) ParseMachine(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" || s == "undefined" {
		return 0, false
	}
	switch {
	case dotGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	case commaGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	}
	// exponent forms ("1e20") are not prices a page would carry
	if !plainNumber.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	amount, ok := n.toMinor(d)
	if !ok {
		return 0, false
	}
	return amount, true
}

// ParseDisplay extracts an amount from locale-formatted text such as
// "$ 7.500", "$7,500.00" or "7.500,00 €".
func (n Normalizer) ParseDisplay(text string) int64 {
	run := numberRun.FindString(text)
	if run == "" {
		return 0
	}
	run = strings.TrimRight(run, ".,")

	d, err := decimal.NewFromString(canonical(run))
	if err != nil {
		return 0
	}
	amount, _ := n.toMinor(d)
	return amount
}

// toMinor converts to minor units. Negative amounts become 0; amounts past
// int64 are rejected rather than wrapped.
func (n Normalizer) toMinor(d decimal.Decimal) (int64, bool) {
	if d.IsNegative() {
		return 0, true
	}
	minor := d.Shift(n.Scale).Round(0)
	if minor.GreaterThan(maxAmount) {
		return 0, false
	}
	return minor.IntPart(), true
}

// canonical rewrites a digit run so '.' is the only, decimal, separator.
func canonical(run string) string {
	lastDot := strings.LastIndex(run, ".")
	lastComma := strings.LastIndex(run, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(run, ",", "")
		}
		return strings.Replace(strings.ReplaceAll(run, ".", ""), ",", ".", 1)
	case lastDot >= 0:
		return singleSeparator(run, ".")
	case lastComma >= 0:
		return singleSeparator(run, ",")
	}
	return run
}

// singleSeparator handles runs with one separator kind: trailing groups of
// exactly three digits are thousands, anything else marks decimals.
func singleSeparator(run, sep string) string {
	parts := strings.Split(run, sep)
	grouped := true
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
			break
		}
	}
	if grouped {
		return strings.Join(parts, "")
	}
	last := len(parts) - 1
	return strings.Join(parts[:last], "") + "." + parts[last]
}

// Implausible reports whether the display-derived amount is more than
// corruptionRatio times the machine amount.
func Implausible(machine, display int64) bool {
	q, r := display/corruptionRatio, display%corruptionRatio
	return q > machine || (q == machine && r > 0)
}

// Addable reports whether a product with this price can go into a cart.
func Addable(amount int64, hasVariants bool) bool {
	return amount > 0 || hasVariants
}
