package price

import (
	"strconv"
	"strings"
)

const placeholder = "{price}"

// Formatter renders minor-unit amounts using a catalog's price pattern.
type Formatter struct {
	Pattern      string
	ThousandsSep string
	DecimalSep   string
	Scale        int
}

var separators = map[string][2]string{
	"es":    {".", ","},
	"es-AR": {".", ","},
	"es-CL": {".", ","},
	"pt-BR": {".", ","},
	"de":    {".", ","},
	"it":    {".", ","},
	"en":    {",", "."},
	"en-US": {",", "."},
	"es-MX": {",", "."},
	"fr":    {" ", ","},
}

func DefaultFormatter() Formatter {
	return Formatter{Pattern: "$ " + placeholder, ThousandsSep: ".", DecimalSep: ",", Scale: 0}
}

// NewFormatter builds a formatter for a locale tag and a pattern containing
// "{price}". Unknown locales fall back to es-AR separators.
func NewFormatter(locale, pattern string, scale int) Formatter {
	f := DefaultFormatter()
	if pattern != "" && strings.Contains(pattern, placeholder) {
		f.Pattern = pattern
	}
	if seps, ok := separators[locale]; ok {
		f.ThousandsSep, f.DecimalSep = seps[0], seps[1]
	} else if base, _, found := strings.Cut(locale, "-"); found {
		if seps, ok := separators[base]; ok {
			f.ThousandsSep, f.DecimalSep = seps[0], seps[1]
		}
	}
	if scale > 0 {
		f.Scale = scale
	}
	return f
}

func (f Formatter) Format(amount int64) string {
	return strings.Replace(f.Pattern, placeholder, f.Number(amount), 1)
}

func (f Formatter) Number(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var frac string
	if f.Scale > 0 {
		for len(digits) <= f.Scale {
			digits = "0" + digits
		}
		frac = digits[len(digits)-f.Scale:]
		digits = digits[:len(digits)-f.Scale]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(f.ThousandsSep)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(f.DecimalSep)
		b.WriteString(frac)
	}
	return b.String()
}
