package order

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Sanitize normalises text to NFC and drops what a deep link cannot carry:
// control characters other than newline, carriage return and tab, DEL, and
// bytes that are not valid UTF-8 (which covers lone surrogates).
func Sanitize(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keep(r rune) bool {
	switch {
	case r == '\n', r == '\r', r == '\t':
		return true
	case r < 0x20, r == 0x7f:
		return false
	}
	return true
}

// Simplify keeps printable ASCII, line breaks and Latin-1 through Latin
// Extended-A. Emoji and everything else are removed.
func Simplify(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n', r == '\r':
		case r >= 0x20 && r <= 0x7e:
		case r >= 0xa0 && r <= 0x17f:
		default:
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
