// Package normalize turns raw spreadsheet cells into typed column values.
//
// Every function here is total: a cell that cannot be interpreted becomes
// nil (SQL NULL), never an error. Callers that care about why a value was
// dropped get a debug trace from the Normalizer, not a failure.
package normalize

import (
	"strings"
	"unicode"
)

var nullTokens = map[string]struct{}{
	"":     {},
	"null": {},
	"none": {},
	"n/a":  {},
	"na":   {},
	"-":    {},
}

// IsNullToken reports whether s spells an absent value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CleanText repairs invalid UTF-8, drops control characters other than tab,
// newline and carriage return, and trims surrounding whitespace.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Text normalizes a free-text cell. Null tokens become nil.
func Text(s string) any {
	c := CleanText(s)
	if IsNullToken(c) {
		return nil
	}
	return c
}
