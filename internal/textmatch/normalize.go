// Package textmatch provides text normalization and lexical similarity
// scoring used to match user messages against course titles.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes characters and drops combining marks,
// so "Panadería" and "panaderia" normalize identically.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, replaces every character that is
// not a letter, digit or whitespace with a space, collapses whitespace and
// trims. It is a total function: empty input yields empty output, and the
// result is idempotent under a second application.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	stripped, _, err := transform.String(stripDiacritics, lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenSet returns the unique whitespace-separated tokens of a normalized string.
func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
