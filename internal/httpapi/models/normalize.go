package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes characters and drops combining marks, so that
// "Béton Armé" and "Beton Arme" normalize to the same key. The catalog data
// has inconsistent casing and accents across collections.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle lower-cases a title, strips diacritics and collapses runs of
// non-alphanumeric characters to single spaces. This is the exact-match key
// for reservations; fuzzy matching for recommendations is a separate path.
func NormalizeTitle(title string) string {
	stripped, _, err := transform.String(stripAccents, title)
	if err != nil {
		// keep the accented form rather than fail the lookup
		stripped = title
	}
	lowered := strings.ToLower(stripped)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, lowered)
	return strings.Join(strings.Fields(mapped), " ")
}

// TitleTokens splits a normalized title into its tokens. Used by the
// similarity scorer, never by reservation lookups.
func TitleTokens(title string) []string {
	return strings.Fields(NormalizeTitle(title))
}
