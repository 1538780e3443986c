// Package suggest produces data-cleanup recommendations: clusters of
// near-duplicate activity titles and per-event data-quality findings.
package suggest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Normalize prepares a title for comparison: lowercase, strip every rune
// that is not a letter, digit, underscore or whitespace, collapse
// whitespace runs to one space and trim. Stored titles are never changed.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Levenshtein is the unit-cost insert/delete/substitute distance over runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity scores two titles in [0,1] after normalisation: 1 for equal
// strings, shorter/longer length when one contains the other, otherwise
// 1 - distance/maxLength.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}

	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	longer, shorter := max(la, lb), min(la, lb)

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return float64(shorter) / float64(longer)
	}
	return 1 - float64(Levenshtein(na, nb))/float64(longer)
}
