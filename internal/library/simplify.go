package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMn transforms away Unicode combining marks (accents) left behind by
// NFD normalization.
var stripMn = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Simplify returns a canonicalized form of a directory or file name used as
// a library key: lower-case, accents stripped, non-alphanumerics removed,
// and a leading "the" dropped. Ported from the original Munic scanner's
// simplify() so that near-duplicate names ("The Beatles" / "Beatles",
// "Guns N' Roses" / "Guns'n'Roses") collapse onto the same key.
func Simplify(name string) string {
	folded, _, err := transform.String(stripMn, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	folded = strings.TrimPrefix(folded, "the ")
	if folded == "the" {
		folded = ""
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
