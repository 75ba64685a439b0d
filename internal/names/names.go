// Package names normalizes chef names so lookups survive the accent and
// spacing variations LLM providers return (e.g. "Stephanie Le Quellec" vs
// "Stéphanie Le Quellec").
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and collapses whitespace.
func Normalize(name string) string {
	stripped, _, err := transform.String(stripMarks, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Equal reports whether two names match after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
