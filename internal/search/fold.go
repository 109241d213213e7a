// Package search normalises catalog text so lookups ignore case and accents
// the same way in every store.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace, so
// "  Acción  Móvil" and "accion movil" fold to the same string.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// Document folds every field into one searchable string.
func Document(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = Fold(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// LikePattern wraps a folded query for a LIKE ... ESCAPE '\' substring match.
func LikePattern(folded string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(folded) + "%"
}
