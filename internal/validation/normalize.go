package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds an answer into its canonical comparison form: lowercase,
// diacritics stripped, non-alphanumerics dropped, whitespace collapsed.
// "Müller-Thurgau " and "muller thurgau" normalize identically.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Transformers are stateful, build a fresh chain per call
	deaccent := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
