package textnormalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Heavy folds text into a comparison key:
// - Unicode NFKC
// - transliteration to ASCII (best-effort)
// - lowercase
// - punctuation collapse to spaces
// - whitespace collapse
//
// Catalog labels such as categories and brands are compared through Heavy so
// "Crème Co." and "creme co" count as the same brand.
func Heavy(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}

	return strings.TrimSpace(b.String())
}
