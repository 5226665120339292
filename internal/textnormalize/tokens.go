package textnormalize

import "strings"

// Tokens lowercases s, splits it on whitespace, strips every character outside
// [a-z0-9] from each piece and drops pieces that end up empty.
//
// Unlike Heavy it does not transliterate: "café" becomes "caf".
func Tokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := stripNonAlnum(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TokenSet is Tokens collected into a set.
func TokenSet(s string) map[string]struct{} {
	toks := Tokens(s)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
