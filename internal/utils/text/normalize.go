package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text for hashing and similarity comparison:
// Unicode NFKC normalization, lowercasing, punctuation stripped to spaces,
// and whitespace runs collapsed to single spaces.
//
// Two texts that differ only in casing, punctuation, compatibility forms
// (full-width characters, ligatures) or whitespace normalize to the same
// string.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// TruncateRunes truncates text to at most n runes. Multi-byte characters
// are never split.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
