package text

import "strings"

// stopwords are high-frequency English words that carry no topical signal
// and are excluded from similarity tokens.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "he": {}, "her": {}, "his": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "says": {},
	"she": {}, "that": {}, "the": {}, "their": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "will": {}, "with": {},
}

// IsStopword reports whether the (already lowercased) word is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Tokenize splits normalized text into similarity tokens: whitespace-split
// words with stopwords and single-rune fragments removed. Input is expected
// to already be normalized via Normalize.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if IsStopword(f) {
			continue
		}
		if len([]rune(f)) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenSet returns the unique tokens of normalized text as a set.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// WordCount counts whitespace-separated words, stopwords included. Used for
// cluster centroids and quality gating rather than similarity.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
