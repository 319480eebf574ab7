package dedup

import (
	"math"

	"newswatch/internal/utils/text"
)

// ContentSimilarity computes TF-IDF cosine similarity over the pairwise
// two-document corpus. Tokens are stopword-filtered and both the document
// length and the vocabulary are bounded by the config caps, so a pair of
// very long articles costs a fixed amount of work.
//
// The IDF is computed over just the two documents: terms appearing in
// both carry less weight than terms unique to one, which is enough to
// separate boilerplate from story-specific vocabulary without a global
// corpus.
func ContentSimilarity(a, b string, cfg Config) float64 {
	tokensA := boundedTokens(a, cfg.MaxDocTokens)
	tokensB := boundedTokens(b, cfg.MaxDocTokens)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	tfA := termFrequencies(tokensA)
	tfB := termFrequencies(tokensB)

	// Terms enter the vocabulary in token-stream order so the cap cuts
	// the same terms on every run.
	vocabulary := make(map[string]struct{}, len(tfA)+len(tfB))
	for _, tokens := range [][]string{tokensA, tokensB} {
		for _, term := range tokens {
			if len(vocabulary) >= cfg.MaxVocabulary {
				break
			}
			vocabulary[term] = struct{}{}
		}
	}

	var dot, normA, normB float64
	for term := range vocabulary {
		df := 0
		if tfA[term] > 0 {
			df++
		}
		if tfB[term] > 0 {
			df++
		}
		// Smoothed IDF over the 2-document corpus.
		idf := math.Log(2.0/(1.0+float64(df))) + 1.0

		weightA := tfA[term] * idf
		weightB := tfB[term] * idf
		dot += weightA * weightB
		normA += weightA * weightA
		normB += weightB * weightB
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func boundedTokens(s string, maxTokens int) []string {
	tokens := text.Tokenize(s)
	if maxTokens > 0 && len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	return tokens
}

func termFrequencies(tokens []string) map[string]float64 {
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	total := float64(len(tokens))
	for term := range counts {
		counts[term] /= total
	}
	return counts
}
