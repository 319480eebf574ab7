package ai

import (
	"context"
	"hash/fnv"
	"math"

	"newswatch/internal/utils/text"
)

// pseudoDimension is the size of hashed feature vectors. Small enough to
// stay cheap, large enough that token collisions rarely dominate a score.
const pseudoDimension = 256

// PseudoEmbedder produces deterministic hashed-token vectors without any
// API dependency. It keeps semantic scoring alive when the embeddings API
// is unavailable or unconfigured; two identical texts always map to the
// same vector, and token overlap still shows up as cosine similarity.
type PseudoEmbedder struct{}

func NewPseudoEmbedder() *PseudoEmbedder {
	return &PseudoEmbedder{}
}

func (p *PseudoEmbedder) Model() string {
	return "pseudo-hash-256"
}

// Embed maps each token to a dimension by hash, with a hash-derived sign
// so unrelated tokens cancel rather than accumulate. The result is
// L2-normalized; an empty input yields a zero vector.
func (p *PseudoEmbedder) Embed(_ context.Context, input string) ([]float32, error) {
	vector := make([]float32, pseudoDimension)

	for _, token := range text.Tokenize(input) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		index := sum % pseudoDimension
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vector[index] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}

	return vector, nil
}
