package dedup

import (
	"math"
	"time"

	"github.com/hbollon/go-edlib"

	"newswatch/internal/domain/entity"
	"newswatch/internal/utils/text"
)

// TitleSimilarity blends token-level Jaccard (0.4) with character-bigram
// Sorensen-Dice (0.6) over normalized titles. The token half catches
// reordered headlines, the bigram half catches small edits.
func TitleSimilarity(a, b string) float64 {
	na := text.Normalize(a)
	nb := text.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	jaccard := float64(edlib.JaccardSimilarity(na, nb, 0))
	dice := float64(edlib.SorensenDiceCoefficient(na, nb, 2))
	return clampUnit(0.4*jaccard + 0.6*dice)
}

// EntitySimilarity is Jaccard overlap of lowercased entity-name sets.
func EntitySimilarity(a, b *entity.Article) float64 {
	return jaccardStrings(a.EntityNames(), b.EntityNames())
}

// SemanticSimilarity is the cosine of the two embedding vectors, clamped
// to [0,1]. Vectors of mismatched dimension (API vector vs pseudo vector)
// are incomparable and score 0.
func SemanticSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clampUnit(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// TemporalProximity decays linearly from 1 at identical timestamps to 0
// at 24 hours apart.
func TemporalProximity(a, b time.Time) float64 {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return clampUnit(1 - delta.Hours()/24)
}

// SourceAlignment scores shared provenance: 0.4 for the same source, 0.3
// for the same category, 0.3 scaled by tag overlap.
func SourceAlignment(a, b *entity.Article) float64 {
	var score float64
	if a.SourceID != "" && a.SourceID == b.SourceID {
		score += 0.4
	}
	if a.Category != "" && a.Category == b.Category {
		score += 0.3
	}
	score += 0.3 * jaccardStrings(a.Tags, b.Tags)
	return clampUnit(score)
}

// Score computes the full similarity breakdown for a pair of articles.
// vecA and vecB are the articles' embedding vectors, either of which may
// be empty.
func Score(a, b *entity.Article, vecA, vecB []float32, cfg Config) entity.SimilarityBreakdown {
	return entity.SimilarityBreakdown{
		TitleSimilarity:    TitleSimilarity(a.Title, b.Title),
		ContentSimilarity:  ContentSimilarity(bodyText(a), bodyText(b), cfg),
		EntitySimilarity:   EntitySimilarity(a, b),
		SemanticSimilarity: SemanticSimilarity(vecA, vecB),
		TemporalProximity:  TemporalProximity(a.PublishedAt, b.PublishedAt),
		SourceAlignment:    SourceAlignment(a, b),
	}
}

// Combine folds the breakdown into the overall score:
// the configured title/content/entity weights plus fixed 0.30 semantic,
// 0.10 temporal and 0.10 source terms.
func Combine(b entity.SimilarityBreakdown, cfg Config) float64 {
	overall := cfg.TitleWeight*b.TitleSimilarity +
		cfg.ContentWeight*b.ContentSimilarity +
		cfg.EntityWeight*b.EntitySimilarity +
		0.30*b.SemanticSimilarity +
		0.10*b.TemporalProximity +
		0.10*b.SourceAlignment
	return clampUnit(overall)
}

// PrimaryMethod assigns the dominant detection method by precedence:
// an exact hash beats a near-identical title beats a strong semantic
// match beats heavy entity overlap; content similarity is the default.
func PrimaryMethod(b entity.SimilarityBreakdown, hashEqual bool) entity.DetectionMethod {
	switch {
	case hashEqual:
		return entity.MethodContentHash
	case b.TitleSimilarity >= 0.9:
		return entity.MethodTitleSimilarity
	case b.SemanticSimilarity >= 0.85:
		return entity.MethodSemanticSimilarity
	case b.EntitySimilarity >= 0.8:
		return entity.MethodEntitySimilarity
	default:
		return entity.MethodContentSimilarity
	}
}

// ThresholdFor returns the overall-score threshold the pair must clear
// for its primary method.
func ThresholdFor(method entity.DetectionMethod, cfg Config) float64 {
	switch method {
	case entity.MethodContentHash:
		return 1.0
	case entity.MethodTitleSimilarity:
		return 0.9
	case entity.MethodSemanticSimilarity:
		return 0.85
	case entity.MethodEntitySimilarity:
		return 0.8
	default:
		return cfg.SimilarityThreshold
	}
}

func bodyText(a *entity.Article) string {
	if a.Content != "" {
		return a.Content
	}
	return a.Summary
}

func jaccardStrings(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
