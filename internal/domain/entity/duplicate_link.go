package entity

import "time"

// DetectionMethod identifies the dominant similarity signal behind a
// duplicate decision. It is a closed set: thresholding code switches over
// every value, and AllDetectionMethods keeps validation exhaustive.
type DetectionMethod string

const (
	MethodContentHash        DetectionMethod = "content_hash"
	MethodTitleSimilarity    DetectionMethod = "title_similarity"
	MethodContentSimilarity  DetectionMethod = "content_similarity"
	MethodEntitySimilarity   DetectionMethod = "entity_similarity"
	MethodSemanticSimilarity DetectionMethod = "semantic_similarity"
)

// AllDetectionMethods lists every valid DetectionMethod.
var AllDetectionMethods = []DetectionMethod{
	MethodContentHash,
	MethodTitleSimilarity,
	MethodContentSimilarity,
	MethodEntitySimilarity,
	MethodSemanticSimilarity,
}

// Valid reports whether m is a known detection method.
func (m DetectionMethod) Valid() bool {
	for _, known := range AllDetectionMethods {
		if m == known {
			return true
		}
	}
	return false
}

// SimilarityBreakdown carries the per-signal scores that contributed to an
// overall similarity decision. All values are in [0,1].
type SimilarityBreakdown struct {
	TitleSimilarity    float64 `json:"title_similarity"`
	ContentSimilarity  float64 `json:"content_similarity"`
	EntitySimilarity   float64 `json:"entity_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	TemporalProximity  float64 `json:"temporal_proximity"`
	SourceAlignment    float64 `json:"source_alignment"`
}

// DuplicateLink is a directed edge from a duplicate article to its elected
// original.
//
// Invariants enforced by the store and the engine:
//   - (OriginalArticleID, DuplicateArticleID) is unique
//   - OriginalArticleID != DuplicateArticleID
//   - original.PublishedAt <= duplicate.PublishedAt
type DuplicateLink struct {
	ID                 int64
	OriginalArticleID  int64
	DuplicateArticleID int64
	SimilarityScore    float64
	DetectionMethod    DetectionMethod
	Breakdown          SimilarityBreakdown

	// Metadata snapshot taken at detection time.
	OriginalTitle   string
	DuplicateTitle  string
	OriginalSource  string
	DuplicateSource string
	TimeDelta       time.Duration

	CreatedAt time.Time
}

// Validate checks the link invariants that do not require store access.
func (l *DuplicateLink) Validate() error {
	if l.OriginalArticleID == l.DuplicateArticleID {
		return &ValidationError{Field: "duplicate_article_id", Message: "must differ from original_article_id"}
	}
	if l.SimilarityScore < 0 || l.SimilarityScore > 1 {
		return &ValidationError{Field: "similarity_score", Message: "must be in [0,1]"}
	}
	if !l.DetectionMethod.Valid() {
		return &ValidationError{Field: "detection_method", Message: "unknown method"}
	}
	return nil
}
