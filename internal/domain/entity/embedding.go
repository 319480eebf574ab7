package entity

import "time"

// Embedding is a cached dense vector for an article. One embedding per
// article per model; expired by the store's TTL compaction (default 7 days).
type Embedding struct {
	ArticleID  int64
	Vector     []float32
	Model      string
	TextLength int
	CreatedAt  time.Time
}

// Validate checks the embedding fields the store requires.
func (e *Embedding) Validate() error {
	if e.ArticleID == 0 {
		return &ValidationError{Field: "article_id", Message: "must be set"}
	}
	if len(e.Vector) == 0 {
		return &ValidationError{Field: "vector", Message: "must not be empty"}
	}
	if e.Model == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	return nil
}
