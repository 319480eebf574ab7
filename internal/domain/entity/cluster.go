package entity

import (
	"time"
)

// ClusterCentroid aggregates feature averages over the articles of a
// cluster. It is recomputed whenever cluster membership changes.
type ClusterCentroid struct {
	AvgWordCount       float64        `json:"avg_word_count"`
	AvgEntityCount     float64        `json:"avg_entity_count"`
	CommonCategories   []string       `json:"common_categories"`
	CommonTags         []string       `json:"common_tags"`
	SourceDistribution map[string]int `json:"source_distribution"`
	MeanPublishedAt    time.Time      `json:"mean_published_at"`
}

// Cluster is an equivalence class of articles the dedup engine judges to
// cover a single story.
//
// Invariants:
//   - ArticleIDs is non-empty and every referenced article exists
//   - an article belongs to at most one active cluster
//   - the member with the earliest PublishedAt is the cluster's original
//     and determines the story's canonical timestamp
type Cluster struct {
	ID         int64
	ArticleIDs []int64
	Centroid   ClusterCentroid
	Category   string
	Tags       []string
	Sources    []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Contains reports whether the cluster already lists the article.
func (c *Cluster) Contains(articleID int64) bool {
	for _, id := range c.ArticleIDs {
		if id == articleID {
			return true
		}
	}
	return false
}

// Validate checks the cluster invariants that do not require store access.
func (c *Cluster) Validate() error {
	if len(c.ArticleIDs) == 0 {
		return &ValidationError{Field: "article_ids", Message: "must not be empty"}
	}
	seen := make(map[int64]bool, len(c.ArticleIDs))
	for _, id := range c.ArticleIDs {
		if seen[id] {
			return &ValidationError{Field: "article_ids", Message: "must not contain duplicates"}
		}
		seen[id] = true
	}
	return nil
}
