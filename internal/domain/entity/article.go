// Package entity defines the core domain entities and validation logic for the
// application. It contains the fundamental business objects such as Article,
// Feed, Cluster, DuplicateLink and Alert, along with their validation rules and
// domain-specific errors.
package entity

import (
	"strings"
	"time"
)

// Article represents a normalized news item persisted in the store.
// It is created by the normalizer, mutated exactly once by the dedup engine
// (to set the processing flags and cluster linkage) and never mutated after
// that.
type Article struct {
	ID          int64
	Title       string
	Summary     string
	Content     string // empty until full extraction ran (optional)
	URL         string
	Source      string // feed name
	SourceID    string // feed id from the feeds document
	Category    string
	Tags        []string
	Priority    string
	Author      string
	ImageURL    string
	Language    string
	Entities    []Entity
	ContentHash string
	PublishedAt time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time

	// Processing flags, owned by the dedup engine.
	DuplicateChecked  bool
	IsDuplicate       bool
	OriginalArticleID *int64
	ProcessedAt       *time.Time
	AlertSent         bool
}

// EntityType classifies an extracted named entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityMoney        EntityType = "money"
	EntityPercent      EntityType = "percent"
	EntityDate         EntityType = "date"
	EntityTicker       EntityType = "ticker"
)

// Entity is a named entity extracted from an article's title and content,
// with an extraction confidence in [0,1].
type Entity struct {
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// EntityNames returns the lowercased entity names of the article.
// Used by the dedup engine's entity-overlap signal.
func (a *Article) EntityNames() []string {
	names := make([]string, 0, len(a.Entities))
	for _, e := range a.Entities {
		names = append(names, strings.ToLower(e.Name))
	}
	return names
}

// Validate checks the article fields that the store requires.
func (a *Article) Validate() error {
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if a.ContentHash == "" {
		return &ValidationError{Field: "content_hash", Message: "must not be empty"}
	}
	if a.PublishedAt.IsZero() {
		return &ValidationError{Field: "published_at", Message: "must be set"}
	}
	return nil
}
