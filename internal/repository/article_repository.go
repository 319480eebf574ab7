// Package repository declares the store interfaces consumed by the pipeline
// stages. The store is the single source of truth for all mutable
// cross-stage state; implementations live under internal/infra/adapter.
package repository

import (
	"context"
	"time"

	"newswatch/internal/domain/entity"
)

// CandidateFilters restricts candidate retrieval for the dedup engine to
// articles that share at least one of source, category or tag with the
// article being scored.
type CandidateFilters struct {
	Source   string
	Category string
	Tags     []string
}

// ArticleRepository persists and queries articles.
type ArticleRepository interface {
	// Create inserts the article and assigns its ID.
	// Returns entity.ErrDuplicateURL when the URL is already stored.
	Create(ctx context.Context, article *entity.Article) error

	Get(ctx context.Context, id int64) (*entity.Article, error)

	// FindByURL returns (nil, nil) when no article has the URL.
	FindByURL(ctx context.Context, url string) (*entity.Article, error)

	// FindByContentHash returns the oldest stored article with the hash,
	// or (nil, nil) when none exists.
	FindByContentHash(ctx context.Context, hash string) (*entity.Article, error)

	// FindCandidates returns up to limit articles published at or after
	// since (window boundary inclusive), excluding excludeID, that match
	// at least one of the filters, newest first.
	FindCandidates(ctx context.Context, since time.Time, excludeID int64, filters CandidateFilters, limit int) ([]*entity.Article, error)

	// ListUnchecked returns up to limit articles that have not been
	// duplicate-checked yet, oldest first. Used to drain the dedup
	// backlog after a restart.
	ListUnchecked(ctx context.Context, limit int) ([]*entity.Article, error)

	// UpdateDuplicateFlags atomically records the outcome of a dedup
	// decision: duplicate_checked, is_duplicate, original_article_id and
	// processed_at.
	UpdateDuplicateFlags(ctx context.Context, id int64, isDuplicate bool, originalID *int64, processedAt time.Time) error

	// MarkAlertSent flips the alert_sent flag once an alert has been
	// admitted for the article.
	MarkAlertSent(ctx context.Context, id int64) error

	// DeleteOlderThan evicts articles past the retention horizon.
	// Returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
