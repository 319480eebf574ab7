package repository

import (
	"context"
	"time"

	"newswatch/internal/domain/entity"
)

// FeedRepository persists feed configuration and runtime counters.
// Feed definitions originate in the feeds document; Upsert reconciles the
// store with the document at startup so counters survive restarts.
type FeedRepository interface {
	Upsert(ctx context.Context, feed *entity.Feed) error

	ListEnabled(ctx context.Context) ([]*entity.Feed, error)

	Get(ctx context.Context, id string) (*entity.Feed, error)

	// TouchFetched records a successful fetch: last_fetched_at plus the
	// number of items processed.
	TouchFetched(ctx context.Context, id string, at time.Time, processed int64) error

	// RecordError increments error_count and stores the last error.
	RecordError(ctx context.Context, id string, at time.Time, message string) error
}
