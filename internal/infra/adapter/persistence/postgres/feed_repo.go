package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"
)

const feedColumns = `id, name, url, category, priority, enabled, tags,
	last_fetched_at, articles_processed, error_count, last_error, last_error_at`

type FeedRepo struct {
	db *sql.DB
}

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

func scanFeed(row rowScanner) (*entity.Feed, error) {
	var feed entity.Feed
	var tags []byte
	if err := row.Scan(
		&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Priority,
		&feed.Enabled, &tags, &feed.LastFetchedAt, &feed.ArticlesProcessed,
		&feed.ErrorCount, &feed.LastError, &feed.LastErrorAt,
	); err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &feed.Tags, "tags"); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Upsert reconciles a feed definition from the feeds document with the
// store. Configuration columns are overwritten; runtime counters are
// preserved across restarts.
func (repo *FeedRepo) Upsert(ctx context.Context, feed *entity.Feed) error {
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	const query = `
INSERT INTO feeds (id, name, url, category, priority, enabled, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id)
DO UPDATE SET
	name     = EXCLUDED.name,
	url      = EXCLUDED.url,
	category = EXCLUDED.category,
	priority = EXCLUDED.priority,
	enabled  = EXCLUDED.enabled,
	tags     = EXCLUDED.tags`
	_, err := repo.db.ExecContext(ctx, query,
		feed.ID, feed.Name, feed.URL, feed.Category, feed.Priority,
		feed.Enabled, mustJSON(feed.Tags),
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	query := fmt.Sprintf(`
SELECT %s FROM feeds
WHERE enabled = TRUE
ORDER BY id`, feedColumns)

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEnabled: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 16)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEnabled: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) Get(ctx context.Context, id string) (*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE id = $1 LIMIT 1`, feedColumns)
	feed, err := scanFeed(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) TouchFetched(ctx context.Context, id string, at time.Time, processed int64) error {
	const query = `
UPDATE feeds SET
       last_fetched_at    = $1,
       articles_processed = articles_processed + $2
WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, at, processed, id)
	if err != nil {
		return fmt.Errorf("TouchFetched: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("TouchFetched: no rows affected")
	}
	return nil
}

func (repo *FeedRepo) RecordError(ctx context.Context, id string, at time.Time, message string) error {
	const query = `
UPDATE feeds SET
       error_count   = error_count + 1,
       last_error    = $1,
       last_error_at = $2
WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, message, at, id)
	if err != nil {
		return fmt.Errorf("RecordError: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("RecordError: no rows affected")
	}
	return nil
}
