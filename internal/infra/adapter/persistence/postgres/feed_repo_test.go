package postgres

import (
	"context"
	"testing"
	"time"

	"newswatch/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedColumnNames = []string{
	"id", "name", "url", "category", "priority", "enabled", "tags",
	"last_fetched_at", "articles_processed", "error_count", "last_error",
	"last_error_at",
}

func TestFeedRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO feeds").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewFeedRepo(db)
	err = repo.Upsert(context.Background(), &entity.Feed{
		ID:       "reuters-top",
		Name:     "Reuters Top News",
		URL:      "https://feeds.reuters.com/top",
		Category: "general",
		Priority: "high",
		Enabled:  true,
		Tags:     []string{"wire"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_Upsert_RejectsInvalidURL(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewFeedRepo(db)
	err = repo.Upsert(context.Background(), &entity.Feed{
		ID:   "bad",
		Name: "Bad",
		URL:  "ftp://example.com/feed",
	})

	assert.Error(t, err)
}

func TestFeedRepo_ListEnabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	fetchedAt := time.Now().Add(-5 * time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM feeds").
		WillReturnRows(sqlmock.NewRows(feedColumnNames).
			AddRow("reuters-top", "Reuters Top News", "https://feeds.reuters.com/top",
				"general", "high", true, []byte(`["wire"]`), fetchedAt,
				int64(120), int64(2), "timeout", fetchedAt))

	repo := NewFeedRepo(db)
	feeds, err := repo.ListEnabled(context.Background())

	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "reuters-top", feeds[0].ID)
	assert.Equal(t, int64(120), feeds[0].ArticlesProcessed)
	assert.Equal(t, []string{"wire"}, feeds[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_TouchFetched(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	at := time.Now()
	mock.ExpectExec("UPDATE feeds SET").
		WithArgs(at, int64(8), "reuters-top").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewFeedRepo(db)
	err = repo.TouchFetched(context.Background(), "reuters-top", at, 8)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_RecordError_UnknownFeed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("UPDATE feeds SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewFeedRepo(db)
	err = repo.RecordError(context.Background(), "missing", time.Now(), "boom")

	assert.Error(t, err)
}
