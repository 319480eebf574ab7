package postgres

import (
	"context"
	"testing"
	"time"

	"newswatch/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkColumnNames = []string{
	"id", "original_article_id", "duplicate_article_id", "similarity_score",
	"detection_method", "breakdown", "original_title", "duplicate_title",
	"original_source", "duplicate_source", "time_delta_seconds", "created_at",
}

func testLink() *entity.DuplicateLink {
	return &entity.DuplicateLink{
		OriginalArticleID:  3,
		DuplicateArticleID: 9,
		SimilarityScore:    0.93,
		DetectionMethod:    entity.MethodTitleSimilarity,
		Breakdown:          entity.SimilarityBreakdown{TitleSimilarity: 0.95},
		OriginalTitle:      "ECB holds rates",
		DuplicateTitle:     "ECB keeps rates unchanged",
		TimeDelta:          45 * time.Minute,
		CreatedAt:          time.Now(),
	}
}

func TestDuplicateRepo_Create_AssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("INSERT INTO duplicate_links").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	repo := NewDuplicateRepo(db)
	link := testLink()
	err = repo.Create(context.Background(), link)

	require.NoError(t, err)
	assert.Equal(t, int64(5), link.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateRepo_Create_ExistingPair(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("INSERT INTO duplicate_links").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewDuplicateRepo(db)
	err = repo.Create(context.Background(), testLink())

	assert.ErrorIs(t, err, entity.ErrDuplicateLink)
}

func TestDuplicateRepo_Create_SelfLink(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewDuplicateRepo(db)
	link := testLink()
	link.DuplicateArticleID = link.OriginalArticleID

	err = repo.Create(context.Background(), link)
	assert.Error(t, err)
}

func TestDuplicateRepo_FindByDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	createdAt := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM duplicate_links").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(linkColumnNames).
			AddRow(int64(5), int64(3), int64(9), 0.93, "title_similarity",
				[]byte(`{"title_similarity":0.95}`),
				"ECB holds rates", "ECB keeps rates unchanged",
				"Reuters", "Bloomberg", int64(2700), createdAt))

	repo := NewDuplicateRepo(db)
	link, err := repo.FindByDuplicate(context.Background(), 9)

	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, int64(3), link.OriginalArticleID)
	assert.Equal(t, entity.MethodTitleSimilarity, link.DetectionMethod)
	assert.Equal(t, 45*time.Minute, link.TimeDelta)
	assert.InDelta(t, 0.95, link.Breakdown.TitleSimilarity, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateRepo_FindByDuplicate_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT (.+) FROM duplicate_links").
		WillReturnRows(sqlmock.NewRows(linkColumnNames))

	repo := NewDuplicateRepo(db)
	link, err := repo.FindByDuplicate(context.Background(), 99)

	require.NoError(t, err)
	assert.Nil(t, link)
}
