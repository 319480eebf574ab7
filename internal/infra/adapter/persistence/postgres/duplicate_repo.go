package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"
)

const linkColumns = `id, original_article_id, duplicate_article_id,
	similarity_score, detection_method, breakdown,
	original_title, duplicate_title, original_source, duplicate_source,
	time_delta_seconds, created_at`

type DuplicateRepo struct {
	db *sql.DB
}

func NewDuplicateRepo(db *sql.DB) repository.DuplicateRepository {
	return &DuplicateRepo{db: db}
}

func scanLink(row rowScanner) (*entity.DuplicateLink, error) {
	var link entity.DuplicateLink
	var breakdown []byte
	var deltaSeconds int64
	if err := row.Scan(
		&link.ID, &link.OriginalArticleID, &link.DuplicateArticleID,
		&link.SimilarityScore, &link.DetectionMethod, &breakdown,
		&link.OriginalTitle, &link.DuplicateTitle,
		&link.OriginalSource, &link.DuplicateSource,
		&deltaSeconds, &link.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := fromJSON(breakdown, &link.Breakdown, "breakdown"); err != nil {
		return nil, err
	}
	link.TimeDelta = time.Duration(deltaSeconds) * time.Second
	return &link, nil
}

func (repo *DuplicateRepo) Create(ctx context.Context, link *entity.DuplicateLink) error {
	defer observe("duplicate_link_create", time.Now())

	if err := link.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO duplicate_links
       (original_article_id, duplicate_article_id, similarity_score,
        detection_method, breakdown, original_title, duplicate_title,
        original_source, duplicate_source, time_delta_seconds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		link.OriginalArticleID, link.DuplicateArticleID, link.SimilarityScore,
		string(link.DetectionMethod), mustJSON(link.Breakdown),
		link.OriginalTitle, link.DuplicateTitle,
		link.OriginalSource, link.DuplicateSource,
		int64(link.TimeDelta/time.Second), link.CreatedAt,
	).Scan(&link.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateLink
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *DuplicateRepo) ListByOriginal(ctx context.Context, originalID int64) ([]*entity.DuplicateLink, error) {
	query := fmt.Sprintf(`
SELECT %s FROM duplicate_links
WHERE original_article_id = $1
ORDER BY created_at ASC`, linkColumns)

	rows, err := repo.db.QueryContext(ctx, query, originalID)
	if err != nil {
		return nil, fmt.Errorf("ListByOriginal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	links := make([]*entity.DuplicateLink, 0, 8)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOriginal: Scan: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (repo *DuplicateRepo) FindByDuplicate(ctx context.Context, duplicateID int64) (*entity.DuplicateLink, error) {
	query := fmt.Sprintf(`
SELECT %s FROM duplicate_links
WHERE duplicate_article_id = $1
LIMIT 1`, linkColumns)
	link, err := scanLink(repo.db.QueryRowContext(ctx, query, duplicateID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByDuplicate: %w", err)
	}
	return link, nil
}
