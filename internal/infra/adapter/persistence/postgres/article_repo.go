package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"
)

// articleColumns is the scan order shared by every article query.
const articleColumns = `id, title, summary, content, url, source, source_id, category,
	tags, priority, author, image_url, language, entities, content_hash,
	published_at, fetched_at, created_at,
	duplicate_checked, is_duplicate, original_article_id, processed_at, alert_sent`

type ArticleRepo struct {
	db           *sql.DB
	queryBuilder *CandidateQueryBuilder
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewCandidateQueryBuilder(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*entity.Article, error) {
	var article entity.Article
	var tags, entities []byte
	if err := row.Scan(
		&article.ID, &article.Title, &article.Summary, &article.Content,
		&article.URL, &article.Source, &article.SourceID, &article.Category,
		&tags, &article.Priority, &article.Author, &article.ImageURL,
		&article.Language, &entities, &article.ContentHash,
		&article.PublishedAt, &article.FetchedAt, &article.CreatedAt,
		&article.DuplicateChecked, &article.IsDuplicate,
		&article.OriginalArticleID, &article.ProcessedAt, &article.AlertSent,
	); err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &article.Tags, "tags"); err != nil {
		return nil, err
	}
	if err := fromJSON(entities, &article.Entities, "entities"); err != nil {
		return nil, err
	}
	return &article, nil
}

func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	defer observe("article_create", time.Now())

	if err := article.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO articles
       (title, summary, content, url, source, source_id, category, tags,
        priority, author, image_url, language, entities, content_hash,
        published_at, fetched_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		article.Title, article.Summary, article.Content, article.URL,
		article.Source, article.SourceID, article.Category,
		mustJSON(article.Tags), article.Priority, article.Author,
		article.ImageURL, article.Language, mustJSON(article.Entities),
		article.ContentHash, article.PublishedAt, article.FetchedAt,
		article.CreatedAt,
	).Scan(&article.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateURL
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1 LIMIT 1`, articleColumns)
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) FindByURL(ctx context.Context, url string) (*entity.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE url = $1 LIMIT 1`, articleColumns)
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByURL: %w", err)
	}
	return article, nil
}

// FindByContentHash returns the oldest article carrying the hash so the
// exact-match short circuit always links to the first publication.
func (repo *ArticleRepo) FindByContentHash(ctx context.Context, hash string) (*entity.Article, error) {
	query := fmt.Sprintf(`
SELECT %s FROM articles
WHERE content_hash = $1
ORDER BY published_at ASC, id ASC
LIMIT 1`, articleColumns)
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByContentHash: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) FindCandidates(ctx context.Context, since time.Time, excludeID int64, filters repository.CandidateFilters, limit int) ([]*entity.Article, error) {
	defer observe("article_find_candidates", time.Now())

	whereClause, args := repo.queryBuilder.BuildWhereClause(since, excludeID, filters)
	paramIndex := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s FROM articles
%s
ORDER BY published_at DESC, id DESC
LIMIT $%d`, articleColumns, whereClause, paramIndex)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FindCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("FindCandidates: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) ListUnchecked(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := fmt.Sprintf(`
SELECT %s FROM articles
WHERE duplicate_checked = FALSE
ORDER BY id ASC
LIMIT $1`, articleColumns)

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnchecked: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUnchecked: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) UpdateDuplicateFlags(ctx context.Context, id int64, isDuplicate bool, originalID *int64, processedAt time.Time) error {
	defer observe("article_update_flags", time.Now())

	const query = `
UPDATE articles SET
       duplicate_checked   = TRUE,
       is_duplicate        = $1,
       original_article_id = $2,
       processed_at        = $3
WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, isDuplicate, originalID, processedAt, id)
	if err != nil {
		return fmt.Errorf("UpdateDuplicateFlags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateDuplicateFlags: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) MarkAlertSent(ctx context.Context, id int64) error {
	const query = `UPDATE articles SET alert_sent = TRUE WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("MarkAlertSent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkAlertSent: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observe("article_delete_older", time.Now())

	const query = `DELETE FROM articles WHERE published_at < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: RowsAffected: %w", err)
	}
	return count, nil
}
