package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepo caches article vectors in pgvector. One row per article;
// a re-embed with a different model replaces the cached vector.
type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) repository.EmbeddingRepository {
	return &EmbeddingRepo{db: db}
}

func (repo *EmbeddingRepo) Put(ctx context.Context, embedding *entity.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("Put: embedding is nil")
	}
	if err := embedding.Validate(); err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	vector := pgvector.NewVector(embedding.Vector)

	const query = `
INSERT INTO article_embeddings (article_id, embedding, model, text_length, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (article_id)
DO UPDATE SET
	embedding   = EXCLUDED.embedding,
	model       = EXCLUDED.model,
	text_length = EXCLUDED.text_length,
	created_at  = NOW()
RETURNING created_at`
	err := repo.db.QueryRowContext(ctx, query,
		embedding.ArticleID, vector, embedding.Model, embedding.TextLength,
	).Scan(&embedding.CreatedAt)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

func (repo *EmbeddingRepo) FindByArticle(ctx context.Context, articleID int64) (*entity.Embedding, error) {
	const query = `
SELECT article_id, embedding, model, text_length, created_at
FROM article_embeddings
WHERE article_id = $1
LIMIT 1`

	var embedding entity.Embedding
	var vector pgvector.Vector
	err := repo.db.QueryRowContext(ctx, query, articleID).Scan(
		&embedding.ArticleID, &vector, &embedding.Model,
		&embedding.TextLength, &embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByArticle: %w", err)
	}

	embedding.Vector = vector.Slice()
	return &embedding, nil
}

func (repo *EmbeddingRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observe("embedding_delete_older", time.Now())

	const query = `DELETE FROM article_embeddings WHERE created_at < $1`
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
