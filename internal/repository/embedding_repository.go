package repository

import (
	"context"
	"time"

	"newswatch/internal/domain/entity"
)

// EmbeddingRepository persists cached article vectors.
type EmbeddingRepository interface {
	// Put stores or replaces the embedding for the article.
	Put(ctx context.Context, embedding *entity.Embedding) error

	// FindByArticle returns (nil, nil) when no vector is cached.
	FindByArticle(ctx context.Context, articleID int64) (*entity.Embedding, error)

	// DeleteOlderThan evicts expired vectors.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
