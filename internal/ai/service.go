package ai

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"newswatch/internal/domain/entity"
	"newswatch/internal/observability/metrics"
	"newswatch/internal/pkg/config"
	"newswatch/internal/repository"
	"newswatch/internal/utils/text"
)

// embeddingStore is the slice of the embedding repository the service
// needs. nil disables persistence (pgvector unavailable).
type embeddingStore interface {
	Put(ctx context.Context, embedding *entity.Embedding) error
	FindByArticle(ctx context.Context, articleID int64) (*entity.Embedding, error)
}

var _ embeddingStore = (repository.EmbeddingRepository)(nil)

// EmbeddingService resolves article vectors through a three-tier lookup:
// in-process LRU, the persistent cache, then the embeddings API. When the
// API fails it degrades to pseudo-embeddings so semantic scoring never
// blocks the dedup pipeline. Pseudo vectors are kept in the LRU but never
// persisted.
type EmbeddingService struct {
	primary  Embedder // nil when no API key is configured
	fallback Embedder
	store    embeddingStore // nil when persistence is unavailable
	cache    *lru.Cache[int64, []float32]
}

// NewEmbeddingService builds the service. primary and store may be nil.
//
// Environment variables:
//   - EMBEDDING_CACHE_SIZE: LRU entries (default: 2048, range: 16-1000000)
func NewEmbeddingService(primary Embedder, store embeddingStore) *EmbeddingService {
	size := config.LoadEnvInt("EMBEDDING_CACHE_SIZE", 2048, func(v int) error {
		return config.ValidateIntRange(v, 16, 1_000_000)
	})
	for _, warning := range size.Warnings {
		slog.Warn(warning)
	}

	cache, _ := lru.New[int64, []float32](size.Value.(int))

	return &EmbeddingService{
		primary:  primary,
		fallback: NewPseudoEmbedder(),
		store:    store,
		cache:    cache,
	}
}

// Vector returns the embedding for the article. It never returns an error
// for API failures; callers can distinguish degraded vectors via the
// second return value, which is false for pseudo-embeddings.
func (s *EmbeddingService) Vector(ctx context.Context, article *entity.Article) ([]float32, bool) {
	if vec, ok := s.cache.Get(article.ID); ok {
		metrics.RecordEmbeddingRequest("cache_hit")
		// Pseudo vectors are recognizable by their fixed dimension.
		return vec, len(vec) != pseudoDimension
	}

	if s.store != nil {
		cached, err := s.store.FindByArticle(ctx, article.ID)
		if err != nil {
			slog.Warn("embedding cache lookup failed",
				slog.Int64("article_id", article.ID),
				slog.String("error", err.Error()))
		} else if cached != nil && (s.primary == nil || cached.Model == s.primary.Model()) {
			metrics.RecordEmbeddingRequest("cache_hit")
			s.cache.Add(article.ID, cached.Vector)
			return cached.Vector, true
		}
	}

	input := embedText(article)

	if s.primary != nil {
		vec, err := s.primary.Embed(ctx, input)
		if err == nil {
			metrics.RecordEmbeddingRequest("api_success")
			s.cache.Add(article.ID, vec)
			s.persist(ctx, article.ID, vec, len(input))
			return vec, true
		}
		metrics.RecordEmbeddingRequest("api_failure")
		slog.Warn("embedding api failed, using pseudo vector",
			slog.Int64("article_id", article.ID),
			slog.String("error", err.Error()))
	}

	vec, _ := s.fallback.Embed(ctx, input)
	metrics.RecordEmbeddingRequest("pseudo")
	s.cache.Add(article.ID, vec)
	return vec, false
}

func (s *EmbeddingService) persist(ctx context.Context, articleID int64, vec []float32, textLength int) {
	if s.store == nil {
		return
	}
	err := s.store.Put(ctx, &entity.Embedding{
		ArticleID:  articleID,
		Vector:     vec,
		Model:      s.primary.Model(),
		TextLength: textLength,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		slog.Warn("embedding persist failed",
			slog.Int64("article_id", articleID),
			slog.String("error", err.Error()))
	}
}

// embedText assembles the text embedded for an article: title plus the
// richest body available.
func embedText(article *entity.Article) string {
	body := article.Content
	if body == "" {
		body = article.Summary
	}
	return text.TruncateRunes(article.Title+". "+body, maxEmbedChars)
}
