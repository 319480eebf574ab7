// Package ai provides the model-backed components of the dedup engine: an
// OpenAI embedder with a deterministic pseudo-embedding fallback, a cached
// embedding service and a Claude validator for borderline duplicate
// decisions. All API calls run behind circuit breakers and retry logic.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"newswatch/internal/pkg/config"
	"newswatch/internal/resilience/circuitbreaker"
	"newswatch/internal/resilience/retry"
	"newswatch/internal/utils/text"
)

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)

	// Model identifies the embedding model, stored alongside cached
	// vectors so a model change invalidates the cache.
	Model() string
}

// maxEmbedChars bounds the text sent to the embeddings API.
const maxEmbedChars = 8000

// OpenAIEmbedderConfig holds configuration for the OpenAI embedder.
type OpenAIEmbedderConfig struct {
	Model   string
	Timeout time.Duration
}

// LoadOpenAIEmbedderConfig loads embedder settings from environment
// variables, falling back to defaults on invalid values.
//
// Environment variables:
//   - EMBEDDING_MODEL: embedding model identifier (default: text-embedding-3-small)
//   - EMBEDDING_TIMEOUT: per-request timeout (default: 15s)
func LoadOpenAIEmbedderConfig() OpenAIEmbedderConfig {
	timeout := config.LoadEnvDuration("EMBEDDING_TIMEOUT", 15*time.Second, config.ValidatePositiveDuration)
	for _, warning := range timeout.Warnings {
		slog.Warn(warning)
	}
	return OpenAIEmbedderConfig{
		Model:   config.LoadEnvString("EMBEDDING_MODEL", string(openai.SmallEmbedding3)),
		Timeout: timeout.Value.(time.Duration),
	}
}

// OpenAIEmbedder calls the OpenAI embeddings API with circuit breaker and
// retry protection.
type OpenAIEmbedder struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         OpenAIEmbedderConfig
}

// NewOpenAIEmbedder creates an embedder with the given API key.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	cfg := LoadOpenAIEmbedderConfig()

	slog.Info("initialized openai embedder",
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout))

	return &OpenAIEmbedder{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         cfg,
	}
}

func (e *OpenAIEmbedder) Model() string {
	return e.config.Model
}

// Embed returns the embedding vector for input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var result []float32

	retryErr := retry.WithBackoff(ctx, e.retryConfig, func() error {
		cbResult, err := e.circuitBreaker.Execute(func() (interface{}, error) {
			return e.doEmbed(ctx, input)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", e.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.([]float32)
		return nil
	})

	if retryErr != nil {
		return nil, fmt.Errorf("openai embed failed after retries: %w", retryErr)
	}

	return result, nil
}

// doEmbed performs the actual API call without retry or circuit breaker.
func (e *OpenAIEmbedder) doEmbed(ctx context.Context, input string) (interface{}, error) {
	truncated := text.TruncateRunes(input, maxEmbedChars)

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{truncated},
		Model: openai.EmbeddingModel(e.config.Model),
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "embedding request failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai api returned empty embedding")
	}

	slog.DebugContext(ctx, "embedding request completed",
		slog.Int("dimension", len(resp.Data[0].Embedding)),
		slog.Duration("duration", duration))

	return resp.Data[0].Embedding, nil
}
