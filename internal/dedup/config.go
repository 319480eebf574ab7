// Package dedup implements near-duplicate detection over a moving time
// window: candidate retrieval, multi-signal similarity scoring, original
// election and story clustering.
package dedup

import (
	"fmt"
	"log/slog"
	"time"

	"newswatch/internal/pkg/config"
)

// Config holds the dedup engine knobs.
//
// Operational knobs (window, batch size, caps) load fail-open; the
// correctness-critical weights and thresholds are validated fail-closed
// by Validate because silently falling back on a mistyped weight would
// change every duplicate decision.
type Config struct {
	// TimeWindow is the trailing window candidates are drawn from.
	TimeWindow time.Duration

	// CandidateLimit caps candidate retrieval per article.
	CandidateLimit int

	// Signal weights for title, content and entity similarity.
	// Must sum to 1.0.
	TitleWeight   float64
	ContentWeight float64
	EntityWeight  float64

	// SimilarityThreshold applies when no stronger signal dominates.
	SimilarityThreshold float64

	// MinOverall discards candidates cheaply before full consideration.
	MinOverall float64

	// LLM validation gate: consulted when the overall score falls in
	// [LLMBandLow, threshold+LLMBandSlack]; a confirmation needs
	// confidence >= LLMMinConfidence.
	LLMBandLow       float64
	LLMBandSlack     float64
	LLMMinConfidence float64

	// BatchSize bounds queue drains; the engine is single-active.
	BatchSize int

	// MaxAttempts bounds per-article re-enqueues on recoverable errors.
	MaxAttempts int

	// TF-IDF bounds for content similarity.
	MaxVocabulary int
	MaxDocTokens  int

	// ClusterMergeThreshold is the inter-cluster similarity above which
	// the offline merge pass combines two clusters.
	ClusterMergeThreshold float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TimeWindow:            24 * time.Hour,
		CandidateLimit:        50,
		TitleWeight:           0.4,
		ContentWeight:         0.4,
		EntityWeight:          0.2,
		SimilarityThreshold:   0.85,
		MinOverall:            0.3,
		LLMBandLow:            0.7,
		LLMBandSlack:          0.05,
		LLMMinConfidence:      0.85,
		BatchSize:             50,
		MaxAttempts:           3,
		MaxVocabulary:         5000,
		MaxDocTokens:          1000,
		ClusterMergeThreshold: 0.8,
	}
}

// LoadConfig reads the engine configuration from environment variables.
// Returns an error only for fail-closed knobs (weights, thresholds).
//
// Environment variables:
//   - DEDUP_TIME_WINDOW_HOURS (default 24, range 1-168)
//   - DEDUP_CANDIDATE_LIMIT (default 50, range 1-500)
//   - DEDUP_TITLE_WEIGHT / DEDUP_CONTENT_WEIGHT / DEDUP_ENTITY_WEIGHT
//   - DEDUP_SIMILARITY_THRESHOLD (default 0.85)
//   - DEDUP_BATCH_SIZE (default 50, range 1-500)
//   - DEDUP_MAX_VOCABULARY (default 5000) / DEDUP_MAX_DOC_TOKENS (default 1000)
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	windowHours := config.LoadEnvInt("DEDUP_TIME_WINDOW_HOURS", 24, func(v int) error {
		return config.ValidateIntRange(v, 1, 168)
	})
	candidateLimit := config.LoadEnvInt("DEDUP_CANDIDATE_LIMIT", 50, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})
	batchSize := config.LoadEnvInt("DEDUP_BATCH_SIZE", 50, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})
	maxVocab := config.LoadEnvInt("DEDUP_MAX_VOCABULARY", 5000, func(v int) error {
		return config.ValidateIntRange(v, 100, 100_000)
	})
	maxDocTokens := config.LoadEnvInt("DEDUP_MAX_DOC_TOKENS", 1000, func(v int) error {
		return config.ValidateIntRange(v, 50, 10_000)
	})
	for _, result := range []config.ConfigLoadResult{windowHours, candidateLimit, batchSize, maxVocab, maxDocTokens} {
		for _, warning := range result.Warnings {
			slog.Warn(warning)
		}
	}
	cfg.TimeWindow = time.Duration(windowHours.Value.(int)) * time.Hour
	cfg.CandidateLimit = candidateLimit.Value.(int)
	cfg.BatchSize = batchSize.Value.(int)
	cfg.MaxVocabulary = maxVocab.Value.(int)
	cfg.MaxDocTokens = maxDocTokens.Value.(int)

	// Fail-closed knobs: a parse error here must abort startup, so the
	// raw values are read without fallback and validated together.
	titleWeight := config.LoadEnvFloat("DEDUP_TITLE_WEIGHT", cfg.TitleWeight, nil)
	contentWeight := config.LoadEnvFloat("DEDUP_CONTENT_WEIGHT", cfg.ContentWeight, nil)
	entityWeight := config.LoadEnvFloat("DEDUP_ENTITY_WEIGHT", cfg.EntityWeight, nil)
	threshold := config.LoadEnvFloat("DEDUP_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold, nil)
	if titleWeight.FallbackApplied || contentWeight.FallbackApplied ||
		entityWeight.FallbackApplied || threshold.FallbackApplied {
		return Config{}, fmt.Errorf("LoadConfig: malformed similarity weight or threshold")
	}
	cfg.TitleWeight = titleWeight.Value.(float64)
	cfg.ContentWeight = contentWeight.Value.(float64)
	cfg.EntityWeight = entityWeight.Value.(float64)
	cfg.SimilarityThreshold = threshold.Value.(float64)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}
	return cfg, nil
}

// Validate checks the fail-closed knobs.
func (c Config) Validate() error {
	if err := config.ValidateWeightsSum(c.TitleWeight, c.ContentWeight, c.EntityWeight); err != nil {
		return fmt.Errorf("similarity weights: %w", err)
	}
	for name, v := range map[string]float64{
		"similarity_threshold":    c.SimilarityThreshold,
		"min_overall":             c.MinOverall,
		"llm_band_low":            c.LLMBandLow,
		"llm_min_confidence":      c.LLMMinConfidence,
		"cluster_merge_threshold": c.ClusterMergeThreshold,
	} {
		if err := config.ValidateUnitInterval(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.TimeWindow <= 0 {
		return fmt.Errorf("time window must be positive, got %v", c.TimeWindow)
	}
	if c.BatchSize <= 0 || c.CandidateLimit <= 0 {
		return fmt.Errorf("batch size and candidate limit must be positive")
	}
	return nil
}
