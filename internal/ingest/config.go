// Package ingest runs the front of the pipeline: the cron-driven crawl
// cycle that fetches every enabled feed, normalizes its items and hands
// fresh articles to the dedup engine, plus the offline maintenance passes
// (cluster merge, store compaction).
package ingest

import (
	"log/slog"
	"time"

	"newswatch/internal/pkg/config"
)

// Config holds the crawl and maintenance knobs.
type Config struct {
	// RefreshInterval is the crawl cycle cadence.
	RefreshInterval time.Duration

	// MaxConcurrentFeeds bounds feed-level crawl parallelism.
	MaxConcurrentFeeds int

	// FeedTimeout bounds one feed's fetch-and-process, end to end.
	FeedTimeout time.Duration

	// ContentThreshold is the feed-provided content length (runes) below
	// which the full page is fetched. Mirrors the content fetcher setting.
	ContentThreshold int

	// MergeInterval is the cadence of the offline cluster-merge pass;
	// MergeWindow its lookback and MergeThreshold its similarity floor.
	MergeInterval  time.Duration
	MergeWindow    time.Duration
	MergeThreshold float64

	// CompactionInterval is the cadence of the retention pass.
	CompactionInterval time.Duration

	Retention RetentionConfig
}

// RetentionConfig sets the per-collection retention horizons enforced by
// the compaction pass.
type RetentionConfig struct {
	Articles   time.Duration
	Clusters   time.Duration
	Embeddings time.Duration
	Alerts     time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:    5 * time.Minute,
		MaxConcurrentFeeds: 10,
		FeedTimeout:        30 * time.Second,
		ContentThreshold:   1500,
		MergeInterval:      time.Hour,
		MergeWindow:        2 * time.Hour,
		MergeThreshold:     0.8,
		CompactionInterval: 6 * time.Hour,
		Retention: RetentionConfig{
			Articles:   90 * 24 * time.Hour,
			Clusters:   7 * 24 * time.Hour,
			Embeddings: 7 * 24 * time.Hour,
			Alerts:     30 * 24 * time.Hour,
		},
	}
}

// LoadConfig reads the crawl configuration, starting from the feeds
// document globals and letting the environment override them. Operational
// knobs load fail-open.
//
// Environment variables:
//   - REFRESH_INTERVAL_MINUTES (range 1-1440)
//   - MAX_CONCURRENT_FEEDS (default 10, range 1-50)
//   - FEED_TIMEOUT_SECONDS (range 1-300)
func LoadConfig(globals config.FeedGlobals) Config {
	cfg := DefaultConfig()
	if globals.RefreshIntervalMinutes > 0 {
		cfg.RefreshInterval = time.Duration(globals.RefreshIntervalMinutes) * time.Minute
	}
	if globals.TimeoutSeconds > 0 {
		cfg.FeedTimeout = time.Duration(globals.TimeoutSeconds) * time.Second
	}

	refresh := config.LoadEnvInt("REFRESH_INTERVAL_MINUTES", int(cfg.RefreshInterval/time.Minute), func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	concurrent := config.LoadEnvInt("MAX_CONCURRENT_FEEDS", 10, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	timeout := config.LoadEnvInt("FEED_TIMEOUT_SECONDS", int(cfg.FeedTimeout/time.Second), func(v int) error {
		return config.ValidateIntRange(v, 1, 300)
	})

	for _, result := range []config.ConfigLoadResult{refresh, concurrent, timeout} {
		for _, warning := range result.Warnings {
			slog.Warn(warning)
		}
	}

	cfg.RefreshInterval = time.Duration(refresh.Value.(int)) * time.Minute
	cfg.MaxConcurrentFeeds = concurrent.Value.(int)
	cfg.FeedTimeout = time.Duration(timeout.Value.(int)) * time.Second
	return cfg
}
