package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type clusterMerger interface {
	MergePass(ctx context.Context, since time.Time, threshold float64) (int, error)
}

// purger is the retention slice each repository exposes.
type purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type clusterPurger interface {
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// Maintenance runs the offline passes: cluster merging and retention
// compaction. Both are idempotent and safe to re-run on overlap.
type Maintenance struct {
	cfg        Config
	merger     clusterMerger
	articles   purger
	clusters   clusterPurger
	embeddings purger
	alerts     purger
	now        func() time.Time
}

// NewMaintenance wires the maintenance passes. Any store may be nil to
// exempt its collection from compaction.
func NewMaintenance(cfg Config, merger clusterMerger, articles purger, clusters clusterPurger, embeddings, alerts purger) *Maintenance {
	return &Maintenance{
		cfg:        cfg,
		merger:     merger,
		articles:   articles,
		clusters:   clusters,
		embeddings: embeddings,
		alerts:     alerts,
		now:        time.Now,
	}
}

// MergeClusters runs one offline cluster-merge pass over clusters touched
// within the merge window.
func (m *Maintenance) MergeClusters(ctx context.Context) (int, error) {
	if m.merger == nil {
		return 0, nil
	}
	since := m.now().Add(-m.cfg.MergeWindow)
	merged, err := m.merger.MergePass(ctx, since, m.cfg.MergeThreshold)
	if err != nil {
		return merged, fmt.Errorf("MergeClusters: %w", err)
	}
	if merged > 0 {
		slog.Info("cluster merge pass completed", slog.Int("merged", merged))
	}
	return merged, nil
}

// Compact enforces the retention horizons. Each collection is compacted
// independently; one failing store does not stop the others.
func (m *Maintenance) Compact(ctx context.Context) {
	now := m.now()

	if m.alerts != nil {
		m.purge(ctx, "alerts", now.Add(-m.cfg.Retention.Alerts), m.alerts.DeleteOlderThan)
	}
	if m.embeddings != nil {
		m.purge(ctx, "embeddings", now.Add(-m.cfg.Retention.Embeddings), m.embeddings.DeleteOlderThan)
	}
	if m.clusters != nil {
		m.purge(ctx, "clusters", now.Add(-m.cfg.Retention.Clusters), m.clusters.DeleteInactiveSince)
	}
	if m.articles != nil {
		// Articles go last: duplicate links and cluster membership
		// reference them.
		m.purge(ctx, "articles", now.Add(-m.cfg.Retention.Articles), m.articles.DeleteOlderThan)
	}
}

func (m *Maintenance) purge(ctx context.Context, collection string, cutoff time.Time, del func(context.Context, time.Time) (int64, error)) {
	removed, err := del(ctx, cutoff)
	if err != nil {
		slog.Error("compaction failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		slog.Info("compaction pass",
			slog.String("collection", collection),
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
	}
}
