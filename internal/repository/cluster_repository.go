package repository

import (
	"context"
	"time"

	"newswatch/internal/domain/entity"
)

// ClusterRepository persists story clusters.
type ClusterRepository interface {
	// Create inserts the cluster and assigns its ID.
	Create(ctx context.Context, cluster *entity.Cluster) error

	Get(ctx context.Context, id int64) (*entity.Cluster, error)

	// FindByArticle returns the active cluster containing the article,
	// or (nil, nil) when the article is unclustered.
	FindByArticle(ctx context.Context, articleID int64) (*entity.Cluster, error)

	// Update replaces membership, centroid and metadata of the cluster.
	Update(ctx context.Context, cluster *entity.Cluster) error

	Delete(ctx context.Context, id int64) error

	// ListUpdatedSince returns clusters touched after the given time,
	// used by the offline merge pass.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*entity.Cluster, error)

	// DeleteInactiveSince evicts clusters not updated since cutoff.
	// Returns the number of clusters removed.
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}
