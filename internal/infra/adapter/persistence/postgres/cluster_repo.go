package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"
)

const clusterColumns = `id, article_ids, centroid, category, tags, sources, created_at, updated_at`

type ClusterRepo struct {
	db *sql.DB
}

func NewClusterRepo(db *sql.DB) repository.ClusterRepository {
	return &ClusterRepo{db: db}
}

func scanCluster(row rowScanner) (*entity.Cluster, error) {
	var cluster entity.Cluster
	var articleIDs, centroid, tags, sources []byte
	if err := row.Scan(
		&cluster.ID, &articleIDs, &centroid, &cluster.Category,
		&tags, &sources, &cluster.CreatedAt, &cluster.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := fromJSON(articleIDs, &cluster.ArticleIDs, "article_ids"); err != nil {
		return nil, err
	}
	if err := fromJSON(centroid, &cluster.Centroid, "centroid"); err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &cluster.Tags, "tags"); err != nil {
		return nil, err
	}
	if err := fromJSON(sources, &cluster.Sources, "sources"); err != nil {
		return nil, err
	}
	return &cluster, nil
}

func (repo *ClusterRepo) Create(ctx context.Context, cluster *entity.Cluster) error {
	if err := cluster.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO clusters (article_ids, centroid, category, tags, sources, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		mustJSON(cluster.ArticleIDs), mustJSON(cluster.Centroid),
		cluster.Category, mustJSON(cluster.Tags), mustJSON(cluster.Sources),
		cluster.CreatedAt, cluster.UpdatedAt,
	).Scan(&cluster.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ClusterRepo) Get(ctx context.Context, id int64) (*entity.Cluster, error) {
	query := fmt.Sprintf(`SELECT %s FROM clusters WHERE id = $1 LIMIT 1`, clusterColumns)
	cluster, err := scanCluster(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return cluster, nil
}

// FindByArticle uses JSONB containment on article_ids, backed by the GIN
// index.
func (repo *ClusterRepo) FindByArticle(ctx context.Context, articleID int64) (*entity.Cluster, error) {
	query := fmt.Sprintf(`
SELECT %s FROM clusters
WHERE article_ids @> $1::jsonb
LIMIT 1`, clusterColumns)
	cluster, err := scanCluster(repo.db.QueryRowContext(ctx, query, string(mustJSON([]int64{articleID}))))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByArticle: %w", err)
	}
	return cluster, nil
}

func (repo *ClusterRepo) Update(ctx context.Context, cluster *entity.Cluster) error {
	if err := cluster.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE clusters SET
       article_ids = $1,
       centroid    = $2,
       category    = $3,
       tags        = $4,
       sources     = $5,
       updated_at  = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		mustJSON(cluster.ArticleIDs), mustJSON(cluster.Centroid),
		cluster.Category, mustJSON(cluster.Tags), mustJSON(cluster.Sources),
		cluster.UpdatedAt, cluster.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *ClusterRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM clusters WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *ClusterRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]*entity.Cluster, error) {
	query := fmt.Sprintf(`
SELECT %s FROM clusters
WHERE updated_at > $1
ORDER BY updated_at ASC`, clusterColumns)

	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("ListUpdatedSince: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clusters := make([]*entity.Cluster, 0, 32)
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUpdatedSince: Scan: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, rows.Err()
}

func (repo *ClusterRepo) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observe("cluster_delete_inactive", time.Now())

	const query = `DELETE FROM clusters WHERE updated_at < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteInactiveSince: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteInactiveSince: RowsAffected: %w", err)
	}
	return count, nil
}
