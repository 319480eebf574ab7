package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/repository"
)

type MetricRepo struct {
	db *sql.DB
}

func NewMetricRepo(db *sql.DB) repository.MetricRepository {
	return &MetricRepo{db: db}
}

func (repo *MetricRepo) Put(ctx context.Context, sample *repository.MetricSample) error {
	if sample == nil {
		return fmt.Errorf("Put: sample is nil")
	}
	if sample.Name == "" {
		return fmt.Errorf("Put: sample name must not be empty")
	}

	recordedAt := sample.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	const query = `
INSERT INTO pipeline_metrics (name, value, labels, recorded_at)
VALUES ($1, $2, $3, $4)`
	_, err := repo.db.ExecContext(ctx, query,
		sample.Name, sample.Value, mustJSON(sample.Labels), recordedAt,
	)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

func (repo *MetricRepo) ListByName(ctx context.Context, name string, since time.Time) ([]*repository.MetricSample, error) {
	const query = `
SELECT name, value, labels, recorded_at
FROM pipeline_metrics
WHERE name = $1 AND recorded_at >= $2
ORDER BY recorded_at ASC`

	rows, err := repo.db.QueryContext(ctx, query, name, since)
	if err != nil {
		return nil, fmt.Errorf("ListByName: %w", err)
	}
	defer func() { _ = rows.Close() }()

	samples := make([]*repository.MetricSample, 0, 64)
	for rows.Next() {
		var sample repository.MetricSample
		var labels []byte
		if err := rows.Scan(&sample.Name, &sample.Value, &labels, &sample.RecordedAt); err != nil {
			return nil, fmt.Errorf("ListByName: Scan: %w", err)
		}
		if err := fromJSON(labels, &sample.Labels, "labels"); err != nil {
			return nil, err
		}
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}
