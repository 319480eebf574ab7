package repository

import (
	"context"
	"time"
)

// MetricSample is a named measurement with free-form labels, recorded once
// per crawl cycle (and by maintenance passes).
type MetricSample struct {
	Name       string
	Value      float64
	Labels     map[string]string
	RecordedAt time.Time
}

// MetricRepository persists per-cycle pipeline measurements for the admin
// surface. Prometheus remains the operational metrics path; this collection
// only backs historical inspection queries.
type MetricRepository interface {
	Put(ctx context.Context, sample *MetricSample) error

	ListByName(ctx context.Context, name string, since time.Time) ([]*MetricSample, error)
}
