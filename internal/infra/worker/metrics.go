package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"newswatch/internal/pkg/config"
)

// WorkerMetrics tracks worker-level job execution: crawl cycle runs,
// durations, feeds processed and the last-success timestamp. It embeds
// the shared configuration metrics for fallback tracking.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CycleRunsTotal counts crawl cycles by status (success/failure).
	CycleRunsTotal *prometheus.CounterVec

	// CycleDurationSeconds observes end-to-end crawl cycle durations.
	CycleDurationSeconds prometheus.Histogram

	// FeedsProcessedTotal accumulates feeds processed across cycles.
	FeedsProcessedTotal prometheus.Counter

	// LastSuccessTimestamp is the Unix time of the last successful cycle.
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates the worker metrics. Registration happens via
// promauto at construction; create exactly one instance per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cycle_runs_total",
			Help: "Total crawl cycle runs by status (success/failure)",
		}, []string{"status"}),

		CycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cycle_duration_seconds",
			Help:    "End-to-end crawl cycle duration in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		FeedsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_feeds_processed_total",
			Help: "Total feeds processed across all crawl cycles",
		}),

		LastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful crawl cycle",
		}),
	}
}

// RecordCycleRun increments the cycle counter for "success" or "failure".
func (m *WorkerMetrics) RecordCycleRun(status string) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordCycleDuration observes one cycle duration in seconds.
func (m *WorkerMetrics) RecordCycleDuration(seconds float64) {
	m.CycleDurationSeconds.Observe(seconds)
}

// RecordFeedsProcessed adds the number of feeds handled this cycle.
func (m *WorkerMetrics) RecordFeedsProcessed(count int) {
	m.FeedsProcessedTotal.Add(float64(count))
}

// RecordLastSuccess stamps the current time as the last successful cycle.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
