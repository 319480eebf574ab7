// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics track feed crawling and content extraction
var (
	// ArticlesIngestedTotal counts articles accepted into the store per feed
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of articles ingested from feeds",
		},
		[]string{"feed_id"},
	)

	// ArticlesSkippedTotal counts feed items dropped before storage
	ArticlesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_skipped_total",
			Help: "Total number of feed items skipped before storage",
		},
		[]string{"reason"}, // reason: known_url, invalid_item, stale
	)

	// FeedCrawlDuration measures time to crawl one feed
	FeedCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_crawl_duration_seconds",
			Help:    "Time taken to crawl a feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed_id"},
	)

	// FeedCrawlErrors counts errors during feed crawling
	FeedCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_crawl_errors_total",
			Help: "Total number of feed crawl errors",
		},
		[]string{"feed_id", "error_type"},
	)

	// CrawlCycleDuration measures a full crawl cycle across all feeds
	CrawlCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawl_cycle_duration_seconds",
			Help:    "Time taken for a full crawl cycle across all feeds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// ContentFetchAttemptsTotal counts content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// Dedup metrics track the duplicate detection engine
var (
	// DedupChecksTotal counts dedup decisions by outcome
	DedupChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_checks_total",
			Help: "Total number of duplicate checks by outcome",
		},
		[]string{"outcome"}, // outcome: unique, duplicate, error
	)

	// DedupDuplicatesTotal counts confirmed duplicates by detection method
	DedupDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_duplicates_total",
			Help: "Total number of confirmed duplicates by detection method",
		},
		[]string{"method"},
	)

	// DedupCheckDuration measures time to score one article against its candidates
	DedupCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedup_check_duration_seconds",
			Help:    "Time taken to score one article against its candidates",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// DedupCandidatesRetrieved measures candidate set sizes
	DedupCandidatesRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedup_candidates_retrieved",
			Help:    "Number of candidate articles retrieved per duplicate check",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 35, 50},
		},
	)

	// DedupQueueDepth tracks the pending dedup queue depth
	DedupQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dedup_queue_depth",
			Help: "Number of articles waiting for duplicate checking",
		},
	)

	// LLMValidationsTotal counts borderline-pair LLM validations by verdict
	LLMValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_validations_total",
			Help: "Total number of LLM duplicate validations by verdict",
		},
		[]string{"verdict"}, // verdict: duplicate, distinct, error
	)

	// EmbeddingRequestsTotal counts embedding lookups by result
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding requests by result",
		},
		[]string{"result"}, // result: cache_hit, api_success, api_failure, pseudo
	)

	// ClustersActive tracks the number of active story clusters
	ClustersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clusters_active",
			Help: "Number of active story clusters",
		},
	)
)

// Alert metrics track the dispatcher and delivery channels
var (
	// AlertsCreatedTotal counts admitted alerts by priority
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Total number of alerts created by priority",
		},
		[]string{"priority"},
	)

	// AlertsSuppressedTotal counts alerts rejected at admission by reason
	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_suppressed_total",
			Help: "Total number of alerts suppressed at admission",
		},
		[]string{"reason"}, // reason: rate_limit, cooldown, quality, duplicate
	)

	// ChannelDeliveriesTotal counts channel delivery attempts by result
	ChannelDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_deliveries_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "result"}, // result: success, failure, skipped
	)

	// ChannelDeliveryDuration measures per-channel delivery latency
	ChannelDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_delivery_duration_seconds",
			Help:    "Time taken to deliver an alert on a channel",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"channel"},
	)

	// AlertQueueDepth tracks the pending alert queue depth
	AlertQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_queue_depth",
			Help: "Number of alerts waiting for dispatch",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
