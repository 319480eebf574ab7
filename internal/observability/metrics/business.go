package metrics

import (
	"time"
)

// RecordArticlesIngested records articles accepted into the store from a feed.
func RecordArticlesIngested(feedID string, count int) {
	if count > 0 {
		ArticlesIngestedTotal.WithLabelValues(feedID).Add(float64(count))
	}
}

// RecordArticleSkipped records a feed item dropped before storage.
// Reason should be one of "known_url", "invalid_item" or "stale".
func RecordArticleSkipped(reason string) {
	ArticlesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordFeedCrawl records the duration of one feed crawl.
func RecordFeedCrawl(feedID string, duration time.Duration) {
	FeedCrawlDuration.WithLabelValues(feedID).Observe(duration.Seconds())
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(feedID, errorType string) {
	FeedCrawlErrors.WithLabelValues(feedID, errorType).Inc()
}

// RecordCrawlCycle records the duration of a full crawl cycle.
func RecordCrawlCycle(duration time.Duration) {
	CrawlCycleDuration.Observe(duration.Seconds())
}

// RecordContentFetchSuccess records a successful content fetch.
func RecordContentFetchSuccess(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchFailed records a failed content fetch.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch. This occurs
// when the item already carries enough content and fetching is unnecessary.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDedupCheck records the outcome of one duplicate check.
// Outcome should be "unique", "duplicate" or "error".
func RecordDedupCheck(outcome string, duration time.Duration, candidates int) {
	DedupChecksTotal.WithLabelValues(outcome).Inc()
	DedupCheckDuration.Observe(duration.Seconds())
	DedupCandidatesRetrieved.Observe(float64(candidates))
}

// RecordDuplicate records a confirmed duplicate by detection method.
func RecordDuplicate(method string) {
	DedupDuplicatesTotal.WithLabelValues(method).Inc()
}

// UpdateDedupQueueDepth updates the pending dedup queue depth gauge.
func UpdateDedupQueueDepth(depth int) {
	DedupQueueDepth.Set(float64(depth))
}

// RecordLLMValidation records an LLM borderline-pair validation.
// Verdict should be "confirmed", "rejected" or "error".
func RecordLLMValidation(verdict string) {
	LLMValidationsTotal.WithLabelValues(verdict).Inc()
}

// RecordEmbeddingRequest records an embedding lookup by result.
// Result should be "cache_hit", "api_success", "api_failure" or "pseudo".
func RecordEmbeddingRequest(result string) {
	EmbeddingRequestsTotal.WithLabelValues(result).Inc()
}

// UpdateClustersActive updates the active cluster count gauge.
func UpdateClustersActive(count int) {
	ClustersActive.Set(float64(count))
}

// RecordAlertCreated records an admitted alert by priority.
func RecordAlertCreated(priority string) {
	AlertsCreatedTotal.WithLabelValues(priority).Inc()
}

// RecordAlertSuppressed records an alert rejected at admission.
// Reason should be "rate_limit", "cooldown", "quality" or "duplicate".
func RecordAlertSuppressed(reason string) {
	AlertsSuppressedTotal.WithLabelValues(reason).Inc()
}

// RecordChannelDelivery records one channel delivery attempt.
func RecordChannelDelivery(channel string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	ChannelDeliveriesTotal.WithLabelValues(channel, result).Inc()
	ChannelDeliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordChannelSkipped records a channel skipped by an open circuit.
func RecordChannelSkipped(channel string) {
	ChannelDeliveriesTotal.WithLabelValues(channel, "skipped").Inc()
}

// UpdateAlertQueueDepth updates the pending alert queue depth gauge.
func UpdateAlertQueueDepth(depth int) {
	AlertQueueDepth.Set(float64(depth))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_candidates", "insert_article").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
