// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Ingestion metrics (feed crawls, content fetches, skipped items)
//   - Dedup metrics (checks, methods, candidate counts, LLM validations)
//   - Alert metrics (admissions, suppressions, channel deliveries)
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "newswatch/internal/observability/metrics"
//
//	func checkArticle(a *entity.Article) {
//	    start := time.Now()
//	    // ... score against candidates ...
//	    metrics.RecordDedupCheck("unique", time.Since(start), len(candidates))
//	}
package metrics
