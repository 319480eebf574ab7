// Command diagnose_feeds probes every feed in the feeds document and
// reports reachability, item counts and the newest item timestamp.
// Useful when a feed goes quiet: run it against production config to
// separate dead endpoints from feeds that simply stopped publishing.
//
// Usage:
//
//	go run scripts/diagnose_feeds.go [-config feeds.yaml] [-timeout 30s] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/infra/scraper"
	"newswatch/internal/pkg/config"
)

// FeedDiagnostic is the probe result for a single feed.
type FeedDiagnostic struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Status       string `json:"status"` // "OK", "FETCH_ERROR", "EMPTY", "STALE"
	ItemCount    int    `json:"item_count"`
	LatestItem   string `json:"latest_item,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

// staleAfter marks feeds whose newest item is older than this as STALE.
const staleAfter = 7 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "feeds.yaml", "path to the feeds document")
	timeout := flag.Duration("timeout", 30*time.Second, "per-feed fetch timeout")
	jsonOut := flag.Bool("json", false, "emit the report as JSON")
	flag.Parse()

	feedsCfg, warnings, err := config.LoadFeedsConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load feeds document: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("warning: %s", warning)
	}

	fetcher := scraper.NewRSSFetcher(scraper.NewHTTPClient(*timeout))

	log.Printf("diagnosing %d feeds...", len(feedsCfg.Feeds))
	diagnostics := make([]FeedDiagnostic, 0, len(feedsCfg.Feeds))
	for i, feed := range feedsCfg.Feeds {
		log.Printf("[%d/%d] %s", i+1, len(feedsCfg.Feeds), feed.ID)
		diagnostics = append(diagnostics, diagnose(fetcher, feed, *timeout))

		// Be polite to the upstream servers.
		time.Sleep(500 * time.Millisecond)
	}

	if *jsonOut {
		writeJSON(diagnostics)
		return
	}
	writeReport(diagnostics)
}

func diagnose(fetcher *scraper.RSSFetcher, feed *entity.Feed, timeout time.Duration) FeedDiagnostic {
	diag := FeedDiagnostic{
		ID:   feed.ID,
		Name: feed.Name,
		URL:  feed.URL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	items, err := fetcher.Fetch(ctx, feed)
	diag.ResponseTime = time.Since(start).Milliseconds()

	if err != nil {
		diag.Status = "FETCH_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	diag.ItemCount = len(items)
	if len(items) == 0 {
		diag.Status = "EMPTY"
		return diag
	}

	var latest time.Time
	for _, item := range items {
		if item.PublishedAt.After(latest) {
			latest = item.PublishedAt
		}
	}
	if !latest.IsZero() {
		diag.LatestItem = latest.UTC().Format(time.RFC3339)
	}

	if !latest.IsZero() && time.Since(latest) > staleAfter {
		diag.Status = "STALE"
		return diag
	}

	diag.Status = "OK"
	return diag
}

func writeReport(diagnostics []FeedDiagnostic) {
	sort.Slice(diagnostics, func(i, j int) bool {
		return diagnostics[i].Status < diagnostics[j].Status
	})

	counts := map[string]int{}
	for _, d := range diagnostics {
		counts[d.Status]++
	}

	fmt.Println()
	fmt.Println("=== Feed Diagnostics ===")
	fmt.Printf("total=%d ok=%d stale=%d empty=%d errors=%d\n\n",
		len(diagnostics), counts["OK"], counts["STALE"], counts["EMPTY"], counts["FETCH_ERROR"])

	for _, d := range diagnostics {
		fmt.Printf("%-12s %-24s items=%-4d latency=%dms", d.Status, d.ID, d.ItemCount, d.ResponseTime)
		if d.LatestItem != "" {
			fmt.Printf(" latest=%s", d.LatestItem)
		}
		if d.ErrorMessage != "" {
			fmt.Printf(" error=%q", d.ErrorMessage)
		}
		fmt.Println()
	}
}

func writeJSON(diagnostics []FeedDiagnostic) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diagnostics); err != nil {
		log.Fatalf("failed to encode report: %v", err)
	}
}
