package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"newswatch/internal/domain/entity"
	"newswatch/internal/normalize"
	"newswatch/internal/observability/metrics"
	"newswatch/internal/repository"
	"newswatch/internal/resilience/retry"
	"newswatch/internal/utils/text"
)

type feedStore interface {
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	TouchFetched(ctx context.Context, id string, at time.Time, processed int64) error
	RecordError(ctx context.Context, id string, at time.Time, message string) error
}

type feedFetcher interface {
	Fetch(ctx context.Context, feed *entity.Feed) ([]normalize.RawItem, error)
}

type contentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

type itemProcessor interface {
	Process(ctx context.Context, item normalize.RawItem) (normalize.Result, error)
}

type dedupQueue interface {
	Enqueue(articleID int64)
}

type metricStore interface {
	Put(ctx context.Context, sample *repository.MetricSample) error
}

var _ feedStore = (repository.FeedRepository)(nil)
var _ metricStore = (repository.MetricRepository)(nil)

// CycleStats summarizes one crawl cycle.
type CycleStats struct {
	Feeds           int
	FeedsFailed     int
	ItemsSeen       int64
	Stored          int64
	KnownURLs       int64
	ExactDuplicates int64
	Invalid         int64
	ContentFetched  int64
	Duration        time.Duration
}

// Service crawls every enabled feed once per cycle: fetch, optional
// full-content enhancement, normalization, and handoff of fresh articles
// to the dedup queue. Item failures stay contained to the item, feed
// failures to the feed.
type Service struct {
	cfg        Config
	feeds      feedStore
	fetcher    feedFetcher
	content    contentFetcher // nil disables enhancement
	normalizer itemProcessor
	dedup      dedupQueue
	metrics    metricStore // nil disables the per-cycle samples
	now        func() time.Time
}

// NewService wires the crawl service. content and metrics may be nil.
func NewService(cfg Config, feeds feedStore, fetcher feedFetcher, content contentFetcher, normalizer itemProcessor, dedup dedupQueue, metrics metricStore) *Service {
	return &Service{
		cfg:        cfg,
		feeds:      feeds,
		fetcher:    fetcher,
		content:    content,
		normalizer: normalizer,
		dedup:      dedup,
		metrics:    metrics,
		now:        time.Now,
	}
}

// CrawlAll runs one crawl cycle over all enabled feeds with bounded
// parallelism. Only feed listing can fail the cycle; everything below is
// contained and reported through the stats.
func (s *Service) CrawlAll(ctx context.Context) (*CycleStats, error) {
	start := s.now()

	feeds, err := s.feeds.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("CrawlAll: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = CycleStats{Feeds: len(feeds)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentFeeds)
	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			feedStats, ok := s.crawlFeed(gctx, feed)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				stats.FeedsFailed++
			}
			stats.ItemsSeen += feedStats.ItemsSeen
			stats.Stored += feedStats.Stored
			stats.KnownURLs += feedStats.KnownURLs
			stats.ExactDuplicates += feedStats.ExactDuplicates
			stats.Invalid += feedStats.Invalid
			stats.ContentFetched += feedStats.ContentFetched
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = s.now().Sub(start)
	metrics.RecordCrawlCycle(stats.Duration)
	s.putCycleSamples(ctx, &stats)

	slog.Info("crawl cycle completed",
		slog.Int("feeds", stats.Feeds),
		slog.Int("feeds_failed", stats.FeedsFailed),
		slog.Int64("items_seen", stats.ItemsSeen),
		slog.Int64("stored", stats.Stored),
		slog.Int64("exact_duplicates", stats.ExactDuplicates),
		slog.Duration("duration", stats.Duration))
	return &stats, nil
}

// crawlFeed fetches and processes one feed under the feed timeout. The
// bool reports whether the fetch itself succeeded.
func (s *Service) crawlFeed(ctx context.Context, feed *entity.Feed) (CycleStats, bool) {
	var stats CycleStats

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FeedTimeout)
	defer cancel()

	fetchStart := s.now()
	items, err := s.fetcher.Fetch(ctx, feed)
	if err != nil {
		metrics.RecordFeedCrawlError(feed.ID, classifyFetchError(err))
		slog.Warn("feed fetch failed",
			slog.String("feed_id", feed.ID),
			slog.String("error", err.Error()))
		if rerr := s.feeds.RecordError(ctx, feed.ID, s.now(), err.Error()); rerr != nil {
			slog.Warn("failed to record feed error",
				slog.String("feed_id", feed.ID),
				slog.String("error", rerr.Error()))
		}
		return stats, false
	}
	metrics.RecordFeedCrawl(feed.ID, s.now().Sub(fetchStart))

	stats.ItemsSeen = int64(len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		s.enhanceContent(ctx, &item, &stats)

		result, err := s.normalizer.Process(ctx, item)
		if err != nil {
			// Store trouble on one item; the rest of the feed may
			// still go through.
			slog.Warn("item processing failed",
				slog.String("feed_id", feed.ID),
				slog.String("url", item.URL),
				slog.String("error", err.Error()))
			continue
		}

		switch result.Outcome {
		case normalize.OutcomeStored:
			stats.Stored++
			s.dedup.Enqueue(result.Article.ID)
		case normalize.OutcomeKnownURL:
			stats.KnownURLs++
		case normalize.OutcomeExactDuplicate:
			stats.ExactDuplicates++
		case normalize.OutcomeInvalid:
			stats.Invalid++
		}
	}

	if stats.Stored > 0 {
		metrics.RecordArticlesIngested(feed.ID, int(stats.Stored))
	}
	if err := s.feeds.TouchFetched(ctx, feed.ID, s.now(), stats.ItemsSeen); err != nil {
		slog.Warn("failed to update feed state",
			slog.String("feed_id", feed.ID),
			slog.String("error", err.Error()))
	}
	return stats, true
}

// enhanceContent replaces thin feed-provided content with the extracted
// full page. Failures leave the item as delivered by the feed.
func (s *Service) enhanceContent(ctx context.Context, item *normalize.RawItem, stats *CycleStats) {
	if s.content == nil {
		return
	}
	body := item.Content
	if body == "" {
		body = item.Summary
	}
	if text.CountRunes(body) >= s.cfg.ContentThreshold {
		metrics.RecordContentFetchSkipped()
		return
	}

	start := s.now()
	fetched, err := s.content.FetchContent(ctx, item.URL)
	if err != nil {
		metrics.RecordContentFetchFailed(s.now().Sub(start))
		slog.Debug("content fetch failed",
			slog.String("url", item.URL),
			slog.String("error", err.Error()))
		return
	}
	metrics.RecordContentFetchSuccess(s.now().Sub(start))
	item.Content = fetched
	stats.ContentFetched++
}

// putCycleSamples writes the cycle summary to the metrics collection.
func (s *Service) putCycleSamples(ctx context.Context, stats *CycleStats) {
	if s.metrics == nil {
		return
	}
	at := s.now()
	samples := []repository.MetricSample{
		{Name: "crawl_cycle_duration_seconds", Value: stats.Duration.Seconds()},
		{Name: "crawl_feeds_total", Value: float64(stats.Feeds)},
		{Name: "crawl_feeds_failed", Value: float64(stats.FeedsFailed)},
		{Name: "crawl_items_seen", Value: float64(stats.ItemsSeen)},
		{Name: "crawl_items_stored", Value: float64(stats.Stored)},
		{Name: "crawl_exact_duplicates", Value: float64(stats.ExactDuplicates)},
	}
	for i := range samples {
		samples[i].RecordedAt = at
		if err := s.metrics.Put(ctx, &samples[i]); err != nil {
			slog.Warn("failed to record cycle metric",
				slog.String("name", samples[i].Name),
				slog.String("error", err.Error()))
			return
		}
	}
}

func classifyFetchError(err error) string {
	var httpErr *retry.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return "http"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
