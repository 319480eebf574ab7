// Package scraper provides implementations for fetching RSS/Atom feeds.
// It uses the gofeed library to parse feed content with reliability patterns.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/normalize"
	"newswatch/internal/resilience/circuitbreaker"
	"newswatch/internal/resilience/retry"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

const (
	userAgent    = "newswatch/1.0"
	maxRedirects = 3

	// maxFeedBytes bounds the response body read; feeds larger than this
	// are almost certainly not feeds.
	maxFeedBytes = 10 << 20
)

// NewHTTPClient builds the HTTP client used for feed fetching: per-request
// timeout and at most maxRedirects redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// RSSFetcher fetches and parses RSS/Atom feeds using the gofeed library.
// It includes circuit breaker and retry logic for improved reliability:
// transport and 5xx failures are retried with linear backoff, 4xx is
// recorded and not retried.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
// It automatically configures circuit breaker and retry logic.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses the feed, returning one raw item per entry
// with feed context attached.
func (f *RSSFetcher) Fetch(ctx context.Context, feed *entity.Feed) ([]normalize.RawItem, error) {
	var items []normalize.RawItem

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feed)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("feed_id", feed.ID),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}

		items = cbResult.([]normalize.RawItem)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return items, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feed *entity.Feed) ([]normalize.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("doFetch: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doFetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("doFetch: parse feed: %w", err)
	}

	items := make([]normalize.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		url := it.Link
		if url == "" {
			url = it.GUID
		}
		if url == "" {
			continue
		}

		items = append(items, normalize.RawItem{
			Title:       it.Title,
			Summary:     it.Description,
			Content:     it.Content,
			URL:         url,
			Author:      itemAuthor(it),
			ImageURL:    itemImage(it),
			Language:    parsed.Language,
			Categories:  it.Categories,
			PublishedAt: itemPublished(it),

			FeedID:       feed.ID,
			FeedName:     feed.Name,
			FeedCategory: feed.Category,
			FeedPriority: feed.Priority,
			FeedTags:     feed.Tags,
		})
	}

	return items, nil
}

func itemAuthor(it *gofeed.Item) string {
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		return it.Authors[0].Name
	}
	return ""
}

func itemImage(it *gofeed.Item) string {
	if it.Image != nil {
		return it.Image.URL
	}
	return ""
}

// itemPublished prefers the parsed publish date, then the updated date, then
// a lenient parse of the raw date string. A zero time tells the normalizer
// to fall back to fetch time.
func itemPublished(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	if it.Published != "" {
		if t, err := dateparse.ParseAny(it.Published); err == nil {
			return t
		}
	}
	return time.Time{}
}
