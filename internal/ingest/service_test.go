package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswatch/internal/domain/entity"
	"newswatch/internal/normalize"
	"newswatch/internal/repository"
	"newswatch/internal/resilience/retry"
)

var cycleNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubFeeds struct {
	mu       sync.Mutex
	enabled  []*entity.Feed
	listErr  error
	touched  map[string]int64
	errored  map[string]string
	touchErr error
}

func newStubFeeds(feeds ...*entity.Feed) *stubFeeds {
	return &stubFeeds{
		enabled: feeds,
		touched: map[string]int64{},
		errored: map[string]string{},
	}
}

func (s *stubFeeds) ListEnabled(context.Context) ([]*entity.Feed, error) {
	return s.enabled, s.listErr
}

func (s *stubFeeds) TouchFetched(_ context.Context, id string, _ time.Time, processed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched[id] = processed
	return nil
}

func (s *stubFeeds) RecordError(_ context.Context, id string, _ time.Time, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored[id] = message
	return nil
}

type stubFetcher struct {
	items map[string][]normalize.RawItem
	errs  map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, feed *entity.Feed) ([]normalize.RawItem, error) {
	if err := f.errs[feed.ID]; err != nil {
		return nil, err
	}
	return f.items[feed.ID], nil
}

type stubContent struct {
	mu      sync.Mutex
	body    string
	err     error
	fetched []string
}

func (c *stubContent) FetchContent(_ context.Context, url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = append(c.fetched, url)
	if c.err != nil {
		return "", c.err
	}
	return c.body, nil
}

type stubNormalizer struct {
	mu       sync.Mutex
	outcomes map[string]normalize.Result
	errs     map[string]error
	seen     []normalize.RawItem
}

func (n *stubNormalizer) Process(_ context.Context, item normalize.RawItem) (normalize.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, item)
	if err := n.errs[item.URL]; err != nil {
		return normalize.Result{}, err
	}
	if result, ok := n.outcomes[item.URL]; ok {
		return result, nil
	}
	return normalize.Result{Outcome: normalize.OutcomeInvalid}, nil
}

type stubQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (q *stubQueue) Enqueue(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

func (q *stubQueue) enqueued() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.ids...)
}

type stubMetrics struct {
	mu      sync.Mutex
	samples []*repository.MetricSample
}

func (m *stubMetrics) Put(_ context.Context, sample *repository.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, sample)
	return nil
}

func testFeed(id string) *entity.Feed {
	return &entity.Feed{
		ID:       id,
		Name:     id,
		URL:      "https://example.com/" + id + ".rss",
		Category: "business",
		Priority: entity.PriorityMedium,
		Enabled:  true,
	}
}

func rawItem(url string) normalize.RawItem {
	return normalize.RawItem{
		Title:       "Title for " + url,
		Summary:     strings.Repeat("summary text ", 200),
		URL:         url,
		PublishedAt: cycleNow.Add(-time.Hour),
	}
}

func stored(id int64) normalize.Result {
	return normalize.Result{
		Outcome: normalize.OutcomeStored,
		Article: &entity.Article{ID: id},
	}
}

func newTestService(feeds *stubFeeds, fetcher *stubFetcher, content contentFetcher, norm *stubNormalizer, queue *stubQueue, metrics metricStore) *Service {
	svc := NewService(DefaultConfig(), feeds, fetcher, content, norm, queue, metrics)
	svc.now = func() time.Time { return cycleNow }
	return svc
}

func TestCrawlAll_AggregatesOutcomes(t *testing.T) {
	feeds := newStubFeeds(testFeed("alpha"), testFeed("beta"))
	fetcher := &stubFetcher{items: map[string][]normalize.RawItem{
		"alpha": {rawItem("https://example.com/a1"), rawItem("https://example.com/a2")},
		"beta":  {rawItem("https://example.com/b1"), rawItem("https://example.com/b2")},
	}}
	norm := &stubNormalizer{outcomes: map[string]normalize.Result{
		"https://example.com/a1": stored(101),
		"https://example.com/a2": {Outcome: normalize.OutcomeKnownURL},
		"https://example.com/b1": stored(102),
		"https://example.com/b2": {Outcome: normalize.OutcomeExactDuplicate, Article: &entity.Article{ID: 103}},
	}}
	queue := &stubQueue{}
	samples := &stubMetrics{}
	svc := newTestService(feeds, fetcher, nil, norm, queue, samples)

	stats, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Feeds)
	assert.Equal(t, 0, stats.FeedsFailed)
	assert.Equal(t, int64(4), stats.ItemsSeen)
	assert.Equal(t, int64(2), stats.Stored)
	assert.Equal(t, int64(1), stats.KnownURLs)
	assert.Equal(t, int64(1), stats.ExactDuplicates)

	// Only freshly stored articles reach the dedup queue; the exact
	// duplicate was flagged at normalization time.
	assert.ElementsMatch(t, []int64{101, 102}, queue.enqueued())

	assert.Equal(t, int64(2), feeds.touched["alpha"])
	assert.Equal(t, int64(2), feeds.touched["beta"])
	assert.NotEmpty(t, samples.samples)
}

func TestCrawlAll_FeedFailureIsContained(t *testing.T) {
	feeds := newStubFeeds(testFeed("broken"), testFeed("healthy"))
	fetcher := &stubFetcher{
		items: map[string][]normalize.RawItem{
			"healthy": {rawItem("https://example.com/h1")},
		},
		errs: map[string]error{
			"broken": &retry.HTTPError{StatusCode: 502, Message: "bad gateway"},
		},
	}
	norm := &stubNormalizer{outcomes: map[string]normalize.Result{
		"https://example.com/h1": stored(7),
	}}
	queue := &stubQueue{}
	svc := newTestService(feeds, fetcher, nil, norm, queue, nil)

	stats, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.FeedsFailed)
	assert.Equal(t, int64(1), stats.Stored)
	assert.Contains(t, feeds.errored["broken"], "bad gateway")
	assert.NotContains(t, feeds.touched, "broken")
	assert.Equal(t, []int64{7}, queue.enqueued())
}

func TestCrawlAll_ItemFailureIsContained(t *testing.T) {
	feeds := newStubFeeds(testFeed("alpha"))
	fetcher := &stubFetcher{items: map[string][]normalize.RawItem{
		"alpha": {rawItem("https://example.com/a1"), rawItem("https://example.com/a2")},
	}}
	norm := &stubNormalizer{
		outcomes: map[string]normalize.Result{
			"https://example.com/a2": stored(2),
		},
		errs: map[string]error{
			"https://example.com/a1": errors.New("store unavailable"),
		},
	}
	queue := &stubQueue{}
	svc := newTestService(feeds, fetcher, nil, norm, queue, nil)

	stats, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.FeedsFailed)
	assert.Equal(t, int64(1), stats.Stored)
	assert.Equal(t, []int64{2}, queue.enqueued())
}

func TestCrawlAll_ListErrorFailsCycle(t *testing.T) {
	feeds := newStubFeeds()
	feeds.listErr = errors.New("connection refused")
	svc := newTestService(feeds, &stubFetcher{}, nil, &stubNormalizer{}, &stubQueue{}, nil)

	_, err := svc.CrawlAll(context.Background())

	require.Error(t, err)
}

func TestEnhanceContent_FetchesThinItems(t *testing.T) {
	feeds := newStubFeeds(testFeed("alpha"))
	thin := normalize.RawItem{
		Title:       "Thin item",
		Summary:     "short",
		URL:         "https://example.com/thin",
		PublishedAt: cycleNow,
	}
	fetcher := &stubFetcher{items: map[string][]normalize.RawItem{"alpha": {thin}}}
	content := &stubContent{body: strings.Repeat("full article text ", 100)}
	norm := &stubNormalizer{outcomes: map[string]normalize.Result{
		"https://example.com/thin": stored(1),
	}}
	svc := newTestService(feeds, fetcher, content, norm, &stubQueue{}, nil)

	stats, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/thin"}, content.fetched)
	assert.Equal(t, int64(1), stats.ContentFetched)

	require.Len(t, norm.seen, 1)
	assert.Equal(t, content.body, norm.seen[0].Content)
}

func TestEnhanceContent_SkipsRichItems(t *testing.T) {
	feeds := newStubFeeds(testFeed("alpha"))
	rich := rawItem("https://example.com/rich")
	rich.Content = strings.Repeat("already plenty of text ", 200)
	fetcher := &stubFetcher{items: map[string][]normalize.RawItem{"alpha": {rich}}}
	content := &stubContent{body: "should not be used"}
	norm := &stubNormalizer{}
	svc := newTestService(feeds, fetcher, content, norm, &stubQueue{}, nil)

	_, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, content.fetched)
	require.Len(t, norm.seen, 1)
	assert.Equal(t, rich.Content, norm.seen[0].Content)
}

func TestEnhanceContent_FailureKeepsFeedText(t *testing.T) {
	feeds := newStubFeeds(testFeed("alpha"))
	thin := normalize.RawItem{
		Title:       "Thin item",
		Summary:     "short",
		URL:         "https://example.com/thin",
		PublishedAt: cycleNow,
	}
	fetcher := &stubFetcher{items: map[string][]normalize.RawItem{"alpha": {thin}}}
	content := &stubContent{err: errors.New("extraction failed")}
	norm := &stubNormalizer{}
	svc := newTestService(feeds, fetcher, content, norm, &stubQueue{}, nil)

	_, err := svc.CrawlAll(context.Background())

	require.NoError(t, err)
	require.Len(t, norm.seen, 1)
	assert.Empty(t, norm.seen[0].Content)
	assert.Equal(t, "short", norm.seen[0].Summary)
}

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"http status", &retry.HTTPError{StatusCode: 502}, "http"},
		{"wrapped http status", errors.Join(errors.New("fetch"), &retry.HTTPError{StatusCode: 404}), "http"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"transport", errors.New("dial tcp: connection refused"), "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyFetchError(tt.err))
		})
	}
}
