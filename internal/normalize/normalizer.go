package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/observability/metrics"
)

// RawItem is one parsed feed entry handed over by the ingestion pipeline.
type RawItem struct {
	Title       string
	Summary     string
	Content     string
	URL         string
	Author      string
	ImageURL    string
	Language    string
	Categories  []string
	PublishedAt time.Time // zero when the feed omitted or mangled the date

	// Feed context.
	FeedID       string
	FeedName     string
	FeedCategory string
	FeedPriority entity.Priority
	FeedTags     []string
}

// Outcome classifies what happened to a raw item.
type Outcome string

const (
	// OutcomeStored means a new article was persisted and needs a
	// duplicate check.
	OutcomeStored Outcome = "stored"
	// OutcomeKnownURL means the item's URL is already stored; nothing
	// was written.
	OutcomeKnownURL Outcome = "known_url"
	// OutcomeExactDuplicate means an article with the same content hash
	// exists; the item was persisted pre-flagged as a duplicate with a
	// content_hash link, skipping the scoring pipeline entirely.
	OutcomeExactDuplicate Outcome = "exact_duplicate"
	// OutcomeInvalid means the item was missing required fields.
	OutcomeInvalid Outcome = "invalid"
)

// Result is the outcome of normalizing one raw item. Article is set for
// OutcomeStored and OutcomeExactDuplicate.
type Result struct {
	Outcome Outcome
	Article *entity.Article
}

type articleStore interface {
	Create(ctx context.Context, article *entity.Article) error
	FindByURL(ctx context.Context, url string) (*entity.Article, error)
	FindByContentHash(ctx context.Context, hash string) (*entity.Article, error)
	UpdateDuplicateFlags(ctx context.Context, id int64, isDuplicate bool, originalID *int64, processedAt time.Time) error
}

type linkStore interface {
	Create(ctx context.Context, link *entity.DuplicateLink) error
}

// Normalizer converts raw feed items into persisted articles.
type Normalizer struct {
	articles    articleStore
	links       linkStore
	hasher      *Hasher
	maxEntities int
	now         func() time.Time
}

// NewNormalizer creates a normalizer. maxEntities <= 0 selects the default
// cap.
func NewNormalizer(articles articleStore, links linkStore, hasher *Hasher, maxEntities int) *Normalizer {
	if maxEntities <= 0 {
		maxEntities = DefaultMaxEntities
	}
	return &Normalizer{
		articles:    articles,
		links:       links,
		hasher:      hasher,
		maxEntities: maxEntities,
		now:         time.Now,
	}
}

// Process normalizes and persists one raw item.
//
// Pipeline: clean text, repair the publish timestamp, fingerprint, check the
// URL and content-hash short-circuits, extract entities, persist. Articles
// that hash-match an existing one are stored already flagged as duplicates
// so invariants over stored pairs hold without a scoring pass.
func (n *Normalizer) Process(ctx context.Context, item RawItem) (Result, error) {
	title := CleanText(item.Title)
	summary := CleanText(item.Summary)
	content := CleanText(item.Content)

	if title == "" || item.URL == "" {
		metrics.RecordArticleSkipped("invalid_item")
		return Result{Outcome: OutcomeInvalid}, nil
	}

	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = n.now()
	}

	// URL short-circuit: the same item refetched on a later cycle.
	existing, err := n.articles.FindByURL(ctx, item.URL)
	if err != nil {
		return Result{}, fmt.Errorf("Process: find by url: %w", err)
	}
	if existing != nil {
		metrics.RecordArticleSkipped("known_url")
		return Result{Outcome: OutcomeKnownURL}, nil
	}

	hashBody := content
	if hashBody == "" {
		hashBody = summary
	}
	contentHash := n.hasher.ContentHash(title, hashBody)

	article := &entity.Article{
		Title:       title,
		Summary:     summary,
		Content:     content,
		URL:         item.URL,
		Source:      item.FeedName,
		SourceID:    item.FeedID,
		Category:    pickCategory(item),
		Tags:        mergeTags(item.FeedTags, item.Categories),
		Priority:    string(item.FeedPriority),
		Author:      CleanText(item.Author),
		ImageURL:    item.ImageURL,
		Language:    item.Language,
		Entities:    ExtractEntities(title, summary+" "+content, n.maxEntities),
		ContentHash: contentHash,
		PublishedAt: publishedAt,
		FetchedAt:   n.now(),
	}
	if err := article.Validate(); err != nil {
		metrics.RecordArticleSkipped("invalid_item")
		return Result{Outcome: OutcomeInvalid}, nil
	}

	// Hash short-circuit: byte-identical story from another source.
	original, err := n.articles.FindByContentHash(ctx, contentHash)
	if err != nil {
		return Result{}, fmt.Errorf("Process: find by hash: %w", err)
	}

	if err := n.articles.Create(ctx, article); err != nil {
		if errors.Is(err, entity.ErrDuplicateURL) {
			// Another fetcher stored the same URL between lookup and
			// insert. Equivalent to the URL short-circuit.
			metrics.RecordArticleSkipped("known_url")
			return Result{Outcome: OutcomeKnownURL}, nil
		}
		return Result{}, fmt.Errorf("Process: create article: %w", err)
	}

	if original != nil {
		if err := n.recordExactDuplicate(ctx, original, article); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeExactDuplicate, Article: article}, nil
	}

	return Result{Outcome: OutcomeStored, Article: article}, nil
}

// recordExactDuplicate links the freshly stored article to the hash-matched
// original and flags it checked, so the dedup engine never sees it.
func (n *Normalizer) recordExactDuplicate(ctx context.Context, original, duplicate *entity.Article) error {
	link := &entity.DuplicateLink{
		OriginalArticleID:  original.ID,
		DuplicateArticleID: duplicate.ID,
		SimilarityScore:    1.0,
		DetectionMethod:    entity.MethodContentHash,
		Breakdown: entity.SimilarityBreakdown{
			TitleSimilarity:   1.0,
			ContentSimilarity: 1.0,
		},
		OriginalTitle:   original.Title,
		DuplicateTitle:  duplicate.Title,
		OriginalSource:  original.Source,
		DuplicateSource: duplicate.Source,
		TimeDelta:       duplicate.PublishedAt.Sub(original.PublishedAt),
	}
	if err := n.links.Create(ctx, link); err != nil && !errors.Is(err, entity.ErrDuplicateLink) {
		return fmt.Errorf("recordExactDuplicate: %w", err)
	}

	now := n.now()
	originalID := original.ID
	if err := n.articles.UpdateDuplicateFlags(ctx, duplicate.ID, true, &originalID, now); err != nil {
		return fmt.Errorf("recordExactDuplicate: update flags: %w", err)
	}
	duplicate.DuplicateChecked = true
	duplicate.IsDuplicate = true
	duplicate.OriginalArticleID = &originalID
	duplicate.ProcessedAt = &now

	metrics.RecordDuplicate(string(entity.MethodContentHash))
	slog.Info("exact duplicate detected",
		slog.Int64("original_id", original.ID),
		slog.Int64("duplicate_id", duplicate.ID),
		slog.String("source", duplicate.Source))

	return nil
}

// pickCategory prefers the item's own category over the feed default.
func pickCategory(item RawItem) string {
	if len(item.Categories) > 0 && item.Categories[0] != "" {
		return item.Categories[0]
	}
	return item.FeedCategory
}

// mergeTags unions feed tags with item categories, preserving order and
// dropping duplicates.
func mergeTags(feedTags, itemCategories []string) []string {
	seen := make(map[string]struct{}, len(feedTags)+len(itemCategories))
	var out []string
	for _, group := range [][]string{feedTags, itemCategories} {
		for _, t := range group {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
