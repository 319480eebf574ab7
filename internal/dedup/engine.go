package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"newswatch/internal/ai"
	"newswatch/internal/domain/entity"
	"newswatch/internal/observability/metrics"
	"newswatch/internal/repository"
)

// articleStore is the slice of the article repository the engine uses.
type articleStore interface {
	Get(ctx context.Context, id int64) (*entity.Article, error)
	FindCandidates(ctx context.Context, since time.Time, excludeID int64, filters repository.CandidateFilters, limit int) ([]*entity.Article, error)
	ListUnchecked(ctx context.Context, limit int) ([]*entity.Article, error)
	UpdateDuplicateFlags(ctx context.Context, id int64, isDuplicate bool, originalID *int64, processedAt time.Time) error
}

// linkStore is the slice of the duplicate-link repository the engine uses.
type linkStore interface {
	Create(ctx context.Context, link *entity.DuplicateLink) error
	ListByOriginal(ctx context.Context, originalID int64) ([]*entity.DuplicateLink, error)
	FindByDuplicate(ctx context.Context, duplicateID int64) (*entity.DuplicateLink, error)
}

// embeddingProvider resolves an article's embedding vector. The second
// return value reports whether the vector came from the real embedding
// API rather than the local pseudo fallback.
type embeddingProvider interface {
	Vector(ctx context.Context, article *entity.Article) ([]float32, bool)
}

var (
	_ articleStore = (repository.ArticleRepository)(nil)
	_ linkStore    = (repository.DuplicateRepository)(nil)
)

// Decision is the recorded outcome of one duplicate check.
type Decision struct {
	ArticleID   int64
	IsDuplicate bool
	OriginalID  int64 // zero when unique
	Method      entity.DetectionMethod
	Score       float64
	Candidates  int
}

// UniqueHandler is invoked for every article the engine declares unique.
// The alert stage hangs off this hook.
type UniqueHandler func(ctx context.Context, article *entity.Article)

// scoredCandidate pairs a candidate with its similarity outcome.
type scoredCandidate struct {
	article   *entity.Article
	breakdown entity.SimilarityBreakdown
	overall   float64
	hashEqual bool
}

// Engine is the duplicate-detection stage. Articles are enqueued by ID
// after normalization; a single worker drains the queue in batches so at
// most one check is in flight at a time and original election never races
// with itself.
type Engine struct {
	cfg        Config
	articles   articleStore
	links      linkStore
	clusterer  *Clusterer
	embeddings embeddingProvider
	validator  ai.Validator
	onUnique   UniqueHandler
	now        func() time.Time

	queue chan int64

	mu       sync.Mutex
	attempts map[int64]int
}

const queueCapacity = 1024

// NewEngine wires the engine. embeddings and validator may be nil; the
// semantic signal then scores zero and the borderline gate is skipped.
func NewEngine(cfg Config, articles articleStore, links linkStore, clusterer *Clusterer, embeddings embeddingProvider, validator ai.Validator) *Engine {
	return &Engine{
		cfg:        cfg,
		articles:   articles,
		links:      links,
		clusterer:  clusterer,
		embeddings: embeddings,
		validator:  validator,
		now:        time.Now,
		queue:      make(chan int64, queueCapacity),
		attempts:   make(map[int64]int),
	}
}

// SetUniqueHandler registers the unique-article hook. Must be called
// before Run.
func (e *Engine) SetUniqueHandler(h UniqueHandler) { e.onUnique = h }

// Enqueue submits an article for checking. A full queue drops the ID
// with a warning; DrainBacklog picks such articles up later because
// their duplicate_checked flag stays false.
func (e *Engine) Enqueue(articleID int64) {
	select {
	case e.queue <- articleID:
		metrics.UpdateDedupQueueDepth(len(e.queue))
	default:
		slog.Warn("dedup queue full, deferring article to backlog drain",
			slog.Int64("article_id", articleID))
	}
}

// Run drains the queue until the context is cancelled. Batches are
// bounded by BatchSize so a long backlog cannot starve shutdown.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-e.queue:
			e.processWithRetry(ctx, id)
			for drained := 1; drained < e.cfg.BatchSize; drained++ {
				select {
				case next := <-e.queue:
					e.processWithRetry(ctx, next)
				default:
					drained = e.cfg.BatchSize
				}
			}
			metrics.UpdateDedupQueueDepth(len(e.queue))
		}
	}
}

// DrainBacklog enqueues unchecked articles left over from a previous
// run. Returns the number of articles queued.
func (e *Engine) DrainBacklog(ctx context.Context) (int, error) {
	unchecked, err := e.articles.ListUnchecked(ctx, e.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("DrainBacklog: %w", err)
	}
	for _, article := range unchecked {
		e.Enqueue(article.ID)
	}
	if len(unchecked) > 0 {
		slog.Info("queued dedup backlog", slog.Int("count", len(unchecked)))
	}
	return len(unchecked), nil
}

// processWithRetry runs one check and re-enqueues the article on a
// recoverable error, up to MaxAttempts per article.
func (e *Engine) processWithRetry(ctx context.Context, articleID int64) {
	_, err := e.ProcessByID(ctx, articleID)
	if err == nil {
		e.mu.Lock()
		delete(e.attempts, articleID)
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	e.attempts[articleID]++
	attempts := e.attempts[articleID]
	if attempts >= e.cfg.MaxAttempts {
		delete(e.attempts, articleID)
	}
	e.mu.Unlock()

	if attempts >= e.cfg.MaxAttempts {
		slog.Error("dedup check failed permanently",
			slog.Int64("article_id", articleID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		return
	}
	slog.Warn("dedup check failed, re-enqueueing",
		slog.Int64("article_id", articleID),
		slog.Int("attempt", attempts),
		slog.String("error", err.Error()))
	e.Enqueue(articleID)
}

// ProcessByID loads the article and runs the check. Already-checked and
// missing articles are skipped silently so re-enqueues stay idempotent.
func (e *Engine) ProcessByID(ctx context.Context, articleID int64) (*Decision, error) {
	article, err := e.articles.Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("ProcessByID: %w", err)
	}
	if article == nil || article.DuplicateChecked {
		return nil, nil
	}
	return e.ProcessArticle(ctx, article)
}

// ProcessArticle runs the full duplicate check for one article:
// candidate retrieval over the trailing window, multi-signal scoring,
// the borderline LLM gate, original election and cluster maintenance.
func (e *Engine) ProcessArticle(ctx context.Context, article *entity.Article) (*Decision, error) {
	start := e.now()
	since := start.Add(-e.cfg.TimeWindow)

	candidates, err := e.articles.FindCandidates(ctx, since, article.ID, repository.CandidateFilters{
		Source:   article.SourceID,
		Category: article.Category,
		Tags:     article.Tags,
	}, e.cfg.CandidateLimit)
	if err != nil {
		metrics.RecordDedupCheck("error", e.now().Sub(start), 0)
		return nil, fmt.Errorf("ProcessArticle: candidates: %w", err)
	}

	matches := e.scoreCandidates(ctx, article, candidates)

	// Every match clearing its method threshold is part of the duplicate
	// set. The LLM gate applies to the strongest match only; weaker
	// matches in the borderline band stay on the threshold decision.
	confirmed := make([]scoredCandidate, 0, len(matches))
	for i := range matches {
		match := &matches[i]
		method := PrimaryMethod(match.breakdown, match.hashEqual)
		isDuplicate := match.overall >= ThresholdFor(method, e.cfg)
		if i == 0 {
			isDuplicate = e.applyValidationGate(ctx, article, match, method, isDuplicate)
		}
		if isDuplicate {
			confirmed = append(confirmed, *match)
		}
	}

	if len(confirmed) == 0 {
		return e.declareUnique(ctx, article, start, len(candidates))
	}
	method := PrimaryMethod(confirmed[0].breakdown, confirmed[0].hashEqual)
	return e.declareDuplicate(ctx, article, confirmed, method, start, len(candidates))
}

// scoreCandidates computes the breakdown for every candidate and returns
// the matches clearing the cheap floor, strongest first.
func (e *Engine) scoreCandidates(ctx context.Context, article *entity.Article, candidates []*entity.Article) []scoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	var articleVec []float32
	if e.embeddings != nil {
		articleVec, _ = e.embeddings.Vector(ctx, article)
	}

	matches := make([]scoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		hashEqual := article.ContentHash != "" && article.ContentHash == candidate.ContentHash

		var candidateVec []float32
		if e.embeddings != nil && !hashEqual {
			candidateVec, _ = e.embeddings.Vector(ctx, candidate)
		}

		breakdown := Score(article, candidate, articleVec, candidateVec, e.cfg)
		overall := Combine(breakdown, e.cfg)
		if hashEqual {
			overall = 1.0
		}
		if overall < e.cfg.MinOverall {
			continue
		}
		matches = append(matches, scoredCandidate{
			article:   candidate,
			breakdown: breakdown,
			overall:   overall,
			hashEqual: hashEqual,
		})
	}
	// Candidates arrive newest first; the stable sort keeps that order
	// among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].overall > matches[j].overall
	})
	return matches
}

// applyValidationGate consults the LLM for scores inside the borderline
// band. The verdict replaces the threshold decision; a gate failure
// leaves the threshold decision standing.
func (e *Engine) applyValidationGate(ctx context.Context, article *entity.Article, best *scoredCandidate, method entity.DetectionMethod, algorithmic bool) bool {
	if e.validator == nil || best.hashEqual {
		return algorithmic
	}
	threshold := ThresholdFor(method, e.cfg)
	if best.overall < e.cfg.LLMBandLow || best.overall > threshold+e.cfg.LLMBandSlack {
		return algorithmic
	}

	verdict, err := e.validator.Validate(ctx, best.article, article)
	if err != nil {
		slog.Warn("llm validation unavailable, keeping threshold decision",
			slog.Int64("article_id", article.ID),
			slog.Int64("candidate_id", best.article.ID),
			slog.String("error", err.Error()))
		return algorithmic
	}
	return verdict.IsDuplicate && verdict.Confidence >= e.cfg.LLMMinConfidence
}

// declareUnique records the article as unique: flags, a singleton
// cluster and the unique-article hook.
func (e *Engine) declareUnique(ctx context.Context, article *entity.Article, start time.Time, candidates int) (*Decision, error) {
	now := e.now()
	if err := e.articles.UpdateDuplicateFlags(ctx, article.ID, false, nil, now); err != nil {
		metrics.RecordDedupCheck("error", now.Sub(start), candidates)
		return nil, fmt.Errorf("declareUnique: flags: %w", err)
	}
	if _, err := e.clusterer.CreateSingleton(ctx, article); err != nil {
		slog.Warn("cluster creation failed",
			slog.Int64("article_id", article.ID),
			slog.String("error", err.Error()))
	}

	metrics.RecordDedupCheck("unique", e.now().Sub(start), candidates)
	slog.Info("article unique",
		slog.Int64("article_id", article.ID),
		slog.Int("candidates", candidates))

	if e.onUnique != nil {
		e.onUnique(ctx, article)
	}
	return &Decision{ArticleID: article.ID, Candidates: candidates}, nil
}

// declareDuplicate elects the original for the matched set and records
// the links, the flags and the cluster memberships. matches holds every
// confirmed candidate, strongest first.
func (e *Engine) declareDuplicate(ctx context.Context, article *entity.Article, matches []scoredCandidate, method entity.DetectionMethod, start time.Time, candidates int) (*Decision, error) {
	best := &matches[0]
	original, err := e.resolveOriginal(ctx, best.article)
	if err != nil {
		metrics.RecordDedupCheck("error", e.now().Sub(start), candidates)
		return nil, fmt.Errorf("declareDuplicate: %w", err)
	}

	if publishedBefore(article, original) {
		// The new article predates the stored original. The set is
		// re-elected around the new article and the old original
		// becomes one of its duplicates.
		if err := e.reelectOriginal(ctx, article, original, best, method); err != nil {
			metrics.RecordDedupCheck("error", e.now().Sub(start), candidates)
			return nil, fmt.Errorf("declareDuplicate: %w", err)
		}
		e.joinCluster(ctx, original, article)
		e.consolidateMatches(ctx, article, matches[1:])

		metrics.RecordDedupCheck("duplicate", e.now().Sub(start), candidates)
		metrics.RecordDuplicate(string(method))

		// The new arrival is the set's elected original and has not been
		// surfaced before; it is the alertable article of this story.
		if e.onUnique != nil {
			e.onUnique(ctx, article)
		}
		return &Decision{
			ArticleID:   original.ID,
			IsDuplicate: true,
			OriginalID:  article.ID,
			Method:      method,
			Score:       best.overall,
			Candidates:  candidates,
		}, nil
	}

	if err := e.recordLink(ctx, original, article, best, method); err != nil {
		metrics.RecordDedupCheck("error", e.now().Sub(start), candidates)
		return nil, fmt.Errorf("declareDuplicate: %w", err)
	}
	if err := e.articles.UpdateDuplicateFlags(ctx, article.ID, true, &original.ID, e.now()); err != nil {
		metrics.RecordDedupCheck("error", e.now().Sub(start), candidates)
		return nil, fmt.Errorf("declareDuplicate: flags: %w", err)
	}
	e.joinCluster(ctx, original, article)
	e.consolidateMatches(ctx, original, matches[1:])

	metrics.RecordDedupCheck("duplicate", e.now().Sub(start), candidates)
	metrics.RecordDuplicate(string(method))
	slog.Info("duplicate detected",
		slog.Int64("article_id", article.ID),
		slog.Int64("original_id", original.ID),
		slog.String("method", string(method)),
		slog.Float64("score", best.overall))

	return &Decision{
		ArticleID:   article.ID,
		IsDuplicate: true,
		OriginalID:  original.ID,
		Method:      method,
		Score:       best.overall,
		Candidates:  candidates,
	}, nil
}

// consolidateMatches folds the remaining confirmed matches into the
// elected original's set: each gets a DuplicateLink, duplicate flags and
// cluster membership. Best effort; the checked article's own decision is
// already durable, and anything skipped here (including a match whose set
// holds an even earlier original) converges through the offline cluster
// merge pass.
func (e *Engine) consolidateMatches(ctx context.Context, elected *entity.Article, matches []scoredCandidate) {
	for i := range matches {
		match := &matches[i]
		if match.article.ID == elected.ID {
			continue
		}
		member, err := e.resolveOriginal(ctx, match.article)
		if err != nil {
			slog.Warn("match consolidation lookup failed",
				slog.Int64("candidate_id", match.article.ID),
				slog.String("error", err.Error()))
			continue
		}
		if member.ID == elected.ID || publishedBefore(member, elected) {
			continue
		}

		method := PrimaryMethod(match.breakdown, match.hashEqual)
		if err := e.recordLink(ctx, elected, match.article, match, method); err != nil {
			slog.Warn("match consolidation link failed",
				slog.Int64("candidate_id", match.article.ID),
				slog.String("error", err.Error()))
			continue
		}
		if err := e.articles.UpdateDuplicateFlags(ctx, match.article.ID, true, &elected.ID, e.now()); err != nil {
			slog.Warn("match consolidation flags failed",
				slog.Int64("candidate_id", match.article.ID),
				slog.String("error", err.Error()))
			continue
		}
		e.joinCluster(ctx, elected, match.article)
	}
}

// resolveOriginal follows the matched candidate to its set's original:
// a candidate that is itself a duplicate points at the real original.
func (e *Engine) resolveOriginal(ctx context.Context, candidate *entity.Article) (*entity.Article, error) {
	if !candidate.IsDuplicate {
		return candidate, nil
	}
	link, err := e.links.FindByDuplicate(ctx, candidate.ID)
	if err != nil {
		return nil, fmt.Errorf("resolveOriginal: %w", err)
	}
	if link == nil {
		return candidate, nil
	}
	original, err := e.articles.Get(ctx, link.OriginalArticleID)
	if err != nil {
		return nil, fmt.Errorf("resolveOriginal: %w", err)
	}
	if original == nil {
		return candidate, nil
	}
	return original, nil
}

// reelectOriginal makes the new article the original of the displaced
// article's set: the displaced original and each of its duplicates get a
// link to the new article and updated flags, and the new article itself
// is marked unique.
func (e *Engine) reelectOriginal(ctx context.Context, article, displaced *entity.Article, best *scoredCandidate, method entity.DetectionMethod) error {
	if err := e.recordLink(ctx, article, displaced, best, method); err != nil {
		return err
	}
	if err := e.articles.UpdateDuplicateFlags(ctx, displaced.ID, true, &article.ID, e.now()); err != nil {
		return fmt.Errorf("reelectOriginal: displaced flags: %w", err)
	}

	members, err := e.links.ListByOriginal(ctx, displaced.ID)
	if err != nil {
		return fmt.Errorf("reelectOriginal: members: %w", err)
	}
	for _, member := range members {
		if member.DuplicateArticleID == article.ID {
			continue
		}
		relink := &entity.DuplicateLink{
			OriginalArticleID:  article.ID,
			DuplicateArticleID: member.DuplicateArticleID,
			SimilarityScore:    member.SimilarityScore,
			DetectionMethod:    member.DetectionMethod,
			Breakdown:          member.Breakdown,
			OriginalTitle:      article.Title,
			DuplicateTitle:     member.DuplicateTitle,
			OriginalSource:     article.Source,
			DuplicateSource:    member.DuplicateSource,
		}
		if err := e.links.Create(ctx, relink); err != nil && !errors.Is(err, entity.ErrDuplicateLink) {
			return fmt.Errorf("reelectOriginal: relink: %w", err)
		}
		if err := e.articles.UpdateDuplicateFlags(ctx, member.DuplicateArticleID, true, &article.ID, e.now()); err != nil {
			return fmt.Errorf("reelectOriginal: member flags: %w", err)
		}
	}

	if err := e.articles.UpdateDuplicateFlags(ctx, article.ID, false, nil, e.now()); err != nil {
		return fmt.Errorf("reelectOriginal: original flags: %w", err)
	}

	slog.Info("original re-elected",
		slog.Int64("new_original_id", article.ID),
		slog.Int64("displaced_id", displaced.ID),
		slog.Int("relinked", len(members)))
	return nil
}

// recordLink persists the directed duplicate edge with its metadata
// snapshot. A link that already exists is not an error.
func (e *Engine) recordLink(ctx context.Context, original, duplicate *entity.Article, best *scoredCandidate, method entity.DetectionMethod) error {
	link := &entity.DuplicateLink{
		OriginalArticleID:  original.ID,
		DuplicateArticleID: duplicate.ID,
		SimilarityScore:    best.overall,
		DetectionMethod:    method,
		Breakdown:          best.breakdown,
		OriginalTitle:      original.Title,
		DuplicateTitle:     duplicate.Title,
		OriginalSource:     original.Source,
		DuplicateSource:    duplicate.Source,
		TimeDelta:          duplicate.PublishedAt.Sub(original.PublishedAt),
	}
	if err := link.Validate(); err != nil {
		return fmt.Errorf("recordLink: %w", err)
	}
	if err := e.links.Create(ctx, link); err != nil && !errors.Is(err, entity.ErrDuplicateLink) {
		return fmt.Errorf("recordLink: %w", err)
	}
	return nil
}

// joinCluster puts the article into the original's cluster, creating it
// when the original predates clustering. Cluster failures degrade to a
// warning; the duplicate decision itself is already durable.
func (e *Engine) joinCluster(ctx context.Context, original, article *entity.Article) {
	cluster, err := e.clusterer.store.FindByArticle(ctx, original.ID)
	if err != nil {
		slog.Warn("cluster lookup failed",
			slog.Int64("article_id", original.ID),
			slog.String("error", err.Error()))
		return
	}
	if cluster == nil {
		cluster, err = e.clusterer.CreateSingleton(ctx, original)
		if err != nil {
			slog.Warn("cluster creation failed",
				slog.Int64("article_id", original.ID),
				slog.String("error", err.Error()))
			return
		}
	}
	if err := e.clusterer.Append(ctx, cluster, article); err != nil {
		slog.Warn("cluster append failed",
			slog.Int64("cluster_id", cluster.ID),
			slog.Int64("article_id", article.ID),
			slog.String("error", err.Error()))
	}
}

// publishedBefore reports whether a was published strictly before b,
// breaking ties on insertion time and then ID.
func publishedBefore(a, b *entity.Article) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
