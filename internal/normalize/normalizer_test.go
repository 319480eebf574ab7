package normalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswatch/internal/domain/entity"
)

type mockArticleStore struct {
	byURL  map[string]*entity.Article
	byHash map[string]*entity.Article

	created     []*entity.Article
	createErr   error
	flagUpdates []int64
	nextID      int64
}

func newMockArticleStore() *mockArticleStore {
	return &mockArticleStore{
		byURL:  make(map[string]*entity.Article),
		byHash: make(map[string]*entity.Article),
		nextID: 100,
	}
}

func (m *mockArticleStore) Create(ctx context.Context, a *entity.Article) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	a.ID = m.nextID
	m.created = append(m.created, a)
	m.byURL[a.URL] = a
	return nil
}

func (m *mockArticleStore) FindByURL(ctx context.Context, url string) (*entity.Article, error) {
	return m.byURL[url], nil
}

func (m *mockArticleStore) FindByContentHash(ctx context.Context, hash string) (*entity.Article, error) {
	return m.byHash[hash], nil
}

func (m *mockArticleStore) UpdateDuplicateFlags(ctx context.Context, id int64, isDuplicate bool, originalID *int64, processedAt time.Time) error {
	m.flagUpdates = append(m.flagUpdates, id)
	return nil
}

type mockLinkStore struct {
	links     []*entity.DuplicateLink
	createErr error
}

func (m *mockLinkStore) Create(ctx context.Context, l *entity.DuplicateLink) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.links = append(m.links, l)
	return nil
}

func testItem() RawItem {
	return RawItem{
		Title:        "Acme acquires Beta for $2B",
		Summary:      "<p>Acme Corp said it will acquire Beta Inc.</p>",
		URL:          "https://example.com/acme-beta",
		PublishedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		FeedID:       "biz-wire",
		FeedName:     "Business Wire",
		FeedCategory: "business",
		FeedPriority: entity.PriorityHigh,
		FeedTags:     []string{"markets"},
	}
}

func newTestNormalizer(articles *mockArticleStore, links *mockLinkStore) *Normalizer {
	hasher, _ := NewHasher(HashSHA256)
	return NewNormalizer(articles, links, hasher, 10)
}

func TestProcess_StoresNewArticle(t *testing.T) {
	articles := newMockArticleStore()
	links := &mockLinkStore{}
	n := newTestNormalizer(articles, links)

	result, err := n.Process(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, result.Outcome)
	require.NotNil(t, result.Article)

	a := result.Article
	assert.Equal(t, "Acme acquires Beta for $2B", a.Title)
	assert.Equal(t, "Acme Corp said it will acquire Beta Inc.", a.Summary)
	assert.Equal(t, "business", a.Category)
	assert.Equal(t, "biz-wire", a.SourceID)
	assert.NotEmpty(t, a.ContentHash)
	assert.NotEmpty(t, a.Entities)
	assert.False(t, a.DuplicateChecked)
	assert.Empty(t, links.links)
}

func TestProcess_KnownURLDropped(t *testing.T) {
	articles := newMockArticleStore()
	articles.byURL["https://example.com/acme-beta"] = &entity.Article{ID: 1}
	n := newTestNormalizer(articles, &mockLinkStore{})

	result, err := n.Process(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, OutcomeKnownURL, result.Outcome)
	assert.Empty(t, articles.created)
}

func TestProcess_ExactDuplicateByHash(t *testing.T) {
	articles := newMockArticleStore()
	links := &mockLinkStore{}
	n := newTestNormalizer(articles, links)

	// First source's copy.
	first, err := n.Process(context.Background(), testItem())
	require.NoError(t, err)
	require.Equal(t, OutcomeStored, first.Outcome)
	articles.byHash[first.Article.ContentHash] = first.Article

	// Byte-identical story from another source, 15 minutes later.
	item := testItem()
	item.URL = "https://other.example.com/same-story"
	item.FeedID = "other-wire"
	item.FeedName = "Other Wire"
	item.PublishedAt = item.PublishedAt.Add(15 * time.Minute)

	second, err := n.Process(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExactDuplicate, second.Outcome)

	// Both stored, the later one flagged and linked.
	assert.Len(t, articles.created, 2)
	require.Len(t, links.links, 1)

	link := links.links[0]
	assert.Equal(t, first.Article.ID, link.OriginalArticleID)
	assert.Equal(t, second.Article.ID, link.DuplicateArticleID)
	assert.Equal(t, entity.MethodContentHash, link.DetectionMethod)
	assert.Equal(t, 1.0, link.SimilarityScore)
	assert.Equal(t, 15*time.Minute, link.TimeDelta)

	assert.True(t, second.Article.IsDuplicate)
	assert.True(t, second.Article.DuplicateChecked)
	require.NotNil(t, second.Article.OriginalArticleID)
	assert.Equal(t, first.Article.ID, *second.Article.OriginalArticleID)
}

func TestProcess_InvalidItemSkipped(t *testing.T) {
	n := newTestNormalizer(newMockArticleStore(), &mockLinkStore{})

	item := testItem()
	item.Title = "<p></p>"

	result, err := n.Process(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, result.Outcome)
}

func TestProcess_MissingPublishedAtFallsBackToNow(t *testing.T) {
	articles := newMockArticleStore()
	n := newTestNormalizer(articles, &mockLinkStore{})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	item := testItem()
	item.PublishedAt = time.Time{}

	result, err := n.Process(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, fixed, result.Article.PublishedAt)
}

func TestProcess_ConcurrentInsertRace(t *testing.T) {
	articles := newMockArticleStore()
	articles.createErr = entity.ErrDuplicateURL
	n := newTestNormalizer(articles, &mockLinkStore{})

	result, err := n.Process(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, OutcomeKnownURL, result.Outcome)
}

func TestProcess_StoreErrorPropagates(t *testing.T) {
	articles := newMockArticleStore()
	articles.createErr = errors.New("connection refused")
	n := newTestNormalizer(articles, &mockLinkStore{})

	_, err := n.Process(context.Background(), testItem())

	assert.Error(t, err)
}

func TestMergeTags(t *testing.T) {
	got := mergeTags([]string{"markets", "economy"}, []string{"economy", "tech", ""})

	assert.Equal(t, []string{"markets", "economy", "tech"}, got)
}
