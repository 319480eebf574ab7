package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswatch/internal/domain/entity"
)

type fakeClusterStore struct {
	clusters map[int64]*entity.Cluster
	nextID   int64
	listErr  error
}

func newFakeClusterStore() *fakeClusterStore {
	return &fakeClusterStore{clusters: make(map[int64]*entity.Cluster), nextID: 1}
}

func (s *fakeClusterStore) Create(_ context.Context, cluster *entity.Cluster) error {
	cluster.ID = s.nextID
	s.nextID++
	s.clusters[cluster.ID] = cluster
	return nil
}

func (s *fakeClusterStore) Get(_ context.Context, id int64) (*entity.Cluster, error) {
	return s.clusters[id], nil
}

func (s *fakeClusterStore) FindByArticle(_ context.Context, articleID int64) (*entity.Cluster, error) {
	for _, cluster := range s.clusters {
		if cluster.Contains(articleID) {
			return cluster, nil
		}
	}
	return nil, nil
}

func (s *fakeClusterStore) Update(_ context.Context, cluster *entity.Cluster) error {
	s.clusters[cluster.ID] = cluster
	return nil
}

func (s *fakeClusterStore) Delete(_ context.Context, id int64) error {
	delete(s.clusters, id)
	return nil
}

func (s *fakeClusterStore) ListUpdatedSince(_ context.Context, _ time.Time) ([]*entity.Cluster, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*entity.Cluster, 0, len(s.clusters))
	for id := s.nextID - 1; id >= 1; id-- {
		if cluster, ok := s.clusters[id]; ok {
			out = append(out, cluster)
		}
	}
	return out, nil
}

func clusterArticle(id int64, source, category string, published time.Time) *entity.Article {
	return &entity.Article{
		ID:          id,
		Title:       "Fed raises rates",
		Content:     "The central bank raised interest rates by a quarter point",
		Source:      source,
		SourceID:    source,
		Category:    category,
		Tags:        []string{"markets"},
		PublishedAt: published,
	}
}

func TestClusterer_CreateSingleton(t *testing.T) {
	store := newFakeClusterStore()
	clusterer := NewClusterer(store)
	published := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cluster, err := clusterer.CreateSingleton(context.Background(), clusterArticle(7, "reuters", "business", published))

	require.NoError(t, err)
	assert.Equal(t, []int64{7}, cluster.ArticleIDs)
	assert.Equal(t, "business", cluster.Category)
	assert.Equal(t, []string{"reuters"}, cluster.Sources)
	assert.Equal(t, published, cluster.Centroid.MeanPublishedAt)
	assert.Equal(t, 1, cluster.Centroid.SourceDistribution["reuters"])
	assert.Greater(t, cluster.Centroid.AvgWordCount, 0.0)
}

func TestClusterer_AppendUpdatesCentroid(t *testing.T) {
	store := newFakeClusterStore()
	clusterer := NewClusterer(store)
	first := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cluster, err := clusterer.CreateSingleton(context.Background(), clusterArticle(1, "reuters", "business", first))
	require.NoError(t, err)

	second := clusterArticle(2, "bbc", "business", first.Add(2*time.Hour))
	require.NoError(t, clusterer.Append(context.Background(), cluster, second))

	assert.Equal(t, []int64{1, 2}, cluster.ArticleIDs)
	assert.ElementsMatch(t, []string{"reuters", "bbc"}, cluster.Sources)
	assert.Equal(t, 1, cluster.Centroid.SourceDistribution["bbc"])
	// Mean timestamp moves halfway toward the second article.
	assert.Equal(t, first.Add(time.Hour), cluster.Centroid.MeanPublishedAt)
}

func TestClusterer_AppendExistingMemberIsNoop(t *testing.T) {
	store := newFakeClusterStore()
	clusterer := NewClusterer(store)
	article := clusterArticle(1, "reuters", "business", time.Now())

	cluster, err := clusterer.CreateSingleton(context.Background(), article)
	require.NoError(t, err)
	require.NoError(t, clusterer.Append(context.Background(), cluster, article))

	assert.Equal(t, []int64{1}, cluster.ArticleIDs)
	assert.Equal(t, 1, cluster.Centroid.SourceDistribution["reuters"])
}

func TestClusterer_AbsorbMergesAndDeletes(t *testing.T) {
	store := newFakeClusterStore()
	clusterer := NewClusterer(store)
	published := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	dst, err := clusterer.CreateSingleton(context.Background(), clusterArticle(1, "reuters", "business", published))
	require.NoError(t, err)
	src, err := clusterer.CreateSingleton(context.Background(), clusterArticle(2, "bbc", "business", published))
	require.NoError(t, err)

	require.NoError(t, clusterer.Absorb(context.Background(), dst, src))

	assert.ElementsMatch(t, []int64{1, 2}, dst.ArticleIDs)
	assert.Equal(t, 1, dst.Centroid.SourceDistribution["reuters"])
	assert.Equal(t, 1, dst.Centroid.SourceDistribution["bbc"])
	_, srcStillThere := store.clusters[src.ID]
	assert.False(t, srcStillThere)
}

func TestClusterSimilarity(t *testing.T) {
	a := &entity.Cluster{Category: "business", Sources: []string{"reuters"}, Tags: []string{"markets", "fed"}}

	same := &entity.Cluster{Category: "business", Sources: []string{"reuters"}, Tags: []string{"markets", "fed"}}
	assert.InDelta(t, 1.0, ClusterSimilarity(a, same), 1e-9)

	otherCategory := &entity.Cluster{Category: "sports", Sources: []string{"reuters"}, Tags: []string{"markets", "fed"}}
	assert.Equal(t, 0.0, ClusterSimilarity(a, otherCategory))

	disjoint := &entity.Cluster{Category: "business", Sources: []string{"bbc"}, Tags: []string{"tennis"}}
	assert.InDelta(t, 0.4, ClusterSimilarity(a, disjoint), 1e-9)
}

func TestClusterer_MergePass(t *testing.T) {
	store := newFakeClusterStore()
	clusterer := NewClusterer(store)
	published := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := clusterer.CreateSingleton(context.Background(), clusterArticle(1, "reuters", "business", published))
	require.NoError(t, err)
	_, err = clusterer.CreateSingleton(context.Background(), clusterArticle(2, "reuters", "business", published))
	require.NoError(t, err)
	// Different category, never merged.
	_, err = clusterer.CreateSingleton(context.Background(), clusterArticle(3, "reuters", "sports", published))
	require.NoError(t, err)

	merged, err := clusterer.MergePass(context.Background(), published.Add(-time.Hour), 0.8)

	require.NoError(t, err)
	assert.Equal(t, 1, merged)
	assert.Len(t, store.clusters, 2)

	survivor, err := store.FindByArticle(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.True(t, survivor.Contains(2))
}
