package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/utils/text"
)

// clusterStore is the slice of the cluster repository the clusterer uses.
type clusterStore interface {
	Create(ctx context.Context, cluster *entity.Cluster) error
	Get(ctx context.Context, id int64) (*entity.Cluster, error)
	FindByArticle(ctx context.Context, articleID int64) (*entity.Cluster, error)
	Update(ctx context.Context, cluster *entity.Cluster) error
	Delete(ctx context.Context, id int64) error
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*entity.Cluster, error)
}

const (
	maxCentroidCategories = 5
	maxCentroidTags       = 10
)

// Clusterer maintains story clusters: singleton creation, appends, and
// cluster-to-cluster merges. Centroids are updated incrementally so an
// append never has to re-read every member article.
type Clusterer struct {
	store clusterStore
	now   func() time.Time
}

func NewClusterer(store clusterStore) *Clusterer {
	return &Clusterer{store: store, now: time.Now}
}

// CreateSingleton creates a cluster containing only the article.
func (c *Clusterer) CreateSingleton(ctx context.Context, article *entity.Article) (*entity.Cluster, error) {
	now := c.now()
	cluster := &entity.Cluster{
		ArticleIDs: []int64{article.ID},
		Centroid:   centroidAdd(entity.ClusterCentroid{}, 0, article),
		Category:   article.Category,
		Tags:       capStrings(article.Tags, maxCentroidTags),
		Sources:    []string{article.Source},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.store.Create(ctx, cluster); err != nil {
		return nil, fmt.Errorf("CreateSingleton: %w", err)
	}
	return cluster, nil
}

// Append adds the article to the cluster and recomputes the centroid.
// Appending an existing member is a no-op.
func (c *Clusterer) Append(ctx context.Context, cluster *entity.Cluster, article *entity.Article) error {
	if cluster.Contains(article.ID) {
		return nil
	}

	memberCount := len(cluster.ArticleIDs)
	cluster.ArticleIDs = append(cluster.ArticleIDs, article.ID)
	cluster.Centroid = centroidAdd(cluster.Centroid, memberCount, article)
	cluster.Tags = capStrings(unionStrings(cluster.Tags, article.Tags), maxCentroidTags)
	cluster.Sources = unionStrings(cluster.Sources, []string{article.Source})
	cluster.UpdatedAt = c.now()

	if err := c.store.Update(ctx, cluster); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// Absorb merges src into dst and deletes src. dst keeps its identity so
// existing article-to-cluster lookups stay valid for the surviving side.
func (c *Clusterer) Absorb(ctx context.Context, dst, src *entity.Cluster) error {
	if dst.ID == src.ID {
		return nil
	}

	for _, id := range src.ArticleIDs {
		if !dst.Contains(id) {
			dst.ArticleIDs = append(dst.ArticleIDs, id)
		}
	}
	dst.Centroid = centroidMerge(dst.Centroid, len(dst.ArticleIDs)-len(src.ArticleIDs), src.Centroid, len(src.ArticleIDs))
	dst.Tags = capStrings(unionStrings(dst.Tags, src.Tags), maxCentroidTags)
	dst.Sources = unionStrings(dst.Sources, src.Sources)
	dst.UpdatedAt = c.now()

	if err := c.store.Update(ctx, dst); err != nil {
		return fmt.Errorf("Absorb: update: %w", err)
	}
	if err := c.store.Delete(ctx, src.ID); err != nil {
		return fmt.Errorf("Absorb: delete: %w", err)
	}
	return nil
}

// MergePass is the offline maintenance pass: clusters touched since the
// given time are compared pairwise and merged when their similarity
// clears the threshold. Returns the number of merges performed.
func (c *Clusterer) MergePass(ctx context.Context, since time.Time, threshold float64) (int, error) {
	clusters, err := c.store.ListUpdatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("MergePass: %w", err)
	}

	merged := 0
	absorbed := make(map[int64]bool)
	for i := 0; i < len(clusters); i++ {
		if absorbed[clusters[i].ID] {
			continue
		}
		for j := i + 1; j < len(clusters); j++ {
			if absorbed[clusters[j].ID] {
				continue
			}
			score := ClusterSimilarity(clusters[i], clusters[j])
			if score < threshold {
				continue
			}
			if err := c.Absorb(ctx, clusters[i], clusters[j]); err != nil {
				slog.Warn("cluster merge failed",
					slog.Int64("dst", clusters[i].ID),
					slog.Int64("src", clusters[j].ID),
					slog.String("error", err.Error()))
				continue
			}
			absorbed[clusters[j].ID] = true
			merged++
		}
	}
	return merged, nil
}

// ClusterSimilarity scores two clusters on category equality, source
// overlap and tag overlap. Clusters in different categories never merge.
func ClusterSimilarity(a, b *entity.Cluster) float64 {
	if a.Category != b.Category {
		return 0
	}
	return clampUnit(0.4 +
		0.3*jaccardStrings(a.Sources, b.Sources) +
		0.3*jaccardStrings(a.Tags, b.Tags))
}

// centroidAdd folds one article into a centroid covering n members.
func centroidAdd(c entity.ClusterCentroid, n int, article *entity.Article) entity.ClusterCentroid {
	count := float64(n)
	next := float64(n + 1)

	c.AvgWordCount = (c.AvgWordCount*count + float64(text.WordCount(bodyText(article)))) / next
	c.AvgEntityCount = (c.AvgEntityCount*count + float64(len(article.Entities))) / next
	if article.Category != "" {
		c.CommonCategories = capStrings(unionStrings(c.CommonCategories, []string{article.Category}), maxCentroidCategories)
	}
	c.CommonTags = capStrings(unionStrings(c.CommonTags, article.Tags), maxCentroidTags)

	if c.SourceDistribution == nil {
		c.SourceDistribution = make(map[string]int)
	}
	c.SourceDistribution[article.Source]++

	if n == 0 {
		c.MeanPublishedAt = article.PublishedAt
	} else {
		c.MeanPublishedAt = c.MeanPublishedAt.Add(
			time.Duration(float64(article.PublishedAt.Sub(c.MeanPublishedAt)) / next))
	}
	return c
}

// centroidMerge combines two centroids with member-count weighting.
func centroidMerge(a entity.ClusterCentroid, na int, b entity.ClusterCentroid, nb int) entity.ClusterCentroid {
	if na <= 0 {
		return b
	}
	if nb <= 0 {
		return a
	}
	total := float64(na + nb)
	wa := float64(na) / total
	wb := float64(nb) / total

	merged := entity.ClusterCentroid{
		AvgWordCount:     a.AvgWordCount*wa + b.AvgWordCount*wb,
		AvgEntityCount:   a.AvgEntityCount*wa + b.AvgEntityCount*wb,
		CommonCategories: capStrings(unionStrings(a.CommonCategories, b.CommonCategories), maxCentroidCategories),
		CommonTags:       capStrings(unionStrings(a.CommonTags, b.CommonTags), maxCentroidTags),
		MeanPublishedAt:  a.MeanPublishedAt.Add(time.Duration(float64(b.MeanPublishedAt.Sub(a.MeanPublishedAt)) * wb)),
	}
	merged.SourceDistribution = make(map[string]int, len(a.SourceDistribution)+len(b.SourceDistribution))
	for source, count := range a.SourceDistribution {
		merged.SourceDistribution[source] += count
	}
	for source, count := range b.SourceDistribution {
		merged.SourceDistribution[source] += count
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok && s != "" {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok && s != "" {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func capStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
