package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newswatch/internal/domain/entity"
)

var admissionNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestQualityScore(t *testing.T) {
	trusted := map[string]bool{"reuters-top": true}
	longContent := strings.Repeat("word ", 120) // > 500 chars

	tests := []struct {
		name     string
		article  *entity.Article
		expected int
	}{
		{
			name: "everything scores",
			article: &entity.Article{
				SourceID:    "reuters-top",
				Category:    "business",
				Content:     longContent,
				Entities:    []entity.Entity{{Name: "Acme", Type: entity.EntityOrganization, Confidence: 0.9}},
				PublishedAt: admissionNow.Add(-30 * time.Minute),
			},
			expected: 7,
		},
		{
			name: "medium content length scores one",
			article: &entity.Article{
				SourceID:    "blog",
				Category:    "sports",
				Content:     strings.Repeat("a", 250),
				PublishedAt: admissionNow.Add(-6 * time.Hour),
			},
			expected: 1,
		},
		{
			name: "summary used when content empty",
			article: &entity.Article{
				SourceID:    "blog",
				Category:    "sports",
				Summary:     strings.Repeat("a", 600),
				PublishedAt: admissionNow.Add(-6 * time.Hour),
			},
			expected: 2,
		},
		{
			name: "short untrusted stale article scores zero",
			article: &entity.Article{
				SourceID:    "blog",
				Category:    "sports",
				Content:     "brief",
				PublishedAt: admissionNow.Add(-48 * time.Hour),
			},
			expected: 0,
		},
		{
			name: "future publish date gets no freshness point",
			article: &entity.Article{
				SourceID:    "blog",
				Category:    "technology",
				PublishedAt: admissionNow.Add(time.Hour),
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, qualityScore(tt.article, trusted, admissionNow))
		})
	}
}

func TestCooldownKey(t *testing.T) {
	tests := []struct {
		name     string
		article  *entity.Article
		expected string
	}{
		{
			name:     "first three long words",
			article:  &entity.Article{SourceID: "reuters-top", Title: "Federal Reserve Raises Interest Rates Again"},
			expected: "reuters-top|federal reserve raises",
		},
		{
			name:     "short words are skipped",
			article:  &entity.Article{SourceID: "reuters-top", Title: "Fed to cut its key interest rate"},
			expected: "reuters-top|interest rate",
		},
		{
			name:     "punctuation and case are normalized away",
			article:  &entity.Article{SourceID: "ap-news", Title: "BREAKING: Acme, Beta Merge!"},
			expected: "ap-news|breaking acme beta",
		},
		{
			name:     "empty title keeps the source prefix",
			article:  &entity.Article{SourceID: "ap-news", Title: ""},
			expected: "ap-news|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cooldownKey(tt.article))
		})
	}
}

func TestCooldownKey_RewordedTitlesCollide(t *testing.T) {
	a := &entity.Article{SourceID: "reuters-top", Title: "Central Bank Raises Rates by 25bp"}
	b := &entity.Article{SourceID: "reuters-top", Title: "Central bank raises rates, markets rally"}

	assert.Equal(t, cooldownKey(a), cooldownKey(b))
}

func TestCooldownIndex(t *testing.T) {
	index := newCooldownIndex()
	window := 5 * time.Minute

	assert.False(t, index.Recent("k", admissionNow, window))

	index.Record("k", admissionNow)
	assert.True(t, index.Recent("k", admissionNow.Add(4*time.Minute), window))
	assert.False(t, index.Recent("k", admissionNow.Add(5*time.Minute), window))
	assert.False(t, index.Recent("other", admissionNow, window))
}

func TestCooldownIndex_Prune(t *testing.T) {
	index := newCooldownIndex()
	index.Record("old", admissionNow.Add(-time.Hour))
	index.Record("fresh", admissionNow.Add(-time.Minute))

	removed := index.Prune(admissionNow, 5*time.Minute)

	assert.Equal(t, 1, removed)
	assert.False(t, index.Recent("old", admissionNow.Add(-time.Hour), 5*time.Minute))
	assert.True(t, index.Recent("fresh", admissionNow, 5*time.Minute))
}
