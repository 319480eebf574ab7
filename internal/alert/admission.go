package alert

import (
	"strings"
	"sync"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/utils/text"
)

// priorityCategories earn the +2 quality bonus.
var priorityCategories = map[string]bool{
	"business":   true,
	"technology": true,
	"breaking":   true,
}

// qualityScore computes the integer admission score for an article:
// content length (>=500 chars +2, >=200 +1), extracted entities (+1),
// priority category (+2), trusted source (+1), freshness under 2h (+1).
func qualityScore(article *entity.Article, trusted map[string]bool, now time.Time) int {
	score := 0

	length := len(article.Content)
	if length == 0 {
		length = len(article.Summary)
	}
	switch {
	case length >= 500:
		score += 2
	case length >= 200:
		score++
	}

	if len(article.Entities) > 0 {
		score++
	}
	if priorityCategories[article.Category] {
		score += 2
	}
	if trusted[article.SourceID] {
		score++
	}
	if age := now.Sub(article.PublishedAt); age >= 0 && age < 2*time.Hour {
		score++
	}
	return score
}

// cooldownKey builds the coarse similarity key for the cooldown gate:
// the source plus the first three normalized title words of four or
// more characters. Rewordings of the same story from the same source
// usually collide on this key; different stories rarely do.
func cooldownKey(article *entity.Article) string {
	words := make([]string, 0, 3)
	for _, word := range strings.Fields(text.Normalize(article.Title)) {
		if len(word) < 4 {
			continue
		}
		words = append(words, word)
		if len(words) == 3 {
			break
		}
	}
	return article.SourceID + "|" + strings.Join(words, " ")
}

// cooldownIndex is the process-local recent-alert index backing the
// cooldown gate. Entries are garbage-collected by Prune.
type cooldownIndex struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newCooldownIndex() *cooldownIndex {
	return &cooldownIndex{entries: make(map[string]time.Time)}
}

// Recent reports whether the key was recorded within the window.
func (c *cooldownIndex) Recent(key string, now time.Time, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.entries[key]
	return ok && now.Sub(at) < window
}

// Record stores the key's admission time.
func (c *cooldownIndex) Record(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = now
}

// Prune drops entries older than the retention horizon and returns the
// number removed.
func (c *cooldownIndex) Prune(now time.Time, retention time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, at := range c.entries {
		if now.Sub(at) >= retention {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
