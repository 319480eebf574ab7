package alert

import (
	"regexp"
	"strings"

	"newswatch/internal/domain/entity"
)

var (
	breakingKeywords = []string{"breaking", "urgent", "alert", "developing"}
	businessKeywords = []string{"merger", "acquisition", "ipo", "bankruptcy", "ceo", "funding"}

	// $500 million, $1,200 million and the like.
	millionPattern = regexp.MustCompile(`\$[\d,.]+\s*million`)
)

// derivePriority computes the alert priority for an article.
//
// The default is medium (low for entertainment); breaking-news or
// business-impact keywords in the title, a monetary magnitude in the
// content, or the breaking category upgrade to high.
func derivePriority(article *entity.Article) entity.Priority {
	if article.Category == "breaking" {
		return entity.PriorityHigh
	}

	title := strings.ToLower(article.Title)
	for _, keyword := range breakingKeywords {
		if strings.Contains(title, keyword) {
			return entity.PriorityHigh
		}
	}
	for _, keyword := range businessKeywords {
		if strings.Contains(title, keyword) {
			return entity.PriorityHigh
		}
	}

	content := strings.ToLower(article.Content)
	if content == "" {
		content = strings.ToLower(article.Summary)
	}
	if strings.Contains(content, "billion") || millionPattern.MatchString(content) {
		return entity.PriorityHigh
	}

	if article.Category == "entertainment" {
		return entity.PriorityLow
	}
	return entity.PriorityMedium
}
