package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newswatch/internal/domain/entity"
)

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		name     string
		article  *entity.Article
		expected entity.Priority
	}{
		{
			name:     "breaking category is high",
			article:  &entity.Article{Category: "breaking", Title: "Quiet day in parliament"},
			expected: entity.PriorityHigh,
		},
		{
			name:     "breaking keyword in title is high",
			article:  &entity.Article{Category: "politics", Title: "BREAKING: parliament dissolved"},
			expected: entity.PriorityHigh,
		},
		{
			name:     "business keyword in title is high",
			article:  &entity.Article{Category: "business", Title: "Acme announces merger with Beta Corp"},
			expected: entity.PriorityHigh,
		},
		{
			name:     "billion in content is high",
			article:  &entity.Article{Category: "business", Title: "Acme reports results", Content: "Revenue reached $2 billion for the quarter."},
			expected: entity.PriorityHigh,
		},
		{
			name:     "million amount in content is high",
			article:  &entity.Article{Category: "business", Title: "Acme reports results", Content: "The settlement totals $450 million."},
			expected: entity.PriorityHigh,
		},
		{
			name:     "million amount in summary when content empty",
			article:  &entity.Article{Category: "business", Title: "Acme reports results", Summary: "Fined $1,200 million by the regulator."},
			expected: entity.PriorityHigh,
		},
		{
			name:     "entertainment defaults to low",
			article:  &entity.Article{Category: "entertainment", Title: "Festival lineup announced"},
			expected: entity.PriorityLow,
		},
		{
			name:     "entertainment with breaking keyword is still high",
			article:  &entity.Article{Category: "entertainment", Title: "Urgent recall of concert tickets"},
			expected: entity.PriorityHigh,
		},
		{
			name:     "plain article is medium",
			article:  &entity.Article{Category: "technology", Title: "New framework release adds generics support"},
			expected: entity.PriorityMedium,
		},
		{
			name:     "million without dollar sign stays medium",
			article:  &entity.Article{Category: "science", Title: "Telescope survey", Content: "The survey catalogued a million stars."},
			expected: entity.PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, derivePriority(tt.article))
		})
	}
}
