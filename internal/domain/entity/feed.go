package entity

import (
	"fmt"
	"net/url"
	"time"
)

// Feed represents an RSS/Atom source configuration together with its
// runtime counters. The configuration half comes from the feeds document;
// the counters are updated by the crawl service after each fetch.
type Feed struct {
	ID       string
	Name     string
	URL      string
	Category string
	Priority Priority
	Enabled  bool
	Tags     []string

	// Runtime state.
	LastFetchedAt     *time.Time
	ArticlesProcessed int64
	ErrorCount        int64
	LastError         string
	LastErrorAt       *time.Time
}

// Validate checks that the feed configuration is usable.
// Feeds with invalid URLs are rejected at config load time so a single
// bad entry cannot poison a crawl cycle.
func (f *Feed) Validate() error {
	if f.ID == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	return nil
}
