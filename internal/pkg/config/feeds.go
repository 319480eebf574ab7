package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newswatch/internal/domain/entity"
)

// FeedsDocument is the on-disk feed configuration, loaded once at startup.
// Unlike the environment loaders above, feed loading is fail-closed for the
// document as a whole (a missing or unparseable file stops startup) and
// fail-open per entry (invalid entries are skipped with a warning so one
// typo cannot take down ingestion of every other feed).
type FeedsDocument struct {
	Globals FeedGlobals `yaml:"globals"`
	Feeds   []FeedSpec  `yaml:"feeds"`
}

// FeedGlobals are the document-wide crawl settings. Zero values mean
// "not set" and are replaced with defaults at load time.
type FeedGlobals struct {
	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes"`
	TimeoutSeconds         int `yaml:"timeout_seconds"`
	RetryAttempts          int `yaml:"retry_attempts"`
	RetryDelayMS           int `yaml:"retry_delay_ms"`
}

func (g FeedGlobals) withDefaults() FeedGlobals {
	if g.RefreshIntervalMinutes <= 0 {
		g.RefreshIntervalMinutes = 5
	}
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = 30
	}
	if g.RetryAttempts <= 0 {
		g.RetryAttempts = 3
	}
	if g.RetryDelayMS <= 0 {
		g.RetryDelayMS = 1000
	}
	return g
}

// FeedsConfig is the loaded and validated feeds document.
type FeedsConfig struct {
	Globals FeedGlobals
	Feeds   []*entity.Feed
}

// FeedSpec is one feed entry in the feeds document.
type FeedSpec struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Category string   `yaml:"category"`
	Priority string   `yaml:"priority"`
	Enabled  *bool    `yaml:"enabled"`
	Tags     []string `yaml:"tags"`
}

// LoadFeedsFile reads and parses the feeds document at path, converting
// valid entries to domain feeds. It returns the feeds, one warning per
// skipped entry, and an error only when the file itself cannot be read or
// parsed.
func LoadFeedsFile(path string) ([]*entity.Feed, []string, error) {
	cfg, warnings, err := LoadFeedsConfig(path)
	if err != nil {
		return nil, warnings, err
	}
	return cfg.Feeds, warnings, nil
}

// LoadFeedsConfig is LoadFeedsFile plus the document's global crawl
// settings with defaults applied.
func LoadFeedsConfig(path string) (*FeedsConfig, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("LoadFeedsFile: %w", err)
	}

	var doc FeedsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("LoadFeedsFile: parse %s: %w", path, err)
	}

	if len(doc.Feeds) == 0 {
		return nil, nil, fmt.Errorf("LoadFeedsFile: %s declares no feeds", path)
	}

	var (
		feeds    []*entity.Feed
		warnings []string
		seen     = make(map[string]bool, len(doc.Feeds))
	)
	for i, spec := range doc.Feeds {
		feed, err := spec.toEntity()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("feeds[%d]: %v, skipping entry", i, err))
			continue
		}
		if seen[feed.ID] {
			warnings = append(warnings, fmt.Sprintf("feeds[%d]: duplicate feed id '%s', skipping entry", i, feed.ID))
			continue
		}
		seen[feed.ID] = true
		feeds = append(feeds, feed)
	}

	if len(feeds) == 0 {
		return nil, warnings, fmt.Errorf("LoadFeedsFile: %s contains no valid feeds", path)
	}

	return &FeedsConfig{Globals: doc.Globals.withDefaults(), Feeds: feeds}, warnings, nil
}

func (s FeedSpec) toEntity() (*entity.Feed, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if err := ValidateHTTPURL(s.URL); err != nil {
		return nil, err
	}

	priority := entity.Priority(s.Priority)
	if s.Priority == "" {
		priority = entity.PriorityMedium
	} else if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority '%s'", s.Priority)
	}

	// Feeds default to enabled; only an explicit false disables.
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	feed := &entity.Feed{
		ID:       s.ID,
		Name:     s.Name,
		URL:      s.URL,
		Category: s.Category,
		Priority: priority,
		Enabled:  enabled,
		Tags:     s.Tags,
	}
	if feed.Name == "" {
		feed.Name = feed.ID
	}

	if err := feed.Validate(); err != nil {
		return nil, err
	}
	return feed, nil
}
