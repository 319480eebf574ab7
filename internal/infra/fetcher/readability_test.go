package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() ContentFetchConfig {
	cfg := DefaultConfig()
	// httptest servers listen on loopback.
	cfg.DenyPrivateIPs = false
	return cfg
}

func articlePage() string {
	body := strings.Repeat("<p>The central bank held rates steady for the third consecutive meeting. </p>", 20)
	return `<html><head><title>Rates held</title></head><body>
		<nav>menu</nav>
		<article>` + body + `</article>
	</body></html>`
}

func TestFetchContent_ExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newswatch/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(articlePage()))
	}))
	defer srv.Close()

	f := NewReadabilityFetcher(testConfig())
	content, err := f.FetchContent(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, content, "central bank held rates steady")
	assert.NotContains(t, content, "<p>")
}

func TestFetchContent_RejectsInvalidScheme(t *testing.T) {
	f := NewReadabilityFetcher(testConfig())

	_, err := f.FetchContent(context.Background(), "ftp://example.com/file")

	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestFetchContent_DeniesPrivateIPs(t *testing.T) {
	cfg := testConfig()
	cfg.DenyPrivateIPs = true
	f := NewReadabilityFetcher(cfg)

	_, err := f.FetchContent(context.Background(), "http://127.0.0.1/admin")

	assert.ErrorIs(t, err, ErrPrivateIP)
}

func TestFetchContent_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 2048
	f := NewReadabilityFetcher(cfg)

	_, err := f.FetchContent(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchContent_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewReadabilityFetcher(testConfig())
	_, err := f.FetchContent(context.Background(), srv.URL)

	assert.Error(t, err)
}

func TestFetchContent_NoReadableContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><div>nothing here</div></body></html>"))
	}))
	defer srv.Close()

	f := NewReadabilityFetcher(testConfig())
	_, err := f.FetchContent(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContentFetchConfig)
		wantErr bool
	}{
		{"defaults valid", func(c *ContentFetchConfig) {}, false},
		{"negative threshold", func(c *ContentFetchConfig) { c.Threshold = -1 }, true},
		{"zero timeout", func(c *ContentFetchConfig) { c.Timeout = 0 }, true},
		{"excess parallelism", func(c *ContentFetchConfig) { c.Parallelism = 100 }, true},
		{"tiny body limit", func(c *ContentFetchConfig) { c.MaxBodySize = 10 }, true},
		{"excess redirects", func(c *ContentFetchConfig) { c.MaxRedirects = 20 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CONTENT_FETCH_THRESHOLD", "2000")
	t.Setenv("CONTENT_FETCH_TIMEOUT", "5s")
	t.Setenv("CONTENT_FETCH_ENABLED", "false")

	cfg, err := LoadConfigFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Threshold)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.False(t, cfg.Enabled)
}

func TestLoadConfigFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("CONTENT_FETCH_THRESHOLD", "lots")

	_, err := LoadConfigFromEnv()

	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidURL))
}
