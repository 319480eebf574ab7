package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"newswatch/internal/domain/entity"
)

func testAlert() *entity.Alert {
	return &entity.Alert{
		ID:          42,
		ArticleID:   7,
		Title:       "Acme acquires Beta for $2B",
		Summary:     "Acme announced the acquisition of Beta in an all-cash deal.",
		Source:      "Reuters",
		Category:    "business",
		Priority:    entity.PriorityHigh,
		URL:         "https://example.com/articles/7",
		PublishedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Entities:    []entity.Entity{{Name: "Acme", Type: entity.EntityOrganization, Confidence: 0.9}},
		Tags:        []string{"markets", "mergers"},
		Status:      entity.AlertPending,
		CreatedAt:   time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC),
	}
}

func TestWebhookChannel_buildPayload(t *testing.T) {
	channel := NewWebhookChannel(WebhookConfig{URL: "https://example.com/hook", Timeout: 10 * time.Second})
	alert := testAlert()

	payload := channel.buildPayload(alert)

	if payload.Type != "news_alert" {
		t.Errorf("expected type=news_alert, got %q", payload.Type)
	}
	if payload.Alert.ID != 42 {
		t.Errorf("expected alert id=42, got %d", payload.Alert.ID)
	}
	if payload.Alert.Priority != "high" {
		t.Errorf("expected priority=high, got %q", payload.Alert.Priority)
	}
	if payload.Alert.PublishedAt != "2026-03-10T09:00:00Z" {
		t.Errorf("expected RFC3339 publishedAt, got %q", payload.Alert.PublishedAt)
	}
	if payload.Metadata.System != "newswatch" {
		t.Errorf("expected metadata system=newswatch, got %q", payload.Metadata.System)
	}
	if _, err := time.Parse(time.RFC3339, payload.Metadata.Timestamp); err != nil {
		t.Errorf("metadata timestamp is not RFC3339: %v", err)
	}
}

func TestWebhookChannel_buildPayload_CapsEntities(t *testing.T) {
	channel := NewWebhookChannel(WebhookConfig{URL: "https://example.com/hook"})
	alert := testAlert()
	alert.Entities = make([]entity.Entity, 25)
	for i := range alert.Entities {
		alert.Entities[i] = entity.Entity{Name: "e", Type: entity.EntityOrganization}
	}

	payload := channel.buildPayload(alert)

	if len(payload.Alert.Entities) != maxPayloadEntities {
		t.Errorf("expected %d entities, got %d", maxPayloadEntities, len(payload.Alert.Entities))
	}
}

func TestWebhookChannel_sendRequest(t *testing.T) {
	t.Run("2xx succeeds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type=application/json, got %q", r.Header.Get("Content-Type"))
			}
			body, _ := io.ReadAll(r.Body)
			var payload WebhookPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("failed to parse request body: %v", err)
			}
			if payload.Alert.Title == "" {
				t.Error("expected alert title in payload")
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		channel := NewWebhookChannel(WebhookConfig{URL: server.URL, Timeout: 10 * time.Second})

		if err := channel.sendRequest(context.Background(), testAlert()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("429 maps to RateLimitError with Retry-After", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		channel := NewWebhookChannel(WebhookConfig{URL: server.URL, Timeout: 10 * time.Second})

		err := channel.sendRequest(context.Background(), testAlert())
		rateLimitErr, ok := err.(*RateLimitError)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T", err)
		}
		if rateLimitErr.RetryAfter != 2*time.Second {
			t.Errorf("expected retry_after=2s, got %v", rateLimitErr.RetryAfter)
		}
		if StatusCodeOf(err) != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", StatusCodeOf(err))
		}
	})

	t.Run("4xx maps to ClientError and is not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		channel := NewWebhookChannel(WebhookConfig{URL: server.URL, Timeout: 10 * time.Second})

		err := channel.sendRequest(context.Background(), testAlert())
		if _, ok := err.(*ClientError); !ok {
			t.Fatalf("expected ClientError, got %T", err)
		}
		if isRetryableError(err) {
			t.Error("expected 4xx to be non-retryable")
		}
		if StatusCodeOf(err) != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", StatusCodeOf(err))
		}
	})

	t.Run("5xx maps to ServerError and is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		channel := NewWebhookChannel(WebhookConfig{URL: server.URL, Timeout: 10 * time.Second})

		err := channel.sendRequest(context.Background(), testAlert())
		if _, ok := err.(*ServerError); !ok {
			t.Fatalf("expected ServerError, got %T", err)
		}
		if !isRetryableError(err) {
			t.Error("expected 5xx to be retryable")
		}
	})
}

func TestWebhookChannel_Send_NoRetryOnClientError(t *testing.T) {
	requestCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	channel := NewWebhookChannel(WebhookConfig{URL: server.URL, Timeout: 10 * time.Second})

	err := channel.Send(context.Background(), testAlert())
	if err == nil {
		t.Fatal("expected error for 400, got nil")
	}
	if got := atomic.LoadInt32(&requestCount); got != 1 {
		t.Errorf("expected 1 request (no retry for 4xx), got %d", got)
	}
}

func TestWebhookChannel_Name(t *testing.T) {
	channel := NewWebhookChannel(WebhookConfig{})
	if channel.Name() != entity.ChannelWebhook {
		t.Errorf("expected channel name webhook, got %q", channel.Name())
	}
	if channel.config.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", channel.config.MaxAttempts)
	}
}
