package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"newswatch/internal/domain/entity"
)

// WebhookConfig contains configuration for the generic JSON webhook channel.
type WebhookConfig struct {
	// Enabled indicates whether webhook delivery is enabled
	Enabled bool

	// URL is the destination endpoint
	URL string

	// Timeout is the HTTP request timeout per delivery attempt
	Timeout time.Duration

	// MaxAttempts bounds retries per delivery (default 3)
	MaxAttempts int
}

// WebhookChannel posts alerts as JSON to a configured endpoint.
// Success is any 2xx response; everything else is a channel failure.
type WebhookChannel struct {
	config      WebhookConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewWebhookChannel creates a webhook channel with the given configuration.
// The rate limiter allows 2 requests/second with a burst of 5.
func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	return &WebhookChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(2.0, 5),
	}
}

func (w *WebhookChannel) Name() entity.AlertChannel { return entity.ChannelWebhook }

// WebhookPayload is the JSON document posted to the endpoint.
type WebhookPayload struct {
	Type     string          `json:"type"`
	Alert    WebhookAlert    `json:"alert"`
	Metadata WebhookMetadata `json:"metadata"`
}

// WebhookAlert carries the alert fields consumers act on.
type WebhookAlert struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Summary     string          `json:"summary"`
	Source      string          `json:"source"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	URL         string          `json:"url"`
	PublishedAt string          `json:"publishedAt"`
	Entities    []entity.Entity `json:"entities"`
	Tags        []string        `json:"tags"`
	CreatedAt   string          `json:"createdAt"`
}

// WebhookMetadata identifies the sending system.
type WebhookMetadata struct {
	System    string `json:"system"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

const (
	webhookPayloadType = "news_alert"
	webhookSystemName  = "newswatch"
	webhookVersion     = "1.0"

	// maxPayloadEntities bounds the entity list in the payload.
	maxPayloadEntities = 10
)

// buildPayload creates the webhook payload from an alert.
func (w *WebhookChannel) buildPayload(alert *entity.Alert) WebhookPayload {
	entities := alert.Entities
	if len(entities) > maxPayloadEntities {
		entities = entities[:maxPayloadEntities]
	}

	return WebhookPayload{
		Type: webhookPayloadType,
		Alert: WebhookAlert{
			ID:          alert.ID,
			Title:       alert.Title,
			Summary:     alert.Summary,
			Source:      alert.Source,
			Category:    alert.Category,
			Priority:    string(alert.Priority),
			URL:         alert.URL,
			PublishedAt: alert.PublishedAt.Format(time.RFC3339),
			Entities:    entities,
			Tags:        alert.Tags,
			CreatedAt:   alert.CreatedAt.Format(time.RFC3339),
		},
		Metadata: WebhookMetadata{
			System:    webhookSystemName,
			Version:   webhookVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// sendRequest posts the payload once and classifies the response.
func (w *WebhookChannel) sendRequest(ctx context.Context, alert *entity.Alert) error {
	payload := w.buildPayload(alert)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return classifyStatus("webhook", resp, body)
}

// Send delivers the alert to the configured endpoint with rate limiting
// and bounded retries. This method implements the Channel interface.
func (w *WebhookChannel) Send(ctx context.Context, alert *entity.Alert) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("starting webhook delivery",
		slog.String("request_id", requestID),
		slog.Int64("alert_id", alert.ID),
		slog.Int64("article_id", alert.ArticleID))

	if err := w.rateLimiter.Allow(ctx); err != nil {
		slog.Error("rate limiter error",
			slog.String("request_id", requestID),
			slog.Int64("alert_id", alert.ID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return deliverWithRetry(ctx, "webhook", alert.ID, w.config.MaxAttempts, 5*time.Second, func() error {
		return w.sendRequest(ctx, alert)
	})
}
