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

// SlackConfig contains configuration for Slack webhook delivery.
type SlackConfig struct {
	// Enabled indicates whether Slack delivery is enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// ChannelName optionally overrides the webhook's default channel
	ChannelName string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackChannel sends alerts to Slack via Incoming Webhook, one attachment
// per alert with a color bar derived from the priority.
type SlackChannel struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackChannel creates a Slack channel with the given configuration.
// The rate limiter is set to 1 request/second with burst of 1
// (Slack Webhook limit: 1 message per second).
func NewSlackChannel(config SlackConfig) *SlackChannel {
	return &SlackChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

func (s *SlackChannel) Name() entity.AlertChannel { return entity.ChannelSlack }

// SlackPayload is the JSON payload sent to the Slack webhook.
type SlackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"` // fallback text for notifications
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment is a Slack message attachment.
type SlackAttachment struct {
	Color     string       `json:"color"` // "danger", "warning", "good"
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

// SlackField is a short key/value pair rendered in the attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

const (
	maxAttachmentTextLength = 3000
	maxFallbackLength       = 150

	slackTruncationSuffix = "..."
)

// priorityColor maps alert priority to the attachment color bar.
func priorityColor(p entity.Priority) string {
	switch p {
	case entity.PriorityHigh:
		return "danger"
	case entity.PriorityLow:
		return "good"
	default:
		return "warning"
	}
}

// buildPayload creates the Slack payload from an alert.
//
// The attachment carries the clickable title, the summary text and four
// short fields: Source, Category, Priority, Published.
func (s *SlackChannel) buildPayload(alert *entity.Alert) SlackPayload {
	fallbackText := fmt.Sprintf("%s - %s", alert.Title, alert.Source)
	if len(fallbackText) > maxFallbackLength {
		fallbackText = fallbackText[:maxFallbackLength-len(slackTruncationSuffix)] + slackTruncationSuffix
	}

	attachment := SlackAttachment{
		Color:     priorityColor(alert.Priority),
		Title:     alert.Title,
		TitleLink: alert.URL,
		Text:      truncateSummary(alert.Summary, maxAttachmentTextLength, slackTruncationSuffix),
		Fields: []SlackField{
			{Title: "Source", Value: alert.Source, Short: true},
			{Title: "Category", Value: alert.Category, Short: true},
			{Title: "Priority", Value: string(alert.Priority), Short: true},
			{Title: "Published", Value: alert.PublishedAt.Format(time.RFC3339), Short: true},
		},
		Timestamp: alert.PublishedAt.Unix(),
	}

	return SlackPayload{
		Channel:     s.config.ChannelName,
		Text:        fallbackText,
		Attachments: []SlackAttachment{attachment},
	}
}

// sendRequest posts the payload once and classifies the response.
func (s *SlackChannel) sendRequest(ctx context.Context, alert *entity.Alert) error {
	payload := s.buildPayload(alert)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	// Slack returns "ok" as plain text on success
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return classifyStatus("Slack", resp, body)
}

// Send delivers the alert to Slack with rate limiting and bounded retries.
// This method implements the Channel interface.
func (s *SlackChannel) Send(ctx context.Context, alert *entity.Alert) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("starting slack delivery",
		slog.String("request_id", requestID),
		slog.Int64("alert_id", alert.ID),
		slog.Int64("article_id", alert.ArticleID))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		slog.Error("rate limiter error",
			slog.String("request_id", requestID),
			slog.Int64("alert_id", alert.ID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return deliverWithRetry(ctx, "Slack", alert.ID, 2, 5*time.Second, func() error {
		return s.sendRequest(ctx, alert)
	})
}
