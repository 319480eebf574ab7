package entity

import "time"

// Priority is the alert urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// AlertStatus is the delivery state of an alert.
type AlertStatus string

const (
	AlertPending   AlertStatus = "pending"
	AlertSent      AlertStatus = "sent"
	AlertFailed    AlertStatus = "failed"
	AlertCancelled AlertStatus = "cancelled"
)

// AlertChannel names a delivery channel.
type AlertChannel string

const (
	ChannelWebhook AlertChannel = "webhook"
	ChannelEmail   AlertChannel = "email"
	ChannelSlack   AlertChannel = "slack"
)

// Valid reports whether c is a known delivery channel.
func (c AlertChannel) Valid() bool {
	switch c {
	case ChannelWebhook, ChannelEmail, ChannelSlack:
		return true
	}
	return false
}

// ChannelResult records the outcome of a single channel delivery attempt.
type ChannelResult struct {
	Channel    AlertChannel `json:"channel"`
	Success    bool         `json:"success"`
	StatusCode int          `json:"status_code,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Alert is a queued or delivered notification derived from an
// elected-original article.
//
// Invariants:
//   - SentAt is set iff Status is sent or failed
//   - Status is sent iff at least one channel result succeeded
type Alert struct {
	ID          int64
	ArticleID   int64
	Title       string
	Summary     string
	Source      string
	Category    string
	Priority    Priority
	URL         string
	PublishedAt time.Time
	Entities    []Entity
	Tags        []string
	Channels    []AlertChannel
	Status      AlertStatus
	CreatedAt   time.Time
	SentAt      *time.Time
	Results     []ChannelResult
	ResendCount int
}

// AnySuccess reports whether at least one channel delivery succeeded.
func (a *Alert) AnySuccess() bool {
	for _, r := range a.Results {
		if r.Success {
			return true
		}
	}
	return false
}

// Validate checks the alert invariants that do not require store access.
func (a *Alert) Validate() error {
	if a.ArticleID == 0 {
		return &ValidationError{Field: "article_id", Message: "must be set"}
	}
	switch a.Status {
	case AlertPending, AlertSent, AlertFailed, AlertCancelled:
	default:
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	switch a.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	terminal := a.Status == AlertSent || a.Status == AlertFailed
	if terminal && a.SentAt == nil {
		return &ValidationError{Field: "sent_at", Message: "must be set for sent/failed alerts"}
	}
	if !terminal && a.SentAt != nil {
		return &ValidationError{Field: "sent_at", Message: "must be empty for pending/cancelled alerts"}
	}
	if a.Status == AlertSent && !a.AnySuccess() {
		return &ValidationError{Field: "results", Message: "sent alerts need at least one successful channel"}
	}
	return nil
}
