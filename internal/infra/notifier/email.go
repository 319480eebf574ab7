package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"newswatch/internal/domain/entity"
)

// EmailConfig contains SMTP configuration for email delivery.
type EmailConfig struct {
	// Enabled indicates whether email delivery is enabled
	Enabled bool

	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address; To lists the recipients
	From string
	To   []string

	// Timeout bounds the SMTP dial
	Timeout time.Duration
}

// EmailChannel sends alerts as plain-text mail over SMTP. Email is
// reserved for high-priority alerts, so volume stays low and no rate
// limiter is needed.
type EmailChannel struct {
	config EmailConfig

	// sendMail is swapped out in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an email channel with the given configuration.
func NewEmailChannel(config EmailConfig) *EmailChannel {
	return &EmailChannel{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

func (e *EmailChannel) Name() entity.AlertChannel { return entity.ChannelEmail }

// buildMessage assembles the RFC 5322 message bytes for the alert.
func (e *EmailChannel) buildMessage(alert *entity.Alert) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(e.config.To, ", "))
	fmt.Fprintf(&sb, "Subject: [%s] %s\r\n", strings.ToUpper(string(alert.Priority)), alert.Title)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "%s\r\n\r\n", alert.Title)
	if alert.Summary != "" {
		fmt.Fprintf(&sb, "%s\r\n\r\n", alert.Summary)
	}
	fmt.Fprintf(&sb, "Source:    %s\r\n", alert.Source)
	fmt.Fprintf(&sb, "Category:  %s\r\n", alert.Category)
	fmt.Fprintf(&sb, "Priority:  %s\r\n", alert.Priority)
	fmt.Fprintf(&sb, "Published: %s\r\n", alert.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Link:      %s\r\n", alert.URL)
	return []byte(sb.String())
}

// Send delivers the alert by mail. This method implements the Channel
// interface. net/smtp has no context support, so the context deadline is
// approximated by a pre-flight dial with the configured timeout.
func (e *EmailChannel) Send(ctx context.Context, alert *entity.Alert) error {
	requestID := uuid.New().String()

	slog.Info("starting email delivery",
		slog.String("request_id", requestID),
		slog.Int64("alert_id", alert.ID),
		slog.Int("recipients", len(e.config.To)))

	if len(e.config.To) == 0 {
		return &ClientError{Message: "email channel has no recipients configured"}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email delivery canceled: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	timeout := e.config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	_ = conn.Close()

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	if err := e.sendMail(addr, auth, e.config.From, e.config.To, e.buildMessage(alert)); err != nil {
		slog.Error("email delivery failed",
			slog.String("request_id", requestID),
			slog.Int64("alert_id", alert.ID),
			slog.Any("error", err))
		return fmt.Errorf("smtp send: %w", err)
	}

	slog.Info("email delivery successful",
		slog.String("request_id", requestID),
		slog.Int64("alert_id", alert.ID))
	return nil
}
