package notifier

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"newswatch/internal/domain/entity"
)

func TestEmailChannel_buildMessage(t *testing.T) {
	channel := NewEmailChannel(EmailConfig{
		From: "alerts@example.com",
		To:   []string{"ops@example.com", "news@example.com"},
	})

	msg := string(channel.buildMessage(testAlert()))

	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: ops@example.com, news@example.com\r\n",
		"Subject: [HIGH] Acme acquires Beta for $2B\r\n",
		"Source:    Reuters\r\n",
		"Link:      https://example.com/articles/7\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("expected blank line separating headers from body")
	}
}

func TestEmailChannel_Send(t *testing.T) {
	// A listener stands in for the SMTP server so the pre-flight dial
	// succeeds; the actual protocol exchange is stubbed out.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = listener.Close() }()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	host, port := splitHostPort(t, listener.Addr().String())

	t.Run("success", func(t *testing.T) {
		channel := NewEmailChannel(EmailConfig{
			Host: host, Port: port,
			From: "alerts@example.com", To: []string{"ops@example.com"},
			Timeout: time.Second,
		})
		var sentTo []string
		channel.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			sentTo = to
			return nil
		}

		if err := channel.Send(context.Background(), testAlert()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if len(sentTo) != 1 || sentTo[0] != "ops@example.com" {
			t.Errorf("unexpected recipients %v", sentTo)
		}
	})

	t.Run("transport error propagates", func(t *testing.T) {
		channel := NewEmailChannel(EmailConfig{
			Host: host, Port: port,
			From: "alerts@example.com", To: []string{"ops@example.com"},
			Timeout: time.Second,
		})
		channel.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("550 mailbox unavailable")
		}

		if err := channel.Send(context.Background(), testAlert()); err == nil {
			t.Error("expected transport error")
		}
	})

	t.Run("no recipients is a client error", func(t *testing.T) {
		channel := NewEmailChannel(EmailConfig{Host: host, Port: port, From: "alerts@example.com"})

		err := channel.Send(context.Background(), testAlert())
		if _, ok := err.(*ClientError); !ok {
			t.Errorf("expected ClientError, got %T", err)
		}
	})
}

func TestEmailChannel_Name(t *testing.T) {
	if NewEmailChannel(EmailConfig{}).Name() != entity.ChannelEmail {
		t.Error("expected channel name email")
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	return host, port
}
