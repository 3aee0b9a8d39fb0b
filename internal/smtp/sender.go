// Package smtp submits outgoing mail to the provider's SMTP server using the
// same credential resolution as the IMAP side.
package smtp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mfarkas/mailward/internal/credentials"
	"github.com/mfarkas/mailward/internal/models"
	"github.com/mfarkas/mailward/internal/xoauth2"
)

// Sender submits messages over SMTP.
type Sender struct {
	resolver *credentials.Resolver
	hostname string
	useTLS   bool
}

// NewSender creates a Sender.
// useTLS: true for production (STARTTLS), false for tests (plaintext).
func NewSender(resolver *credentials.Resolver, hostname string, useTLS bool) *Sender {
	return &Sender{
		resolver: resolver,
		hostname: hostname,
		useTLS:   useTLS,
	}
}

// Send submits the message as the user. An OAuth access token authenticates
// via XOAUTH2; a fallback password via PLAIN.
func (s *Sender) Send(ctx context.Context, userID string, req *models.SendMessageRequest) error {
	if req == nil || len(req.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for _, to := range req.To {
		if strings.TrimSpace(to) == "" {
			return fmt.Errorf("recipient address must not be empty")
		}
	}

	username, secret, err := s.resolver.GetCredentials(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	c, err := s.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		_ = c.Quit()
	}()

	if ok, _ := c.Extension("AUTH"); ok {
		token, tokenErr := s.resolver.GetAccessToken(ctx, userID)

		var saslClient sasl.Client
		if tokenErr == nil && token == secret {
			saslClient = xoauth2.NewClient(username, token)
		} else {
			saslClient = sasl.NewPlainClient("", username, secret)
		}

		if err := c.Auth(saslClient); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	message := buildMessage(username, req)
	if err := c.SendMail(username, req.To, strings.NewReader(message)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (s *Sender) dial() (*smtp.Client, error) {
	if s.useTLS {
		return smtp.DialStartTLS(s.hostname, nil)
	}
	return smtp.Dial(s.hostname)
}

// buildMessage assembles a simple RFC 5322 plain-text message.
func buildMessage(from string, req *models.SendMessageRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Message-ID: <%s@mailward>\r\n", uuid.NewString())
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(req.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", req.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)
	b.WriteString("\r\n")

	return b.String()
}
