package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
)

// Sender delivers a single transactional message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	Tag      string
}

// Validate checks the recipient address and required fields.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.HTMLBody == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// New returns a Postmark sender when a server token is configured and a
// log-only sender otherwise.
func New(cfg Config, log *slog.Logger) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return NewLogSender(log), nil
	}
	return NewPostmarkSender(cfg)
}
