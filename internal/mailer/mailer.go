// Package mailer delivers transactional and bulk email.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
)

// Attachment is a file sent alongside a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a single message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New builds the mailer selected by configuration.
func New(cfg *config.Config, log zerolog.Logger) (Mailer, error) {
	switch cfg.MailDriver {
	case config.MailDriverResend:
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("mailer: RESEND_API_KEY is not configured")
		}
		return NewResend(cfg.ResendAPIKey, cfg.MailFrom, log), nil
	case config.MailDriverConsole, "":
		return NewConsole(log), nil
	default:
		return nil, fmt.Errorf("mailer: unknown driver %q", cfg.MailDriver)
	}
}
