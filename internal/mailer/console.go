package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Console logs messages instead of delivering them. Used in development.
type Console struct {
	log zerolog.Logger
}

// NewConsole creates a Console mailer.
func NewConsole(log zerolog.Logger) *Console {
	return &Console{log: log.With().Str("component", "mailer").Str("driver", "console").Logger()}
}

// Send logs the message and returns a synthetic id.
func (c *Console) Send(_ context.Context, msg Message) (string, error) {
	id := "console-" + uuid.NewString()
	ev := c.log.Info().Str("message_id", id).Str("to", msg.To).Str("subject", msg.Subject)
	for _, a := range msg.Attachments {
		ev = ev.Str("attachment", a.Filename).Int("attachment_bytes", len(a.Content))
	}
	ev.Msg("Email (not delivered)")
	return id, nil
}
