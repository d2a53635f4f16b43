package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Resend sends email through the Resend API.
type Resend struct {
	client *resend.Client
	from   string
	log    zerolog.Logger
}

// NewResend creates a Resend mailer with the given API key and sender address.
func NewResend(apiKey, from string, log zerolog.Logger) *Resend {
	return &Resend{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log.With().Str("component", "mailer").Str("driver", "resend").Logger(),
	}
}

// Send delivers msg. Attachments are passed inline as bytes.
func (s *Resend) Send(ctx context.Context, msg Message) (string, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Resend send failed")
		return "", fmt.Errorf("resend send failed: %w", err)
	}

	s.log.Debug().Str("message_id", sent.Id).Str("to", msg.To).Msg("Email sent")
	return sent.Id, nil
}
