package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/service"
)

const CertificatePollTimeout = 1 * time.Second

// Dispatcher runs a batch certificate dispatch for one event.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventID uuid.UUID) (*service.DispatchSummary, error)
}

// CertificateWorker runs dispatches queued with ?async=true, one event at a
// time. Progress reaches admins through the dispatcher's PubSub channel.
type CertificateWorker struct {
	queue      Queue
	dispatcher Dispatcher
	log        zerolog.Logger
}

func NewCertificateWorker(queue Queue, dispatcher Dispatcher, log zerolog.Logger) *CertificateWorker {
	return &CertificateWorker{
		queue:      queue,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "certificate_worker").Logger(),
	}
}

func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CertificateWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CertificateWorker stopped")
			return

		default:
			item, err := w.queue.BLPop(ctx, CertificatePollTimeout, config.WorkerKey.CertificateDispatchQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			eventID, err := uuid.Parse(item[1])
			if err != nil {
				w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid event id")
				continue
			}
			w.run(ctx, eventID)
		}
	}
}

func (w *CertificateWorker) run(ctx context.Context, eventID uuid.UUID) {
	log := w.log.With().Str("event_id", eventID.String()).Logger()

	summary, err := w.dispatcher.Dispatch(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Msg("Queued dispatch failed")
		return
	}

	log.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("Queued dispatch finished")
}
