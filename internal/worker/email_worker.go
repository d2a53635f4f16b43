package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/model"
	"golang.org/x/time/rate"
)

const (
	EmailPollTimeout = 1 * time.Second
	EmailMaxAttempts = 3
)

// Queue is the subset of the Redis client a list-backed worker needs.
type Queue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// CampaignRecorder tallies per-recipient outcomes on a campaign.
type CampaignRecorder interface {
	RecordResult(ctx context.Context, id uuid.UUID, sent bool) error
}

// EmailWorker drains the campaign email queue at a fixed send rate.
// Failed sends are requeued until EmailMaxAttempts is reached.
type EmailWorker struct {
	queue     Queue
	campaigns CampaignRecorder
	mail      mailer.Mailer
	limiter   *rate.Limiter
	log       zerolog.Logger
}

func NewEmailWorker(queue Queue, campaigns CampaignRecorder, mail mailer.Mailer, interval time.Duration, log zerolog.Logger) *EmailWorker {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &EmailWorker{
		queue:     queue,
		campaigns: campaigns,
		mail:      mail,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log.With().Str("component", "email_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *EmailWorker) Start(ctx context.Context) {
	w.log.Info().Msg("EmailWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("EmailWorker stopped")
			return

		default:
			item, err := w.queue.BLPop(ctx, EmailPollTimeout, config.WorkerKey.EmailDispatchQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var job model.EmailJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			if err := w.limiter.Wait(ctx); err != nil {
				// Shutting down mid-wait: put the job back for the next run.
				w.requeue(context.Background(), job)
				return
			}
			w.process(ctx, job)
		}
	}
}

// ----------------------------------------------------------------
// Single delivery
// ----------------------------------------------------------------

func (w *EmailWorker) process(ctx context.Context, job model.EmailJob) {
	log := w.log.With().
		Str("campaign_id", job.CampaignID.String()).
		Int("student_id", job.Recipient.StudentID).
		Logger()

	msg, err := mailer.CampaignEmail(job.Recipient.Email, job.Subject, job.Body)
	if err == nil {
		_, err = w.mail.Send(ctx, msg)
	}
	metrics.EmailsSent.WithLabelValues("campaign", metrics.Result(err)).Inc()

	if err != nil {
		job.Attempt++
		if job.Attempt < EmailMaxAttempts {
			log.Warn().Err(err).Int("attempt", job.Attempt).Msg("Campaign email failed, requeueing")
			w.requeue(ctx, job)
			return
		}
		log.Error().Err(err).Msg("Campaign email failed permanently")
	}

	if rerr := w.campaigns.RecordResult(ctx, job.CampaignID, err == nil); rerr != nil {
		log.Error().Err(rerr).Msg("Record campaign result failed")
	}
}

func (w *EmailWorker) requeue(ctx context.Context, job model.EmailJob) {
	raw, _ := json.Marshal(job)
	if err := w.queue.RPush(ctx, config.WorkerKey.EmailDispatchQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("campaign_id", job.CampaignID.String()).Msg("Requeue failed, email dropped")
		_ = w.campaigns.RecordResult(ctx, job.CampaignID, false)
	}
}
