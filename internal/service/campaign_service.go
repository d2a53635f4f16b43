package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/response"
)

type campaignStore interface {
	ResolveRecipients(ctx context.Context, a model.EmailAudience) ([]model.Recipient, error)
	Create(ctx context.Context, c *model.EmailCampaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.EmailCampaign, error)
	List(ctx context.Context, limit, offset int) ([]model.EmailCampaign, int, error)
}

// campaignPushBatch bounds the number of jobs sent in one RPUSH.
const campaignPushBatch = 500

// CampaignService creates bulk email campaigns and queues their jobs.
type CampaignService struct {
	campaigns campaignStore
	queue     Enqueuer
	log       zerolog.Logger
}

// NewCampaignService creates a new CampaignService.
func NewCampaignService(campaigns *repository.CampaignRepository, queue Enqueuer, log zerolog.Logger) *CampaignService {
	return newCampaignService(campaigns, queue, log)
}

func newCampaignService(campaigns campaignStore, queue Enqueuer, log zerolog.Logger) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		queue:     queue,
		log:       log.With().Str("component", "campaign_service").Logger(),
	}
}

// Preview returns the recipients a campaign with this audience would reach.
func (s *CampaignService) Preview(ctx context.Context, audience model.EmailAudience) ([]model.Recipient, error) {
	return s.campaigns.ResolveRecipients(ctx, audience)
}

// Create records a campaign and pushes one email job per recipient onto the
// dispatch queue. The worker sends them and updates the counters.
func (s *CampaignService) Create(ctx context.Context, adminID int, req model.CreateCampaignRequest) (*model.EmailCampaign, error) {
	recipients, err := s.campaigns.ResolveRecipients(ctx, req.Audience)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	c := &model.EmailCampaign{
		Subject:      strings.TrimSpace(req.Subject),
		BodyMarkdown: req.BodyMarkdown,
		Audience:     req.Audience,
		Total:        len(recipients),
		CreatedBy:    adminID,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	batch := make([]interface{}, 0, campaignPushBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.queue.RPush(ctx, config.WorkerKey.EmailDispatchQueue, batch...).Err()
		batch = batch[:0]
		return err
	}
	for _, r := range recipients {
		job, err := json.Marshal(model.EmailJob{
			CampaignID: c.ID,
			Recipient:  r,
			Subject:    c.Subject,
			Body:       c.BodyMarkdown,
		})
		if err != nil {
			return nil, err
		}
		batch = append(batch, job)
		if len(batch) == campaignPushBatch {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("queue campaign jobs: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("queue campaign jobs: %w", err)
	}

	s.log.Info().
		Str("campaign_id", c.ID.String()).
		Int("recipients", c.Total).
		Int("admin_id", adminID).
		Msg("Campaign queued")
	return c, nil
}

// Get retrieves a campaign with its delivery counters.
func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*model.EmailCampaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCampaignNotFound
	}
	return c, err
}

// List retrieves campaigns, newest first.
func (s *CampaignService) List(ctx context.Context, page, perPage int) ([]model.EmailCampaign, *response.Pagination, error) {
	page, perPage, limit, offset := pageBounds(page, perPage)
	items, total, err := s.campaigns.List(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return items, response.NewPagination(page, perPage, total), nil
}
