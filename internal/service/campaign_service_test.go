package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

type fakeCampaignStore struct {
	recipients []model.Recipient
	campaigns  map[uuid.UUID]*model.EmailCampaign
}

func (f *fakeCampaignStore) ResolveRecipients(context.Context, model.EmailAudience) ([]model.Recipient, error) {
	return f.recipients, nil
}

func (f *fakeCampaignStore) Create(_ context.Context, c *model.EmailCampaign) error {
	c.ID = uuid.New()
	c.Status = model.CampaignQueued
	cp := *c
	f.campaigns[c.ID] = &cp
	return nil
}

func (f *fakeCampaignStore) GetByID(_ context.Context, id uuid.UUID) (*model.EmailCampaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCampaignStore) List(context.Context, int, int) ([]model.EmailCampaign, int, error) {
	out := []model.EmailCampaign{}
	for _, c := range f.campaigns {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func TestCampaignCreate_QueuesOneJobPerRecipient(t *testing.T) {
	store := &fakeCampaignStore{campaigns: map[uuid.UUID]*model.EmailCampaign{}}
	for i := 1; i <= campaignPushBatch+3; i++ {
		store.recipients = append(store.recipients, model.Recipient{StudentID: i, Name: fmt.Sprint("S", i), Email: fmt.Sprintf("s%d@campus.edu", i)})
	}
	queue := newFakeQueue()
	svc := newCampaignService(store, queue, zerolog.Nop())

	c, err := svc.Create(context.Background(), 7, model.CreateCampaignRequest{Subject: "  Drive  ", BodyMarkdown: "**Join** us"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Total != campaignPushBatch+3 || c.Subject != "Drive" || c.CreatedBy != 7 {
		t.Errorf("campaign = %+v", c)
	}

	jobs := queue.jobs[config.WorkerKey.EmailDispatchQueue]
	if len(jobs) != campaignPushBatch+3 {
		t.Fatalf("queued %d jobs", len(jobs))
	}
	var job model.EmailJob
	if err := json.Unmarshal([]byte(jobs[0]), &job); err != nil {
		t.Fatal(err)
	}
	if job.CampaignID != c.ID || job.Recipient.StudentID != 1 || job.Body != "**Join** us" {
		t.Errorf("job = %+v", job)
	}
}

func TestCampaignCreate_NoRecipients(t *testing.T) {
	store := &fakeCampaignStore{campaigns: map[uuid.UUID]*model.EmailCampaign{}}
	queue := newFakeQueue()
	svc := newCampaignService(store, queue, zerolog.Nop())

	_, err := svc.Create(context.Background(), 1, model.CreateCampaignRequest{Subject: "Hi", BodyMarkdown: "x"})
	if !errors.Is(err, ErrNoRecipients) || !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
	if len(store.campaigns) != 0 || len(queue.jobs) != 0 {
		t.Error("nothing should be stored or queued")
	}
}

func TestCampaignGet_NotFound(t *testing.T) {
	svc := newCampaignService(&fakeCampaignStore{campaigns: map[uuid.UUID]*model.EmailCampaign{}}, newFakeQueue(), zerolog.Nop())
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrCampaignNotFound) {
		t.Errorf("err = %v", err)
	}
}
