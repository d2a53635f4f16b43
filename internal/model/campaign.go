package model

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus tracks a bulk email from queueing to completion.
type CampaignStatus string

const (
	CampaignQueued    CampaignStatus = "queued"
	CampaignCompleted CampaignStatus = "completed"
)

// EmailAudience selects campaign recipients. Empty fields match everyone.
type EmailAudience struct {
	Department   *Department `json:"department,omitempty" binding:"omitempty,department"`
	Year         *int        `json:"year,omitempty" binding:"omitempty,min=1,max=4"`
	EligibleOnly bool        `json:"eligible_only"`
	EventID      *uuid.UUID  `json:"event_id,omitempty"`
}

// EmailCampaign is a bulk communication sent to a set of students.
type EmailCampaign struct {
	ID           uuid.UUID      `json:"id"`
	Subject      string         `json:"subject"`
	BodyMarkdown string         `json:"body_markdown"`
	Audience     EmailAudience  `json:"audience"`
	Total        int            `json:"total"`
	Sent         int            `json:"sent"`
	Failed       int            `json:"failed"`
	Status       CampaignStatus `json:"status"`
	CreatedBy    int            `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Recipient is a resolved email destination.
type Recipient struct {
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// CreateCampaignRequest is the payload for a bulk email.
type CreateCampaignRequest struct {
	Subject      string        `json:"subject" binding:"required,min=3,max=200"`
	BodyMarkdown string        `json:"body_markdown" binding:"required,min=1,max=20000"`
	Audience     EmailAudience `json:"audience"`
}

// EmailJob is one queued campaign email.
type EmailJob struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Recipient  Recipient `json:"recipient"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body_markdown"`
	Attempt    int       `json:"attempt"`
}
