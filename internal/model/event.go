package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/sevahub/sevahub-backend/internal/certificate"
)

// EventStatus enumerates the lifecycle of a volunteering event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// CanTransitionTo reports whether the status change is allowed.
// draft → published → ongoing → completed; anything not yet completed may be cancelled.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch next {
	case EventStatusPublished:
		return s == EventStatusDraft
	case EventStatusOngoing:
		return s == EventStatusPublished
	case EventStatusCompleted:
		return s == EventStatusOngoing
	case EventStatusCancelled:
		return s == EventStatusDraft || s == EventStatusPublished || s == EventStatusOngoing
	}
	return false
}

// EventType categorises an event.
type EventType string

const (
	EventTypeCommunityService EventType = "community_service"
	EventTypeEnvironmental    EventType = "environmental"
	EventTypeEducation        EventType = "education"
	EventTypeHealth           EventType = "health"
	EventTypeDisasterRelief   EventType = "disaster_relief"
	EventTypeOther            EventType = "other"
)

// CertificateConfig is an event's certificate template and field layout.
type CertificateConfig struct {
	TemplateURL string             `json:"template_url"`
	TemplateID  string             `json:"template_id,omitempty"`
	Fields      certificate.Fields `json:"fields"`
	AutoSend    bool               `json:"auto_send"`
}

// Configured reports whether a template has been uploaded.
func (c CertificateConfig) Configured() bool {
	return c.TemplateURL != ""
}

// Event represents a volunteering event.
// CertificatesSent is a one-way latch: once true the batch dispatcher refuses to run again.
type Event struct {
	ID                   uuid.UUID         `json:"id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Type                 EventType         `json:"type"`
	Location             string            `json:"location"`
	StartAt              time.Time         `json:"start_at"`
	EndAt                time.Time         `json:"end_at"`
	RegistrationDeadline time.Time         `json:"registration_deadline"`
	Capacity             *int              `json:"capacity"`
	CurrentParticipants  int               `json:"current_participants"`
	OrganizerID          int               `json:"organizer_id"`
	Status               EventStatus       `json:"status"`
	HoursAwarded         float64           `json:"hours_awarded"`
	Certificate          CertificateConfig `json:"certificate"`
	CertificatesSent     bool              `json:"certificates_sent"`
	CertificatesSentAt   *time.Time        `json:"certificates_sent_at,omitempty"`
	ReminderSent         bool              `json:"-"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsFull reports whether the event has reached its capacity.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.CurrentParticipants >= *e.Capacity
}

// EventFilter narrows event listings.
type EventFilter struct {
	Statuses []EventStatus
	Type     *EventType
	Search   string
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title                string    `json:"title" binding:"required,min=3,max=255"`
	Description          string    `json:"description" binding:"max=5000"`
	Type                 EventType `json:"type" binding:"required,oneof=community_service environmental education health disaster_relief other"`
	Location             string    `json:"location" binding:"required,max=255"`
	StartAt              time.Time `json:"start_at" binding:"required"`
	EndAt                time.Time `json:"end_at" binding:"required,gtfield=StartAt"`
	RegistrationDeadline time.Time `json:"registration_deadline" binding:"required,ltefield=StartAt"`
	Capacity             *int      `json:"capacity" binding:"omitempty,min=1"`
	HoursAwarded         float64   `json:"hours_awarded" binding:"min=0,max=200"`
}

// UpdateEventRequest is the payload for updating an event's details.
type UpdateEventRequest struct {
	Title                string    `json:"title" binding:"required,min=3,max=255"`
	Description          string    `json:"description" binding:"max=5000"`
	Type                 EventType `json:"type" binding:"required,oneof=community_service environmental education health disaster_relief other"`
	Location             string    `json:"location" binding:"required,max=255"`
	StartAt              time.Time `json:"start_at" binding:"required"`
	EndAt                time.Time `json:"end_at" binding:"required,gtfield=StartAt"`
	RegistrationDeadline time.Time `json:"registration_deadline" binding:"required,ltefield=StartAt"`
	Capacity             *int      `json:"capacity" binding:"omitempty,min=1"`
	HoursAwarded         float64   `json:"hours_awarded" binding:"min=0,max=200"`
}

// UpdateEventStatusRequest moves an event through its lifecycle.
type UpdateEventStatusRequest struct {
	Status EventStatus `json:"status" binding:"required,oneof=published ongoing completed cancelled"`
}

// PlaceFieldRequest places one certificate field from a click on the zoomed preview.
type PlaceFieldRequest struct {
	Field    string  `json:"field" binding:"required,oneof=name event_name eventName date"`
	ClickX   float64 `json:"click_x" binding:"min=0"`
	ClickY   float64 `json:"click_y" binding:"min=0"`
	Scale    float64 `json:"scale" binding:"required,gt=0"`
	FontSize float64 `json:"font_size" binding:"omitempty,min=4,max=200"`
	Color    string  `json:"color" binding:"omitempty,hexcolor"`
}

// SaveCertificateConfigRequest replaces the whole field layout and auto-send flag.
type SaveCertificateConfigRequest struct {
	Fields   certificate.Fields `json:"fields"`
	AutoSend bool               `json:"auto_send"`
}
