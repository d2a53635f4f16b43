package model

import "time"

// RecipientType distinguishes notification rooms for students and admins.
type RecipientType string

const (
	RecipientStudent RecipientType = "student"
	RecipientAdmin   RecipientType = "admin"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationCertificateIssued     NotificationType = "certificate_issued"
	NotificationParticipationApproved NotificationType = "participation_approved"
	NotificationParticipationRejected NotificationType = "participation_rejected"
	NotificationEventPublished        NotificationType = "event_published"
	NotificationEventReminder         NotificationType = "event_reminder"
	NotificationEventCancelled        NotificationType = "event_cancelled"
)

// Notification is an in-app message. Broadcasts are not persisted and have ID 0.
type Notification struct {
	ID            int64            `json:"id"`
	RecipientType RecipientType    `json:"recipient_type"`
	RecipientID   int              `json:"recipient_id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Link          string           `json:"link,omitempty"`
	ReadAt        *time.Time       `json:"read_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
