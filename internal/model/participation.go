package model

import (
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus enumerates a registration's lifecycle.
type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "pending"
	ParticipationApproved  ParticipationStatus = "approved"
	ParticipationRejected  ParticipationStatus = "rejected"
	ParticipationAttended  ParticipationStatus = "attended"
	ParticipationCompleted ParticipationStatus = "completed"
	ParticipationCancelled ParticipationStatus = "cancelled"
)

// CertificateStatuses are the participation states that qualify for a certificate.
var CertificateStatuses = []ParticipationStatus{ParticipationAttended, ParticipationCompleted}

// QualifiesForCertificate reports whether the status is terminal-attended.
func (s ParticipationStatus) QualifiesForCertificate() bool {
	return s == ParticipationAttended || s == ParticipationCompleted
}

// DeliveryStatus tracks certificate delivery for one participation.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// EvidenceType classifies uploaded evidence.
type EvidenceType string

const (
	EvidenceImage    EvidenceType = "image"
	EvidenceDocument EvidenceType = "document"
)

// Evidence is a reference to an uploaded proof-of-participation file.
type Evidence struct {
	ID         string       `json:"id"`
	Type       EvidenceType `json:"type"`
	URL        string       `json:"url"`
	StorageID  string       `json:"storage_id"`
	Name       string       `json:"name"`
	Caption    string       `json:"caption,omitempty"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// ReportSource tells whether a report came from the AI provider or the fallback template.
type ReportSource string

const (
	ReportSourceAI       ReportSource = "ai"
	ReportSourceTemplate ReportSource = "template"
)

// Participation joins one student to one event. Unique per (student, event).
type Participation struct {
	ID                uuid.UUID           `json:"id"`
	StudentID         int                 `json:"student_id"`
	EventID           uuid.UUID           `json:"event_id"`
	Status            ParticipationStatus `json:"status"`
	Description       string              `json:"description"`
	Evidence          []Evidence          `json:"evidence"`
	VolunteerHours    float64             `json:"volunteer_hours"`
	CertificateURL    string              `json:"certificate_url,omitempty"`
	CertificateID     string              `json:"certificate_id,omitempty"`
	CertificateStatus DeliveryStatus      `json:"certificate_status"`
	CertificateError  string              `json:"certificate_error,omitempty"`
	CertificateSentAt *time.Time          `json:"certificate_sent_at,omitempty"`
	AIReport          string              `json:"ai_report,omitempty"`
	ReportSource      ReportSource        `json:"report_source,omitempty"`
	RejectionReason   string              `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	// Joined for listings and certificate delivery.
	StudentName        string `json:"student_name,omitempty"`
	StudentEmail       string `json:"student_email,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	EventTitle         string `json:"event_title,omitempty"`
}

// RejectParticipationRequest carries the reason shown to the student.
type RejectParticipationRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// GenerateReportRequest is the student's own description of what they did.
type GenerateReportRequest struct {
	Description string `json:"description" binding:"required,min=20,max=5000"`
}
