package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

const maxEvidencePerParticipation = 10

type studentGetter interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

type seatStore interface {
	GetForUpdate(ctx context.Context, q repository.Querier, id uuid.UUID) (*model.Event, error)
	ReserveSeat(ctx context.Context, q repository.Querier, id uuid.UUID) error
	ReleaseSeat(ctx context.Context, q repository.Querier, id uuid.UUID) error
}

type participationStore interface {
	Create(ctx context.Context, q repository.Querier, p *model.Participation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Participation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Participation, error)
	UpdateStatus(ctx context.Context, q repository.Querier, id uuid.UUID, status model.ParticipationStatus, reason string) error
	SetEvidence(ctx context.Context, id uuid.UUID, evidence []model.Evidence) error
}

// ParticipationService handles registration and the review workflow.
type ParticipationService struct {
	students       studentGetter
	events         seatStore
	participations participationStore
	media          *MediaService
	notifier       Notifier
	tx             txRunner
	now            func() time.Time
	log            zerolog.Logger
}

// NewParticipationService creates a new ParticipationService.
func NewParticipationService(
	pool *pgxpool.Pool,
	students *repository.StudentRepository,
	events *repository.EventRepository,
	participations *repository.ParticipationRepository,
	media *MediaService,
	notifier Notifier,
	log zerolog.Logger,
) *ParticipationService {
	return newParticipationService(students, events, participations, media, notifier, poolTx(pool), log)
}

func newParticipationService(
	students studentGetter,
	events seatStore,
	participations participationStore,
	media *MediaService,
	notifier Notifier,
	tx txRunner,
	log zerolog.Logger,
) *ParticipationService {
	return &ParticipationService{
		students:       students,
		events:         events,
		participations: participations,
		media:          media,
		notifier:       notifier,
		tx:             tx,
		now:            time.Now,
		log:            log.With().Str("component", "participation_service").Logger(),
	}
}

// Register signs a student up for an event.
//
// The attendance gate runs first: a student with no recorded attendance or
// below the threshold is refused before the event is even loaded. The seat
// is reserved in the same transaction that inserts the participation.
func (s *ParticipationService) Register(ctx context.Context, studentID int, eventID uuid.UUID) (*model.Participation, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	eligibility, err := CheckEligibility(student.AttendancePercentage)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		s.log.Info().
			Int("student_id", studentID).
			Float64("percentage", *student.AttendancePercentage).
			Msg("Registration refused: attendance below threshold")
		return nil, &NotEligibleError{Eligibility: eligibility, Percentage: *student.AttendancePercentage}
	}

	p := &model.Participation{StudentID: studentID, EventID: eventID}
	err = s.tx(ctx, func(q repository.Querier) error {
		event, err := s.events.GetForUpdate(ctx, q, eventID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if err := eventOpen(event, s.now()); err != nil {
			return err
		}

		if err := s.participations.Create(ctx, q, p); err != nil {
			if errors.Is(err, repository.ErrDuplicateParticipation) {
				return ErrAlreadyRegistered
			}
			return err
		}
		if err := s.events.ReserveSeat(ctx, q, eventID); err != nil {
			if errors.Is(err, repository.ErrEventFull) {
				return ErrEventFull
			}
			return err
		}
		p.EventTitle = event.Title
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.StudentName = student.Name
	p.StudentEmail = student.Email
	p.RegistrationNumber = student.RegistrationNumber
	s.log.Info().Int("student_id", studentID).Str("event_id", eventID.String()).Msg("Student registered")
	return p, nil
}

// Cancel withdraws the student's own pending registration and frees the seat.
func (s *ParticipationService) Cancel(ctx context.Context, studentID int, id uuid.UUID) error {
	p, err := s.GetForStudent(ctx, studentID, id)
	if err != nil {
		return err
	}
	if p.Status != model.ParticipationPending {
		return ErrParticipationNotActive
	}
	return s.tx(ctx, func(q repository.Querier) error {
		if err := s.participations.UpdateStatus(ctx, q, id, model.ParticipationCancelled, ""); err != nil {
			return err
		}
		return s.events.ReleaseSeat(ctx, q, p.EventID)
	})
}

// Approve accepts a pending registration.
func (s *ParticipationService) Approve(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	p, err := s.transition(ctx, id, model.ParticipationApproved, "", false, model.ParticipationPending)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, model.NotificationParticipationApproved, "Registration approved",
		fmt.Sprintf("You're confirmed for %s.", p.EventTitle))
	return p, nil
}

// Reject refuses a pending or approved registration and frees the seat.
func (s *ParticipationService) Reject(ctx context.Context, id uuid.UUID, reason string) (*model.Participation, error) {
	p, err := s.transition(ctx, id, model.ParticipationRejected, reason, true, model.ParticipationPending, model.ParticipationApproved)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, model.NotificationParticipationRejected, "Registration not accepted",
		fmt.Sprintf("Your registration for %s was not accepted: %s", p.EventTitle, reason))
	return p, nil
}

// MarkAttended records that an approved participant showed up.
func (s *ParticipationService) MarkAttended(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	return s.transition(ctx, id, model.ParticipationAttended, "", false, model.ParticipationApproved)
}

func (s *ParticipationService) transition(ctx context.Context, id uuid.UUID, next model.ParticipationStatus, reason string, releaseSeat bool, from ...model.ParticipationStatus) (*model.Participation, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(p.Status, from) {
		return nil, fmt.Errorf("%w: %s to %s", ErrParticipationNotActive, p.Status, next)
	}

	err = s.tx(ctx, func(q repository.Querier) error {
		if err := s.participations.UpdateStatus(ctx, q, id, next, reason); err != nil {
			return err
		}
		if releaseSeat {
			return s.events.ReleaseSeat(ctx, q, p.EventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.Status = next
	p.RejectionReason = reason
	s.log.Info().Str("participation_id", id.String()).Str("status", string(next)).Msg("Participation status changed")
	return p, nil
}

// GetByID retrieves a participation.
func (s *ParticipationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	p, err := s.participations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrParticipationNotFound
	}
	return p, err
}

// GetForStudent retrieves a participation owned by the student.
// Someone else's participation is reported as not found.
func (s *ParticipationService) GetForStudent(ctx context.Context, studentID int, id uuid.UUID) (*model.Participation, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, ErrParticipationNotFound
	}
	return p, nil
}

// ListByEvent lists an event's participations, optionally by status.
func (s *ParticipationService) ListByEvent(ctx context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error) {
	return s.participations.ListByEvent(ctx, eventID, status)
}

// ListByStudent lists a student's own participations.
func (s *ParticipationService) ListByStudent(ctx context.Context, studentID int) ([]model.Participation, error) {
	return s.participations.ListByStudent(ctx, studentID)
}

// ─── Evidence ───────────────────────────────────────────────────────────

// UploadEvidence attaches a photo or document to the student's participation.
func (s *ParticipationService) UploadEvidence(ctx context.Context, studentID int, id uuid.UUID, name, caption string, data []byte) (*model.Evidence, error) {
	p, err := s.GetForStudent(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.ParticipationRejected || p.Status == model.ParticipationCancelled {
		return nil, ErrParticipationNotActive
	}
	if len(p.Evidence) >= maxEvidencePerParticipation {
		return nil, fmt.Errorf("%w: at most %d evidence files", ErrValidation, maxEvidencePerParticipation)
	}

	stored, err := s.media.SaveUpload(ctx, "evidence/"+id.String(), data, EvidenceMIMETypes)
	if err != nil {
		return nil, err
	}

	ev := model.Evidence{
		ID:         uuid.NewString(),
		Type:       model.EvidenceImage,
		URL:        stored.URL,
		StorageID:  stored.ID,
		Name:       name,
		Caption:    caption,
		UploadedAt: s.now(),
	}
	if stored.ContentType == "application/pdf" {
		ev.Type = model.EvidenceDocument
	}

	evidence := append(append([]model.Evidence{}, p.Evidence...), ev)
	if err := s.participations.SetEvidence(ctx, id, evidence); err != nil {
		_ = s.media.Remove(ctx, stored.ID)
		return nil, err
	}
	return &ev, nil
}

// DeleteEvidence removes one evidence file from storage and the participation.
func (s *ParticipationService) DeleteEvidence(ctx context.Context, studentID int, id uuid.UUID, evidenceID string) error {
	p, err := s.GetForStudent(ctx, studentID, id)
	if err != nil {
		return err
	}

	kept := make([]model.Evidence, 0, len(p.Evidence))
	var removed *model.Evidence
	for i := range p.Evidence {
		if p.Evidence[i].ID == evidenceID {
			removed = &p.Evidence[i]
			continue
		}
		kept = append(kept, p.Evidence[i])
	}
	if removed == nil {
		return ErrEvidenceNotFound
	}

	if err := s.media.Remove(ctx, removed.StorageID); err != nil {
		return err
	}
	return s.participations.SetEvidence(ctx, id, kept)
}

func (s *ParticipationService) notify(ctx context.Context, p *model.Participation, typ model.NotificationType, title, msg string) {
	err := s.notifier.Notify(ctx, &model.Notification{
		RecipientType: model.RecipientStudent,
		RecipientID:   p.StudentID,
		Type:          typ,
		Title:         title,
		Message:       msg,
		Link:          "/participations/" + p.ID.String(),
	})
	if err != nil {
		s.log.Warn().Err(err).Int("student_id", p.StudentID).Msg("Failed to send notification")
	}
}

func statusIn(s model.ParticipationStatus, set []model.ParticipationStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
