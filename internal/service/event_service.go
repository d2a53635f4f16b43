package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/response"
)

type eventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	GetForUpdate(ctx context.Context, q repository.Querier, id uuid.UUID) (*model.Event, error)
	ListPaginated(ctx context.Context, f model.EventFilter, limit, offset int) ([]model.Event, int, error)
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e *model.Event) error
	UpdateStatus(ctx context.Context, q repository.Querier, id uuid.UUID, status model.EventStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type eventParticipationStore interface {
	CompleteAttended(ctx context.Context, q repository.Querier, eventID uuid.UUID, hours float64) ([]int, error)
	CancelOpen(ctx context.Context, q repository.Querier, eventID uuid.UUID) ([]int, error)
}

type volunteerHoursStore interface {
	RecalculateVolunteerHours(ctx context.Context, q repository.Querier, studentIDs []int) error
}

// Enqueuer pushes jobs onto a Redis list consumed by a worker.
type Enqueuer interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// EventService manages volunteering events and their lifecycle.
type EventService struct {
	events         eventStore
	participations eventParticipationStore
	students       volunteerHoursStore
	notifier       Notifier
	queue          Enqueuer
	tx             txRunner
	log            zerolog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(
	pool *pgxpool.Pool,
	events *repository.EventRepository,
	participations *repository.ParticipationRepository,
	students *repository.StudentRepository,
	notifier Notifier,
	rdb *redis.Client,
	log zerolog.Logger,
) *EventService {
	return newEventService(events, participations, students, notifier, rdb, poolTx(pool), log)
}

func newEventService(
	events eventStore,
	participations eventParticipationStore,
	students volunteerHoursStore,
	notifier Notifier,
	queue Enqueuer,
	tx txRunner,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		events:         events,
		participations: participations,
		students:       students,
		notifier:       notifier,
		queue:          queue,
		tx:             tx,
		log:            log.With().Str("component", "event_service").Logger(),
	}
}

// GetByID retrieves an event.
func (s *EventService) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// List returns events matching the filter with pagination.
func (s *EventService) List(ctx context.Context, f model.EventFilter, page, perPage int) ([]model.Event, *response.Pagination, error) {
	page, perPage, limit, offset := pageBounds(page, perPage)
	events, total, err := s.events.ListPaginated(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, response.NewPagination(page, perPage, total), nil
}

// Create inserts a draft event organised by the calling admin.
func (s *EventService) Create(ctx context.Context, organizerID int, req model.CreateEventRequest) (*model.Event, error) {
	e := &model.Event{
		Title:                req.Title,
		Description:          req.Description,
		Type:                 req.Type,
		Location:             req.Location,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		RegistrationDeadline: req.RegistrationDeadline,
		Capacity:             req.Capacity,
		HoursAwarded:         req.HoursAwarded,
		OrganizerID:          organizerID,
	}
	if err := validateSchedule(e); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info().Str("event_id", e.ID.String()).Int("organizer_id", organizerID).Msg("Event created")
	return e, nil
}

// Update edits an event that has not finished.
func (s *EventService) Update(ctx context.Context, id uuid.UUID, req model.UpdateEventRequest) (*model.Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == model.EventStatusCompleted || e.Status == model.EventStatusCancelled {
		return nil, ErrEventLocked
	}
	if req.Capacity != nil && *req.Capacity < e.CurrentParticipants {
		return nil, ErrCapacityBelowCount
	}

	e.Title = req.Title
	e.Description = req.Description
	e.Type = req.Type
	e.Location = req.Location
	e.StartAt = req.StartAt
	e.EndAt = req.EndAt
	e.RegistrationDeadline = req.RegistrationDeadline
	e.Capacity = req.Capacity
	e.HoursAwarded = req.HoursAwarded
	if err := validateSchedule(e); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// Delete removes a draft or cancelled event.
func (s *EventService) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status != model.EventStatusDraft && e.Status != model.EventStatusCancelled {
		return ErrEventLocked
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	s.log.Info().Str("event_id", id.String()).Msg("Event deleted")
	return nil
}

// UpdateStatus moves an event through its lifecycle.
//
// Completing an event promotes attended participations to completed, awards
// hours and recomputes each student's total in the same transaction, then
// queues certificate dispatch when auto-send is on. Cancelling cancels open
// registrations and tells the affected students.
func (s *EventService) UpdateStatus(ctx context.Context, id uuid.UUID, next model.EventStatus) (*model.Event, error) {
	var (
		event    *model.Event
		affected []int
	)

	err := s.tx(ctx, func(q repository.Querier) error {
		e, err := s.events.GetForUpdate(ctx, q, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if !e.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.Status, next)
		}

		switch next {
		case model.EventStatusCompleted:
			if affected, err = s.participations.CompleteAttended(ctx, q, id, e.HoursAwarded); err != nil {
				return err
			}
			if err := s.students.RecalculateVolunteerHours(ctx, q, affected); err != nil {
				return err
			}
		case model.EventStatusCancelled:
			if affected, err = s.participations.CancelOpen(ctx, q, id); err != nil {
				return err
			}
		}

		if err := s.events.UpdateStatus(ctx, q, id, next); err != nil {
			return err
		}
		e.Status = next
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.log.With().Str("event_id", id.String()).Str("status", string(next)).Logger()
	log.Info().Int("participations_affected", len(affected)).Msg("Event status changed")

	switch next {
	case model.EventStatusPublished:
		msg := fmt.Sprintf("%s at %s on %s. Register before %s.", event.Title, event.Location,
			event.StartAt.Format("Jan 2"), event.RegistrationDeadline.Format("Jan 2, 15:04"))
		s.bestEffort(log, "broadcast", s.notifier.Broadcast(ctx, model.Notification{
			Type:    model.NotificationEventPublished,
			Title:   "New volunteering event",
			Message: msg,
			Link:    "/events/" + id.String(),
		}))
	case model.EventStatusCompleted:
		if event.Certificate.AutoSend && event.Certificate.Configured() {
			if err := s.queue.RPush(ctx, config.WorkerKey.CertificateDispatchQueue, id.String()).Err(); err != nil {
				log.Error().Err(err).Msg("Failed to queue certificate dispatch")
			} else {
				log.Info().Msg("Certificate dispatch queued")
			}
		}
	case model.EventStatusCancelled:
		s.bestEffort(log, "notify cancelled", s.notifier.NotifyMany(ctx, model.Notification{
			Type:    model.NotificationEventCancelled,
			Title:   "Event cancelled",
			Message: fmt.Sprintf("%s has been cancelled.", event.Title),
			Link:    "/events/" + id.String(),
		}, affected))
	}

	return event, nil
}

func (s *EventService) bestEffort(log zerolog.Logger, op string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Notification failed")
	}
}

func validateSchedule(e *model.Event) error {
	if !e.EndAt.After(e.StartAt) {
		return fmt.Errorf("%w: end_at must be after start_at", ErrValidation)
	}
	if e.RegistrationDeadline.After(e.StartAt) {
		return fmt.Errorf("%w: registration_deadline must not be after start_at", ErrValidation)
	}
	if e.HoursAwarded < 0 {
		return fmt.Errorf("%w: hours_awarded must not be negative", ErrValidation)
	}
	if e.Capacity != nil && *e.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}
	return nil
}

// eventOpen reports whether students can still register.
func eventOpen(e *model.Event, now time.Time) error {
	if e.Status != model.EventStatusPublished {
		return ErrRegistrationClosed
	}
	if now.After(e.RegistrationDeadline) {
		return fmt.Errorf("%w: deadline was %s", ErrRegistrationClosed, e.RegistrationDeadline.Format(time.RFC3339))
	}
	if e.IsFull() {
		return ErrEventFull
	}
	return nil
}
