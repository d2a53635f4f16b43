package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/model"
)

const reminderRunTimeout = 10 * time.Minute

// ReminderEvents finds published events that start soon and have not been reminded.
type ReminderEvents interface {
	ListDueReminders(ctx context.Context, before time.Time) ([]model.Event, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// ReminderParticipants lists an event's participants with their contact details.
type ReminderParticipants interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error)
}

// ReminderNotifier fans an in-app notification out to many students.
type ReminderNotifier interface {
	NotifyMany(ctx context.Context, tmpl model.Notification, studentIDs []int) error
}

// ReminderScheduler emails approved participants ahead of an event and drops
// a notification in their inbox. Each event is reminded at most once.
type ReminderScheduler struct {
	events       ReminderEvents
	participants ReminderParticipants
	notifier     ReminderNotifier
	mail         mailer.Mailer
	lead         time.Duration
	spec         string
	log          zerolog.Logger
	now          func() time.Time
}

func NewReminderScheduler(
	events ReminderEvents,
	participants ReminderParticipants,
	notifier ReminderNotifier,
	mail mailer.Mailer,
	spec string,
	lead time.Duration,
	log zerolog.Logger,
) *ReminderScheduler {
	return &ReminderScheduler{
		events:       events,
		participants: participants,
		notifier:     notifier,
		mail:         mail,
		lead:         lead,
		spec:         spec,
		log:          log.With().Str("component", "reminder_scheduler").Logger(),
		now:          time.Now,
	}
}

// Start runs the schedule until ctx is cancelled. A run still in progress
// when the next tick fires is not overlapped.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	cronLog := cron.PrintfLogger(&s.log)
	c := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))

	if _, err := c.AddFunc(s.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, reminderRunTimeout)
		defer cancel()
		s.RunOnce(runCtx)
	}); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.spec, err)
	}

	c.Start()
	s.log.Info().Str("schedule", s.spec).Dur("lead", s.lead).Msg("ReminderScheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info().Msg("ReminderScheduler stopped")
	return nil
}

// RunOnce reminds every event starting within the lead window.
func (s *ReminderScheduler) RunOnce(ctx context.Context) {
	due, err := s.events.ListDueReminders(ctx, s.now().Add(s.lead))
	if err != nil {
		s.log.Error().Err(err).Msg("List due reminders failed")
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		s.remind(ctx, &due[i])
	}
}

func (s *ReminderScheduler) remind(ctx context.Context, event *model.Event) {
	log := s.log.With().Str("event_id", event.ID.String()).Logger()

	approved := model.ParticipationApproved
	participants, err := s.participants.ListByEvent(ctx, event.ID, &approved)
	if err != nil {
		log.Error().Err(err).Msg("List participants failed")
		return
	}

	ids := make([]int, 0, len(participants))
	failed := 0
	for _, p := range participants {
		ids = append(ids, p.StudentID)

		msg, err := mailer.ReminderEmail(p.StudentEmail, p.StudentName, event.Title, event.Location, event.StartAt)
		if err == nil {
			_, err = s.mail.Send(ctx, msg)
		}
		metrics.EmailsSent.WithLabelValues("reminder", metrics.Result(err)).Inc()
		if err != nil {
			failed++
			log.Warn().Err(err).Int("student_id", p.StudentID).Msg("Reminder email failed")
		}
	}

	if err := s.notifier.NotifyMany(ctx, model.Notification{
		Type:    model.NotificationEventReminder,
		Title:   "Upcoming: " + event.Title,
		Message: fmt.Sprintf("%s starts %s at %s.", event.Title, event.StartAt.Format("Jan 2, 3:04 PM"), event.Location),
		Link:    "/events/" + event.ID.String(),
	}, ids); err != nil {
		log.Error().Err(err).Msg("Reminder notifications failed")
	}

	// Email failures are not retried; a second run would re-send to everyone else.
	if err := s.events.MarkReminderSent(ctx, event.ID); err != nil {
		log.Error().Err(err).Msg("Mark reminder sent failed")
		return
	}

	log.Info().Int("participants", len(participants)).Int("failed", failed).Msg("Event reminder sent")
}
