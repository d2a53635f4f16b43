package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type dispatchEventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	MarkCertificatesSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type dispatchParticipationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Participation, error)
	ListCertificateRecipients(ctx context.Context, eventID uuid.UUID, onlyFailed bool) ([]model.Participation, error)
	MarkCertificateSent(ctx context.Context, id uuid.UUID, url, storageID string) error
	MarkCertificateFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// DeliveryError records one student whose certificate could not be delivered.
type DeliveryError struct {
	ParticipationID uuid.UUID `json:"participation_id"`
	StudentName     string    `json:"student_name"`
	Email           string    `json:"email"`
	Error           string    `json:"error"`
}

// DispatchSummary is the outcome of a batch run. Success is true whenever
// the batch ran, even if some deliveries failed.
type DispatchSummary struct {
	EventID    uuid.UUID       `json:"event_id"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Errors     []DeliveryError `json:"errors"`
	LatchError string          `json:"latch_error,omitempty"`
}

// DispatchProgress is published once per student and once at the end of a run.
type DispatchProgress struct {
	EventID         uuid.UUID `json:"event_id"`
	ParticipationID uuid.UUID `json:"participation_id,omitempty"`
	StudentName     string    `json:"student_name,omitempty"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
	Processed       int       `json:"processed"`
	Total           int       `json:"total"`
}

const (
	ProgressSent   = "sent"
	ProgressFailed = "failed"
	ProgressDone   = "done"
)

// DispatchOptions throttles batch delivery.
type DispatchOptions struct {
	Workers  int
	Interval time.Duration
	LockTTL  time.Duration
}

// CertificateDispatcher renders, stores and emails certificates for every
// qualifying participant of an event.
type CertificateDispatcher struct {
	events         dispatchEventStore
	participations dispatchParticipationStore
	storage        storage.Storage
	renderer       certificateRenderer
	mailer         mailer.Mailer
	notifier       Notifier
	locker         Locker
	pub            Publisher
	opts           DispatchOptions
	log            zerolog.Logger
}

// NewCertificateDispatcher creates a new CertificateDispatcher.
func NewCertificateDispatcher(
	events *repository.EventRepository,
	participations *repository.ParticipationRepository,
	store storage.Storage,
	renderer *certificate.Renderer,
	m mailer.Mailer,
	notifier Notifier,
	rdb *redis.Client,
	opts DispatchOptions,
	log zerolog.Logger,
) *CertificateDispatcher {
	return newCertificateDispatcher(events, participations, store, renderer, m, notifier, NewRedisLocker(rdb, log), rdb, opts, log)
}

func newCertificateDispatcher(
	events dispatchEventStore,
	participations dispatchParticipationStore,
	store storage.Storage,
	renderer certificateRenderer,
	m mailer.Mailer,
	notifier Notifier,
	locker Locker,
	pub Publisher,
	opts DispatchOptions,
	log zerolog.Logger,
) *CertificateDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &CertificateDispatcher{
		events:         events,
		participations: participations,
		storage:        store,
		renderer:       renderer,
		mailer:         m,
		notifier:       notifier,
		locker:         locker,
		pub:            pub,
		opts:           opts,
		log:            log.With().Str("component", "certificate_dispatcher").Logger(),
	}
}

// Dispatch sends certificates to every attended or completed participant
// and then sets the event's certificates_sent latch. It refuses to run
// once the latch is set.
func (d *CertificateDispatcher) Dispatch(ctx context.Context, eventID uuid.UUID) (*DispatchSummary, error) {
	return d.run(ctx, eventID, false)
}

// RetryFailed re-sends only the deliveries that failed in an earlier run.
func (d *CertificateDispatcher) RetryFailed(ctx context.Context, eventID uuid.UUID) (*DispatchSummary, error) {
	return d.run(ctx, eventID, true)
}

func (d *CertificateDispatcher) run(ctx context.Context, eventID uuid.UUID, retry bool) (*DispatchSummary, error) {
	// A closed HTTP connection must not abandon a half-sent batch.
	ctx = context.WithoutCancel(ctx)

	event, err := d.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkLatch(event, retry); err != nil {
		return nil, err
	}

	release, acquired, err := d.locker.Acquire(ctx, config.CacheKey.CertificateDispatchLockKey(eventID.String()), d.opts.LockTTL)
	if err != nil {
		return nil, external("acquire dispatch lock", err)
	}
	if !acquired {
		return nil, ErrDispatchInProgress
	}
	defer release()

	// Another run may have finished between the first check and the lock.
	if event, err = d.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if err := checkLatch(event, retry); err != nil {
		return nil, err
	}

	recipients, err := d.participations.ListCertificateRecipients(ctx, eventID, retry)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{
		EventID: eventID,
		Total:   len(recipients),
		Errors:  []DeliveryError{},
	}
	if len(recipients) == 0 {
		summary.Message = "No eligible participants"
		if retry {
			summary.Message = "No failed deliveries to retry"
		}
		return summary, nil
	}

	tmpl, err := d.storage.Fetch(ctx, event.Certificate.TemplateURL)
	if err != nil {
		return nil, external("fetch template", err)
	}
	if _, err := d.renderer.Inspect(tmpl); err != nil {
		return nil, err
	}

	log := d.log.With().Str("event_id", eventID.String()).Bool("retry", retry).Logger()
	log.Info().Int("recipients", len(recipients)).Int("workers", d.opts.Workers).Msg("Certificate dispatch started")

	limit := rate.Inf
	if d.opts.Interval > 0 {
		limit = rate.Every(d.opts.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		mu        sync.Mutex
		processed int
		g         errgroup.Group
	)
	g.SetLimit(d.opts.Workers)

	for i := range recipients {
		p := &recipients[i]
		g.Go(func() error {
			err := limiter.Wait(ctx)
			if err == nil {
				err = d.deliver(ctx, event, tmpl, p)
			}
			metrics.CertificatesDelivered.WithLabelValues(deliveryResult(err)).Inc()

			progress := DispatchProgress{
				EventID:         eventID,
				ParticipationID: p.ID,
				StudentName:     p.StudentName,
				Status:          ProgressSent,
				Total:           len(recipients),
			}

			mu.Lock()
			processed++
			progress.Processed = processed
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, DeliveryError{
					ParticipationID: p.ID,
					StudentName:     p.StudentName,
					Email:           p.StudentEmail,
					Error:           err.Error(),
				})
				progress.Status = ProgressFailed
				progress.Error = err.Error()
			} else {
				summary.Successful++
			}
			mu.Unlock()

			if err != nil {
				log.Warn().Err(err).Str("participation_id", p.ID.String()).Msg("Certificate delivery failed")
				if markErr := d.participations.MarkCertificateFailed(ctx, p.ID, err.Error()); markErr != nil {
					log.Error().Err(markErr).Str("participation_id", p.ID.String()).Msg("Failed to record delivery failure")
				}
			}
			d.publishProgress(ctx, progress)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].StudentName < summary.Errors[j].StudentName
	})

	summary.Success = true
	summary.Message = fmt.Sprintf("Certificates processed: %d sent, %d failed", summary.Successful, summary.Failed)

	var latchErr error
	if !retry {
		won, err := d.events.MarkCertificatesSent(ctx, eventID)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("Failed to set certificates_sent latch")
			latchErr = external("set certificates_sent latch", err)
			summary.Success = false
			summary.LatchError = err.Error()
		case !won:
			log.Warn().Msg("certificates_sent latch was already set by another run")
		}
	}

	d.publishProgress(ctx, DispatchProgress{
		EventID:   eventID,
		Status:    ProgressDone,
		Processed: summary.Total,
		Total:     summary.Total,
	})
	if latchErr != nil {
		return summary, latchErr
	}

	log.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("Certificate dispatch finished")
	return summary, nil
}

// IssueSingle generates and records one participant's certificate without emailing it.
func (d *CertificateDispatcher) IssueSingle(ctx context.Context, participationID uuid.UUID) (*model.Participation, error) {
	p, err := d.participations.GetByID(ctx, participationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrParticipationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.Status.QualifiesForCertificate() {
		return nil, ErrNotQualified
	}

	event, err := d.loadEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Certificate.Configured() {
		return nil, ErrTemplateNotConfigured
	}

	tmpl, err := d.storage.Fetch(ctx, event.Certificate.TemplateURL)
	if err != nil {
		return nil, external("fetch template", err)
	}
	pdf, err := d.renderer.Render(tmpl, event.Certificate.Fields, certificateData(event, p))
	if err != nil {
		return nil, err
	}

	previous := p.CertificateID
	obj, err := d.storage.Upload(ctx, pdf, "certificates/"+event.ID.String(), certificateFilename(p))
	if err != nil {
		return nil, external("upload certificate", err)
	}
	if err := d.participations.MarkCertificateSent(ctx, p.ID, obj.URL, obj.ID); err != nil {
		return nil, err
	}
	if previous != "" && previous != obj.ID {
		if err := d.storage.Delete(ctx, previous); err != nil && !errors.Is(err, storage.ErrNotFound) {
			d.log.Warn().Err(err).Str("storage_id", previous).Msg("Failed to delete previous certificate")
		}
	}
	d.notifyIssued(ctx, event, p, obj.URL)

	now := time.Now()
	p.CertificateURL = obj.URL
	p.CertificateID = obj.ID
	p.CertificateStatus = model.DeliverySent
	p.CertificateError = ""
	p.CertificateSentAt = &now
	return p, nil
}

// deliver runs the full per-student pipeline. Any error marks the delivery failed.
func (d *CertificateDispatcher) deliver(ctx context.Context, event *model.Event, tmpl []byte, p *model.Participation) error {
	if strings.TrimSpace(p.StudentEmail) == "" {
		return errors.New("student has no email address")
	}

	pdf, err := d.renderer.Render(tmpl, event.Certificate.Fields, certificateData(event, p))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	filename := certificateFilename(p)
	obj, err := d.storage.Upload(ctx, pdf, "certificates/"+event.ID.String(), filename)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	msg, err := mailer.CertificateEmail(p.StudentEmail, p.StudentName, event.Title, pdf, filename)
	if err == nil {
		_, err = d.mailer.Send(ctx, msg)
	}
	metrics.EmailsSent.WithLabelValues("certificate", metrics.Result(err)).Inc()
	if err != nil {
		d.discard(ctx, obj.ID)
		return fmt.Errorf("email: %w", err)
	}

	if err := d.participations.MarkCertificateSent(ctx, p.ID, obj.URL, obj.ID); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	d.notifyIssued(ctx, event, p, obj.URL)
	return nil
}

func (d *CertificateDispatcher) loadEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := d.events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (d *CertificateDispatcher) notifyIssued(ctx context.Context, event *model.Event, p *model.Participation, url string) {
	if d.notifier == nil {
		return
	}
	err := d.notifier.Notify(ctx, &model.Notification{
		RecipientType: model.RecipientStudent,
		RecipientID:   p.StudentID,
		Type:          model.NotificationCertificateIssued,
		Title:         "Certificate issued",
		Message:       fmt.Sprintf("Your certificate for %s is ready.", event.Title),
		Link:          url,
	})
	if err != nil {
		d.log.Warn().Err(err).Int("student_id", p.StudentID).Msg("Failed to notify certificate issue")
	}
}

func (d *CertificateDispatcher) discard(ctx context.Context, id string) {
	if err := d.storage.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		d.log.Warn().Err(err).Str("storage_id", id).Msg("Failed to discard undelivered certificate")
	}
}

func (d *CertificateDispatcher) publishProgress(ctx context.Context, p DispatchProgress) {
	if d.pub == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := d.pub.Publish(ctx, config.CacheKey.CertificateProgressChannel(p.EventID.String()), payload).Err(); err != nil {
		d.log.Debug().Err(err).Msg("Failed to publish dispatch progress")
	}
}

// checkLatch enforces that a first run happens once and a retry only after it.
func checkLatch(event *model.Event, retry bool) error {
	if !event.Certificate.Configured() {
		return ErrTemplateNotConfigured
	}
	if retry && !event.CertificatesSent {
		return ErrCertificatesNotSent
	}
	if !retry && event.CertificatesSent {
		return ErrCertificatesAlreadySent
	}
	return nil
}

func certificateData(event *model.Event, p *model.Participation) certificate.Data {
	return certificate.Data{
		StudentName: p.StudentName,
		EventTitle:  event.Title,
		EventEnd:    event.EndAt,
	}
}

func certificateFilename(p *model.Participation) string {
	if p.RegistrationNumber != "" {
		return "certificate-" + p.RegistrationNumber + ".pdf"
	}
	return "certificate-" + p.ID.String() + ".pdf"
}

func deliveryResult(err error) string {
	if err != nil {
		return ProgressFailed
	}
	return ProgressSent
}
