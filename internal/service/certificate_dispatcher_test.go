package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
)

type dispatchFixture struct {
	event          *model.Event
	events         *fakeEventStore
	participations *fakeParticipationStore
	storage        *fakeStorage
	renderer       *fakeRenderer
	mailer         *fakeMailer
	notifier       *fakeNotifier
	locker         *fakeLocker
	pub            *fakePublisher
	svc            *CertificateDispatcher
}

func newDispatchFixture(t *testing.T, participants int) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		storage:  newFakeStorage(),
		renderer: newFakeRenderer(),
		mailer:   &fakeMailer{failFor: map[string]bool{}},
		notifier: newFakeNotifier(),
		locker:   newFakeLocker(),
		pub:      newFakePublisher(),
	}
	url := f.storage.put("certificate-templates/tmpl.pdf", []byte("%PDF-1.4 template"))

	f.event = &model.Event{
		ID:     uuid.New(),
		Title:  "Beach Cleanup",
		Status: model.EventStatusCompleted,
		EndAt:  time.Date(2026, 3, 15, 17, 0, 0, 0, time.UTC),
		Certificate: model.CertificateConfig{
			TemplateURL: url,
			TemplateID:  "certificate-templates/tmpl.pdf",
			Fields:      certificate.Fields{Name: &certificate.Placement{X: 100, Y: 200, FontSize: 24, Color: "#000000"}},
		},
	}
	f.events = newFakeEventStore(f.event)

	f.participations = &fakeParticipationStore{}
	for i := 0; i < participants; i++ {
		f.participations.items = append(f.participations.items, &model.Participation{
			ID:                 uuid.New(),
			StudentID:          i + 1,
			EventID:            f.event.ID,
			Status:             model.ParticipationAttended,
			CertificateStatus:  model.DeliveryPending,
			StudentName:        fmt.Sprintf("Student %c", 'A'+i),
			StudentEmail:       fmt.Sprintf("s%d@example.edu", i+1),
			RegistrationNumber: fmt.Sprintf("21CS%04d", i+1),
		})
	}
	// Registered but never attended.
	f.participations.items = append(f.participations.items, &model.Participation{
		ID: uuid.New(), StudentID: 99, EventID: f.event.ID, Status: model.ParticipationApproved,
		StudentName: "No Show", StudentEmail: "noshow@example.edu",
	})

	f.svc = newCertificateDispatcher(f.events, f.participations, f.storage, f.renderer, f.mailer, f.notifier, f.locker, f.pub,
		DispatchOptions{Workers: 3}, zerolog.Nop())
	return f
}

func TestDispatch_AllDelivered(t *testing.T) {
	f := newDispatchFixture(t, 4)

	summary, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !summary.Success || summary.Total != 4 || summary.Successful != 4 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(f.mailer.sent) != 4 {
		t.Errorf("emails sent = %d, want 4", len(f.mailer.sent))
	}
	for _, m := range f.mailer.sent {
		if len(m.Attachments) != 1 || m.Attachments[0].ContentType != "application/pdf" {
			t.Errorf("email to %s has no PDF attachment", m.To)
		}
	}
	if !f.events.events[f.event.ID].CertificatesSent {
		t.Error("latch not set")
	}
	if f.storage.fetchCalls != 1 {
		t.Errorf("template fetched %d times, want once", f.storage.fetchCalls)
	}
	if got := len(f.notifier.notified); got != 4 {
		t.Errorf("notifications = %d, want 4", got)
	}
	if p := f.participations.byName("No Show"); p.CertificateStatus == model.DeliverySent {
		t.Error("approved-only participant must not receive a certificate")
	}
	channel := config.CacheKey.CertificateProgressChannel(f.event.ID.String())
	if got := f.pub.count(channel); got != 5 {
		t.Errorf("progress messages = %d, want 4 + done", got)
	}
}

func TestDispatch_PartialFailure(t *testing.T) {
	f := newDispatchFixture(t, 5)
	f.renderer.failFor = map[string]bool{"Student D": true}
	f.mailer.failFor["s2@example.edu"] = true

	summary, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !summary.Success || summary.Successful != 3 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Errors) != 2 || summary.Errors[0].StudentName != "Student B" || summary.Errors[1].StudentName != "Student D" {
		t.Errorf("errors = %+v", summary.Errors)
	}
	if summary.Errors[0].Email != "s2@example.edu" {
		t.Errorf("error email = %q", summary.Errors[0].Email)
	}
	if !f.events.events[f.event.ID].CertificatesSent {
		t.Error("latch must be set after a batch with failures")
	}
	if p := f.participations.byName("Student B"); p.CertificateStatus != model.DeliveryFailed || p.CertificateError == "" {
		t.Errorf("Student B delivery = %s %q", p.CertificateStatus, p.CertificateError)
	}
	if p := f.participations.byName("Student A"); p.CertificateStatus != model.DeliverySent || p.CertificateURL == "" {
		t.Errorf("Student A delivery = %s", p.CertificateStatus)
	}
	if len(f.storage.deleted) != 1 {
		t.Errorf("deleted = %v, want the one uploaded but undelivered certificate", f.storage.deleted)
	}
}

func TestDispatch_NoParticipants(t *testing.T) {
	f := newDispatchFixture(t, 0)

	summary, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Success {
		t.Error("Success should be false with no eligible participants")
	}
	if summary.Total != 0 || summary.Message == "" {
		t.Errorf("summary = %+v", summary)
	}
	if f.renderer.renderCalls != 0 || f.storage.fetchCalls != 0 {
		t.Error("renderer and storage must not be touched")
	}
	if f.events.latchCalls != 0 || f.events.events[f.event.ID].CertificatesSent {
		t.Error("latch must stay untouched")
	}
}

func TestDispatch_AlreadySent(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.event.CertificatesSent = true

	_, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if !errors.Is(err, ErrCertificatesAlreadySent) || !errors.Is(err, ErrState) {
		t.Fatalf("err = %v, want ErrCertificatesAlreadySent", err)
	}
	if f.participations.listCalls != 0 {
		t.Error("participations fetched before the latch check")
	}
	if len(f.mailer.sent) != 0 {
		t.Error("emails sent on a latched event")
	}
}

func TestDispatch_TemplateCheckedBeforeLatch(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.event.CertificatesSent = true
	f.event.Certificate.TemplateURL = ""

	_, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if !errors.Is(err, ErrTemplateNotConfigured) {
		t.Fatalf("err = %v, want ErrTemplateNotConfigured", err)
	}
}

func TestDispatch_EventNotFound(t *testing.T) {
	f := newDispatchFixture(t, 1)
	_, err := f.svc.Dispatch(context.Background(), uuid.New())
	if !errors.Is(err, ErrEventNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDispatch_LockHeld(t *testing.T) {
	f := newDispatchFixture(t, 2)
	f.locker.held[config.CacheKey.CertificateDispatchLockKey(f.event.ID.String())] = true

	_, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if !errors.Is(err, ErrDispatchInProgress) {
		t.Fatalf("err = %v, want ErrDispatchInProgress", err)
	}
	if f.renderer.renderCalls != 0 {
		t.Error("rendered while another dispatch held the lock")
	}
}

func TestDispatch_SecondRunRefused(t *testing.T) {
	f := newDispatchFixture(t, 2)
	if _, err := f.svc.Dispatch(context.Background(), f.event.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if !errors.Is(err, ErrCertificatesAlreadySent) {
		t.Fatalf("second run err = %v", err)
	}
	if len(f.mailer.sent) != 2 {
		t.Errorf("emails = %d, want 2", len(f.mailer.sent))
	}
	if len(f.locker.held) != 0 {
		t.Error("lock not released")
	}
}

func TestDispatch_LatchWriteFailure(t *testing.T) {
	f := newDispatchFixture(t, 3)
	f.events.latchErr = errors.New("connection reset")

	summary, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	if summary == nil || summary.Success || summary.LatchError == "" || summary.Successful != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.events.events[f.event.ID].CertificatesSent {
		t.Fatal("latch reported as set")
	}

	// The latch is still open, but delivered students must not be emailed again.
	f.events.latchErr = nil
	summary, err = f.svc.Dispatch(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Total != 0 {
		t.Errorf("second run summary = %+v", summary)
	}
	if len(f.mailer.sent) != 3 {
		t.Errorf("emails = %d, want 3", len(f.mailer.sent))
	}
}

func TestDispatch_TemplateFailures(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		f := newDispatchFixture(t, 2)
		f.storage.fetchErr = errors.New("connection reset")
		_, err := f.svc.Dispatch(context.Background(), f.event.ID)
		if !errors.Is(err, ErrExternalService) {
			t.Fatalf("err = %v", err)
		}
		if f.events.events[f.event.ID].CertificatesSent {
			t.Error("latch set after a failed template fetch")
		}
	})
	t.Run("unparseable", func(t *testing.T) {
		f := newDispatchFixture(t, 2)
		f.renderer.inspectErr = &certificate.TemplateError{Err: errors.New("no xref")}
		_, err := f.svc.Dispatch(context.Background(), f.event.ID)
		if !errors.Is(err, ErrTemplate) {
			t.Fatalf("err = %v", err)
		}
		if f.renderer.renderCalls != 0 {
			t.Error("rendered with a broken template")
		}
	})
}

func TestRetryFailed(t *testing.T) {
	f := newDispatchFixture(t, 4)

	if _, err := f.svc.RetryFailed(context.Background(), f.event.ID); !errors.Is(err, ErrCertificatesNotSent) {
		t.Fatalf("retry before dispatch err = %v", err)
	}

	f.mailer.failFor["s3@example.edu"] = true
	if _, err := f.svc.Dispatch(context.Background(), f.event.ID); err != nil {
		t.Fatal(err)
	}
	sentBefore := len(f.mailer.sent)

	delete(f.mailer.failFor, "s3@example.edu")
	summary, err := f.svc.RetryFailed(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if summary.Total != 1 || summary.Successful != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if got := len(f.mailer.sent) - sentBefore; got != 1 {
		t.Errorf("retry sent %d emails, want 1", got)
	}
	if f.mailer.sent[len(f.mailer.sent)-1].To != "s3@example.edu" {
		t.Error("retry emailed the wrong student")
	}
	if p := f.participations.byName("Student C"); p.CertificateStatus != model.DeliverySent {
		t.Errorf("Student C status = %s", p.CertificateStatus)
	}

	summary, err = f.svc.RetryFailed(context.Background(), f.event.ID)
	if err != nil || summary.Success || summary.Total != 0 {
		t.Errorf("nothing to retry: summary = %+v err = %v", summary, err)
	}
}

func TestIssueSingle(t *testing.T) {
	f := newDispatchFixture(t, 1)
	attended := f.participations.items[0]
	noShow := f.participations.items[1]

	if _, err := f.svc.IssueSingle(context.Background(), noShow.ID); !errors.Is(err, ErrNotQualified) {
		t.Errorf("approved participant err = %v", err)
	}
	if _, err := f.svc.IssueSingle(context.Background(), uuid.New()); !errors.Is(err, ErrParticipationNotFound) {
		t.Errorf("unknown participation err = %v", err)
	}

	p, err := f.svc.IssueSingle(context.Background(), attended.ID)
	if err != nil {
		t.Fatalf("IssueSingle: %v", err)
	}
	if p.CertificateStatus != model.DeliverySent || p.CertificateURL == "" {
		t.Errorf("participation = %+v", p)
	}
	if len(f.mailer.sent) != 0 {
		t.Error("single issue must not email")
	}
	if f.events.events[f.event.ID].CertificatesSent {
		t.Error("single issue must not set the batch latch")
	}
}

func TestDispatch_SkipsIssuedCertificates(t *testing.T) {
	f := newDispatchFixture(t, 3)
	issued := f.participations.items[0]

	if _, err := f.svc.IssueSingle(context.Background(), issued.ID); err != nil {
		t.Fatalf("IssueSingle: %v", err)
	}

	summary, err := f.svc.Dispatch(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if summary.Total != 2 || summary.Successful != 2 {
		t.Errorf("summary = %+v", summary)
	}
	for _, m := range f.mailer.sent {
		if m.To == issued.StudentEmail {
			t.Errorf("%s already held a certificate and was emailed again", m.To)
		}
	}
	if !f.events.events[f.event.ID].CertificatesSent {
		t.Error("latch not set")
	}
}
