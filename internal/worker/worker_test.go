package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/service"
)

// ─── Fakes ──────────────────────────────────────────────────────────────

type fakeQueue struct {
	mu    sync.Mutex
	lists map[string][]string
}

func newFakeQueue() *fakeQueue { return &fakeQueue{lists: map[string][]string{}} }

func (q *fakeQueue) BLPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		if items := q.lists[k]; len(items) > 0 {
			q.lists[k] = items[1:]
			return redis.NewStringSliceResult([]string{k, items[0]}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (q *fakeQueue) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			q.lists[key] = append(q.lists[key], string(b))
		case string:
			q.lists[key] = append(q.lists[key], b)
		}
	}
	return redis.NewIntResult(int64(len(q.lists[key])), nil)
}

func (q *fakeQueue) len(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[key])
}

type fakeRecorder struct {
	mu     sync.Mutex
	sent   int
	failed int
}

func (r *fakeRecorder) RecordResult(_ context.Context, _ uuid.UUID, sent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sent {
		r.sent++
	} else {
		r.failed++
	}
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return "", errors.New("smtp: mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

func campaignJob(email string, attempt int) model.EmailJob {
	return model.EmailJob{
		CampaignID: uuid.New(),
		Recipient:  model.Recipient{StudentID: 7, Name: "Asha", Email: email},
		Subject:    "Blood drive",
		Body:       "Join us on **Friday**.",
		Attempt:    attempt,
	}
}

// ─── EmailWorker ────────────────────────────────────────────────────────

func TestEmailWorker_Process(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		q, rec := newFakeQueue(), &fakeRecorder{}
		m := &fakeMailer{}
		w := NewEmailWorker(q, rec, m, 0, zerolog.Nop())

		w.process(context.Background(), campaignJob("asha@campus.edu", 0))

		if rec.sent != 1 || rec.failed != 0 {
			t.Errorf("recorded sent=%d failed=%d, want 1/0", rec.sent, rec.failed)
		}
		if len(m.sent) != 1 || m.sent[0].Subject != "Blood drive" {
			t.Fatalf("sent = %+v", m.sent)
		}
	})

	t.Run("failure is requeued", func(t *testing.T) {
		q, rec := newFakeQueue(), &fakeRecorder{}
		m := &fakeMailer{fail: map[string]bool{"bad@campus.edu": true}}
		w := NewEmailWorker(q, rec, m, 0, zerolog.Nop())

		w.process(context.Background(), campaignJob("bad@campus.edu", 0))

		if rec.sent+rec.failed != 0 {
			t.Errorf("nothing should be recorded before the last attempt")
		}
		if q.len(config.WorkerKey.EmailDispatchQueue) != 1 {
			t.Fatalf("job was not requeued")
		}
		var requeued model.EmailJob
		raw := q.lists[config.WorkerKey.EmailDispatchQueue][0]
		if err := json.Unmarshal([]byte(raw), &requeued); err != nil {
			t.Fatal(err)
		}
		if requeued.Attempt != 1 {
			t.Errorf("attempt = %d, want 1", requeued.Attempt)
		}
	})

	t.Run("last attempt records failure", func(t *testing.T) {
		q, rec := newFakeQueue(), &fakeRecorder{}
		m := &fakeMailer{fail: map[string]bool{"bad@campus.edu": true}}
		w := NewEmailWorker(q, rec, m, 0, zerolog.Nop())

		w.process(context.Background(), campaignJob("bad@campus.edu", EmailMaxAttempts-1))

		if rec.failed != 1 {
			t.Errorf("failed = %d, want 1", rec.failed)
		}
		if q.len(config.WorkerKey.EmailDispatchQueue) != 0 {
			t.Errorf("job requeued after the last attempt")
		}
	})
}

func TestEmailWorker_StartDrainsQueue(t *testing.T) {
	q, rec := newFakeQueue(), &fakeRecorder{}
	m := &fakeMailer{}
	for _, email := range []string{"a@campus.edu", "b@campus.edu", "c@campus.edu"} {
		raw, _ := json.Marshal(campaignJob(email, 0))
		q.RPush(context.Background(), config.WorkerKey.EmailDispatchQueue, raw)
	}
	w := NewEmailWorker(q, rec, m, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		rec.mu.Lock()
		n := rec.sent
		rec.mu.Unlock()
		if n == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("sent %d of 3 before deadline", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

// ─── CertificateWorker ──────────────────────────────────────────────────

type fakeDispatcher struct {
	mu     sync.Mutex
	events []uuid.UUID
}

func (d *fakeDispatcher) Dispatch(_ context.Context, eventID uuid.UUID) (*service.DispatchSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, eventID)
	return &service.DispatchSummary{EventID: eventID, Success: true, Total: 2, Successful: 2}, nil
}

func TestCertificateWorker_RunsQueuedEvents(t *testing.T) {
	q := newFakeQueue()
	eventID := uuid.New()
	q.RPush(context.Background(), config.WorkerKey.CertificateDispatchQueue, "not-a-uuid", eventID.String())

	d := &fakeDispatcher{}
	w := NewCertificateWorker(q, d, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for q.len(config.WorkerKey.CertificateDispatchQueue) > 0 {
		select {
		case <-deadline:
			t.Fatal("queue not drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if len(d.events) != 1 || d.events[0] != eventID {
		t.Errorf("dispatched = %v, want [%s]", d.events, eventID)
	}
}

// ─── ReminderScheduler ──────────────────────────────────────────────────

type fakeReminderEvents struct {
	due      []model.Event
	reminded []uuid.UUID
	cutoff   time.Time
}

func (f *fakeReminderEvents) ListDueReminders(_ context.Context, before time.Time) ([]model.Event, error) {
	f.cutoff = before
	return f.due, nil
}

func (f *fakeReminderEvents) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	f.reminded = append(f.reminded, id)
	return nil
}

type fakeParticipants struct {
	byEvent map[uuid.UUID][]model.Participation
	status  *model.ParticipationStatus
}

func (f *fakeParticipants) ListByEvent(_ context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error) {
	f.status = status
	return f.byEvent[eventID], nil
}

type fakeNotifier struct {
	tmpl model.Notification
	ids  []int
}

func (f *fakeNotifier) NotifyMany(_ context.Context, tmpl model.Notification, ids []int) error {
	f.tmpl = tmpl
	f.ids = append(f.ids, ids...)
	return nil
}

func TestReminderScheduler_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	event := model.Event{
		ID:       uuid.New(),
		Title:    "Beach clean-up",
		Location: "Marina",
		StartAt:  now.Add(20 * time.Hour),
	}

	events := &fakeReminderEvents{due: []model.Event{event}}
	participants := &fakeParticipants{byEvent: map[uuid.UUID][]model.Participation{
		event.ID: {
			{StudentID: 1, StudentName: "Asha", StudentEmail: "asha@campus.edu"},
			{StudentID: 2, StudentName: "Ravi", StudentEmail: "bounce@campus.edu"},
		},
	}}
	notifier := &fakeNotifier{}
	m := &fakeMailer{fail: map[string]bool{"bounce@campus.edu": true}}

	s := NewReminderScheduler(events, participants, notifier, m, "@hourly", 24*time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }

	s.RunOnce(context.Background())

	if !events.cutoff.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("cutoff = %v", events.cutoff)
	}
	if participants.status == nil || *participants.status != model.ParticipationApproved {
		t.Errorf("reminders must target approved participants")
	}
	if len(m.sent) != 1 || m.sent[0].To != "asha@campus.edu" {
		t.Errorf("sent = %+v", m.sent)
	}
	if len(notifier.ids) != 2 || notifier.tmpl.Type != model.NotificationEventReminder {
		t.Errorf("notified %v type %s", notifier.ids, notifier.tmpl.Type)
	}
	if len(events.reminded) != 1 || events.reminded[0] != event.ID {
		t.Errorf("reminded = %v", events.reminded)
	}
}

func TestReminderScheduler_InvalidSpec(t *testing.T) {
	s := NewReminderScheduler(&fakeReminderEvents{}, &fakeParticipants{}, &fakeNotifier{}, &fakeMailer{}, "every tuesday", time.Hour, zerolog.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}
