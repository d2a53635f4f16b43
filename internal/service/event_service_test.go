package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
)

type eventFixture struct {
	events         *fakeEventStore
	participations *fakeParticipationStore
	students       *fakeStudentStore
	notifier       *fakeNotifier
	queue          *fakeQueue
	svc            *EventService
}

func newEventFixture(events ...*model.Event) *eventFixture {
	f := &eventFixture{
		events:         newFakeEventStore(events...),
		participations: &fakeParticipationStore{},
		students:       newFakeStudentStore(),
		notifier:       newFakeNotifier(),
		queue:          newFakeQueue(),
	}
	f.svc = newEventService(f.events, f.participations, f.students, f.notifier, f.queue, noTx, zerolog.Nop())
	return f
}

func createRequest() model.CreateEventRequest {
	start := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	return model.CreateEventRequest{
		Title:                "Blood Donation Camp",
		Type:                 model.EventTypeHealth,
		Location:             "Main Auditorium",
		StartAt:              start,
		EndAt:                start.Add(6 * time.Hour),
		RegistrationDeadline: start.Add(-24 * time.Hour),
		HoursAwarded:         6,
	}
}

func TestEventCreate(t *testing.T) {
	f := newEventFixture()
	e, err := f.svc.Create(context.Background(), 7, createRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Status != model.EventStatusDraft || e.OrganizerID != 7 {
		t.Errorf("event = %+v", e)
	}

	bad := createRequest()
	bad.RegistrationDeadline = bad.StartAt.Add(time.Hour)
	if _, err := f.svc.Create(context.Background(), 7, bad); !errors.Is(err, ErrValidation) {
		t.Errorf("deadline after start err = %v", err)
	}
}

func TestEventUpdate_Rules(t *testing.T) {
	capacity := 10
	open := &model.Event{ID: uuid.New(), Status: model.EventStatusPublished, CurrentParticipants: 5, Capacity: &capacity}
	done := &model.Event{ID: uuid.New(), Status: model.EventStatusCompleted}
	f := newEventFixture(open, done)

	req := model.UpdateEventRequest(createRequest())
	if _, err := f.svc.Update(context.Background(), done.ID, req); !errors.Is(err, ErrEventLocked) {
		t.Errorf("completed event err = %v", err)
	}

	small := 3
	req.Capacity = &small
	if _, err := f.svc.Update(context.Background(), open.ID, req); !errors.Is(err, ErrCapacityBelowCount) {
		t.Errorf("shrinking capacity err = %v", err)
	}

	big := 50
	req.Capacity = &big
	e, err := f.svc.Update(context.Background(), open.ID, req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *e.Capacity != 50 || e.Title != "Blood Donation Camp" {
		t.Errorf("event = %+v", e)
	}
}

func TestEventUpdateStatus_Transitions(t *testing.T) {
	e := &model.Event{ID: uuid.New(), Title: "Clean Drive", Status: model.EventStatusDraft}
	f := newEventFixture(e)
	ctx := context.Background()

	if _, err := f.svc.UpdateStatus(ctx, e.ID, model.EventStatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("draft → completed err = %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, e.ID, model.EventStatusPublished); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.broadcasts) != 1 || f.notifier.broadcasts[0].Type != model.NotificationEventPublished {
		t.Errorf("broadcasts = %+v", f.notifier.broadcasts)
	}

	if _, err := f.svc.UpdateStatus(ctx, uuid.New(), model.EventStatusPublished); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("unknown event err = %v", err)
	}
}

func TestEventComplete_AwardsHoursAndQueuesDispatch(t *testing.T) {
	e := &model.Event{
		ID: uuid.New(), Title: "Clean Drive", Status: model.EventStatusOngoing, HoursAwarded: 4,
		Certificate: model.CertificateConfig{TemplateURL: "mem://t.pdf", AutoSend: true},
	}
	f := newEventFixture(e)
	f.participations.items = []*model.Participation{
		{ID: uuid.New(), EventID: e.ID, StudentID: 1, Status: model.ParticipationAttended},
		{ID: uuid.New(), EventID: e.ID, StudentID: 2, Status: model.ParticipationApproved},
		{ID: uuid.New(), EventID: e.ID, StudentID: 3, Status: model.ParticipationAttended},
	}

	got, err := f.svc.UpdateStatus(context.Background(), e.ID, model.EventStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != model.EventStatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
	if f.participations.items[0].Status != model.ParticipationCompleted || f.participations.items[0].VolunteerHours != 4 {
		t.Errorf("attended participation = %+v", f.participations.items[0])
	}
	if f.participations.items[1].Status != model.ParticipationApproved {
		t.Error("approved no-show must not be completed")
	}
	if len(f.students.recomputed) != 2 {
		t.Errorf("recomputed = %v", f.students.recomputed)
	}
	jobs := f.queue.jobs[config.WorkerKey.CertificateDispatchQueue]
	if len(jobs) != 1 || jobs[0] != e.ID.String() {
		t.Errorf("dispatch queue = %v", jobs)
	}
}

func TestEventComplete_NoAutoSend(t *testing.T) {
	e := &model.Event{ID: uuid.New(), Status: model.EventStatusOngoing,
		Certificate: model.CertificateConfig{TemplateURL: "mem://t.pdf"}}
	f := newEventFixture(e)
	if _, err := f.svc.UpdateStatus(context.Background(), e.ID, model.EventStatusCompleted); err != nil {
		t.Fatal(err)
	}
	if len(f.queue.jobs) != 0 {
		t.Errorf("queued without auto-send: %v", f.queue.jobs)
	}
}

func TestEventCancel_NotifiesOpenRegistrations(t *testing.T) {
	e := &model.Event{ID: uuid.New(), Title: "Clean Drive", Status: model.EventStatusPublished}
	f := newEventFixture(e)
	f.participations.items = []*model.Participation{
		{ID: uuid.New(), EventID: e.ID, StudentID: 1, Status: model.ParticipationPending},
		{ID: uuid.New(), EventID: e.ID, StudentID: 2, Status: model.ParticipationRejected},
		{ID: uuid.New(), EventID: e.ID, StudentID: 3, Status: model.ParticipationApproved},
	}

	if _, err := f.svc.UpdateStatus(context.Background(), e.ID, model.EventStatusCancelled); err != nil {
		t.Fatal(err)
	}
	ids := f.notifier.many[model.NotificationEventCancelled]
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("notified = %v", ids)
	}
	if f.participations.items[1].Status != model.ParticipationRejected {
		t.Error("rejected participation should be untouched")
	}
}

func TestEventDelete(t *testing.T) {
	draft := &model.Event{ID: uuid.New(), Status: model.EventStatusDraft}
	live := &model.Event{ID: uuid.New(), Status: model.EventStatusOngoing}
	f := newEventFixture(draft, live)

	if err := f.svc.Delete(context.Background(), live.ID); !errors.Is(err, ErrEventLocked) {
		t.Errorf("ongoing delete err = %v", err)
	}
	if err := f.svc.Delete(context.Background(), draft.ID); err != nil {
		t.Errorf("draft delete: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), draft.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestEventList_Pagination(t *testing.T) {
	var events []*model.Event
	for i := 0; i < 25; i++ {
		events = append(events, &model.Event{ID: uuid.New()})
	}
	f := newEventFixture(events...)

	list, page, err := f.svc.List(context.Background(), model.EventFilter{}, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 5 || page.TotalItems != 25 || page.TotalPages != 3 {
		t.Errorf("len = %d pagination = %+v", len(list), page)
	}

	_, page, _ = f.svc.List(context.Background(), model.EventFilter{}, 0, 1000)
	if page.Page != 1 || page.PerPage != 100 {
		t.Errorf("bounds not clamped: %+v", page)
	}
}
