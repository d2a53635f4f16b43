package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/storage"
)

// ─── Events ─────────────────────────────────────────────────────────────

type fakeEventStore struct {
	mu          sync.Mutex
	events      map[uuid.UUID]*model.Event
	latchCalls  int
	latchErr    error
	getCalls    int
	savedFields certificate.Fields
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	f := &fakeEventStore{events: map[uuid.UUID]*model.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventStore) MarkCertificatesSent(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latchCalls++
	if f.latchErr != nil {
		return false, f.latchErr
	}
	e := f.events[id]
	if e.CertificatesSent {
		return false, nil
	}
	e.CertificatesSent = true
	return true, nil
}

func (f *fakeEventStore) SaveCertificateFields(_ context.Context, id uuid.UUID, fields certificate.Fields, autoSend bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Certificate.Fields = fields
	e.Certificate.AutoSend = autoSend
	f.savedFields = fields
	return nil
}

func (f *fakeEventStore) SetCertificateField(_ context.Context, id uuid.UUID, key certificate.FieldKey, placement *certificate.Placement) (certificate.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return certificate.Fields{}, repository.ErrNotFound
	}
	if err := e.Certificate.Fields.Set(key, placement); err != nil {
		return certificate.Fields{}, err
	}
	f.savedFields = e.Certificate.Fields
	return e.Certificate.Fields, nil
}

func (f *fakeEventStore) SetTemplate(_ context.Context, id uuid.UUID, url, storageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Certificate.TemplateURL = url
	e.Certificate.TemplateID = storageID
	return nil
}

// ─── Participations ─────────────────────────────────────────────────────

type fakeParticipationStore struct {
	mu        sync.Mutex
	items     []*model.Participation
	listCalls int
}

func (f *fakeParticipationStore) GetByID(_ context.Context, id uuid.UUID) (*model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeParticipationStore) ListCertificateRecipients(_ context.Context, eventID uuid.UUID, onlyFailed bool) ([]model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := []model.Participation{}
	for _, p := range f.items {
		if p.EventID != eventID || !p.Status.QualifiesForCertificate() {
			continue
		}
		if onlyFailed && p.CertificateStatus != model.DeliveryFailed {
			continue
		}
		if !onlyFailed && p.CertificateStatus == model.DeliverySent {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeParticipationStore) MarkCertificateSent(_ context.Context, id uuid.UUID, url, storageID string) error {
	return f.update(id, func(p *model.Participation) {
		p.CertificateStatus = model.DeliverySent
		p.CertificateURL = url
		p.CertificateID = storageID
		p.CertificateError = ""
	})
}

func (f *fakeParticipationStore) MarkCertificateFailed(_ context.Context, id uuid.UUID, reason string) error {
	return f.update(id, func(p *model.Participation) {
		p.CertificateStatus = model.DeliveryFailed
		p.CertificateError = reason
	})
}

func (f *fakeParticipationStore) update(id uuid.UUID, fn func(*model.Participation)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			fn(p)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeParticipationStore) byName(name string) *model.Participation {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.StudentName == name {
			return p
		}
	}
	return nil
}

// ─── Storage ────────────────────────────────────────────────────────────

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	fetchCalls int
	fetchErr   error
	uploadErr  error
	seq        int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) put(id string, data []byte) string {
	f.objects[id] = data
	return "mem://" + id
}

func (f *fakeStorage) Upload(_ context.Context, data []byte, folder, filename string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return storage.Object{}, f.uploadErr
	}
	f.seq++
	id := fmt.Sprintf("%s/%d-%s", folder, f.seq, filename)
	return storage.Object{URL: f.put(id, data), ID: id}, nil
}

func (f *fakeStorage) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if _, ok := f.objects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.objects, id)
	return nil
}

func (f *fakeStorage) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[url[len("mem://"):]]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

// ─── Renderer ───────────────────────────────────────────────────────────

type fakeRenderer struct {
	mu          sync.Mutex
	info        certificate.TemplateInfo
	inspectErr  error
	failFor     map[string]bool
	renderCalls int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{info: certificate.TemplateInfo{Pages: 1, Size: certificate.PageSize{Width: 842, Height: 595}}}
}

func (f *fakeRenderer) Inspect([]byte) (certificate.TemplateInfo, error) {
	return f.info, f.inspectErr
}

func (f *fakeRenderer) Render(_ []byte, _ certificate.Fields, data certificate.Data) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderCalls++
	if f.failFor[data.StudentName] {
		return nil, errors.New("font glyph missing")
	}
	return []byte("%PDF-1.4 " + data.StudentName), nil
}

// ─── Mailer ─────────────────────────────────────────────────────────────

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[msg.To] {
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

// ─── Notifier ───────────────────────────────────────────────────────────

type fakeNotifier struct {
	mu         sync.Mutex
	notified   []model.Notification
	many       map[model.NotificationType][]int
	broadcasts []model.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{many: map[model.NotificationType][]int{}}
}

func (f *fakeNotifier) Notify(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, *n)
	return nil
}

func (f *fakeNotifier) NotifyMany(_ context.Context, tmpl model.Notification, ids []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.many[tmpl.Type] = append(f.many[tmpl.Type], ids...)
	return nil
}

func (f *fakeNotifier) Broadcast(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, n)
	return nil
}

// ─── Locker / Publisher ─────────────────────────────────────────────────

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return func() {}, false, nil
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		delete(f.held, key)
		f.mu.Unlock()
	}, true, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newFakePublisher() *fakePublisher { return &fakePublisher{messages: map[string][]string{}} }

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := message.(type) {
	case []byte:
		f.messages[channel] = append(f.messages[channel], string(m))
	case string:
		f.messages[channel] = append(f.messages[channel], m)
	}
	return redis.NewIntResult(1, nil)
}

func (f *fakePublisher) count(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[channel])
}

// noTx runs fn without a real transaction; fake stores ignore the querier.
func noTx(_ context.Context, fn func(q repository.Querier) error) error {
	return fn(nil)
}

func (f *fakeEventStore) GetForUpdate(ctx context.Context, _ repository.Querier, id uuid.UUID) (*model.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEventStore) ListPaginated(_ context.Context, _ model.EventFilter, limit, offset int) ([]model.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Event{}
	for _, e := range f.events {
		out = append(out, *e)
	}
	total := len(out)
	if offset >= total {
		return []model.Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (f *fakeEventStore) Create(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uuid.New()
	e.Status = model.EventStatusDraft
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEventStore) Update(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEventStore) UpdateStatus(_ context.Context, _ repository.Querier, id uuid.UUID, status model.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	return nil
}

func (f *fakeEventStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventStore) ReserveSeat(_ context.Context, _ repository.Querier, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	if e.Capacity != nil && e.CurrentParticipants >= *e.Capacity {
		return repository.ErrEventFull
	}
	e.CurrentParticipants++
	return nil
}

func (f *fakeEventStore) ReleaseSeat(_ context.Context, _ repository.Querier, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.events[id]; e.CurrentParticipants > 0 {
		e.CurrentParticipants--
	}
	return nil
}

func (f *fakeParticipationStore) Create(_ context.Context, _ repository.Querier, p *model.Participation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.StudentID == p.StudentID && existing.EventID == p.EventID {
			return repository.ErrDuplicateParticipation
		}
	}
	p.ID = uuid.New()
	p.Status = model.ParticipationPending
	p.CertificateStatus = model.DeliveryPending
	p.Evidence = []model.Evidence{}
	cp := *p
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeParticipationStore) ListByEvent(_ context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Participation{}
	for _, p := range f.items {
		if p.EventID == eventID && (status == nil || p.Status == *status) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeParticipationStore) ListByStudent(_ context.Context, studentID int) ([]model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Participation{}
	for _, p := range f.items {
		if p.StudentID == studentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeParticipationStore) UpdateStatus(_ context.Context, _ repository.Querier, id uuid.UUID, status model.ParticipationStatus, reason string) error {
	return f.update(id, func(p *model.Participation) {
		p.Status = status
		p.RejectionReason = reason
	})
}

func (f *fakeParticipationStore) SetEvidence(_ context.Context, id uuid.UUID, evidence []model.Evidence) error {
	return f.update(id, func(p *model.Participation) { p.Evidence = evidence })
}

func (f *fakeParticipationStore) SetReport(_ context.Context, id uuid.UUID, description, report string, source model.ReportSource) error {
	return f.update(id, func(p *model.Participation) {
		p.Description = description
		p.AIReport = report
		p.ReportSource = source
	})
}

func (f *fakeParticipationStore) CompleteAttended(_ context.Context, _ repository.Querier, eventID uuid.UUID, hours float64) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []int{}
	for _, p := range f.items {
		if p.EventID == eventID && p.Status == model.ParticipationAttended {
			p.Status = model.ParticipationCompleted
			p.VolunteerHours = hours
			ids = append(ids, p.StudentID)
		}
	}
	return ids, nil
}

func (f *fakeParticipationStore) CancelOpen(_ context.Context, _ repository.Querier, eventID uuid.UUID) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []int{}
	for _, p := range f.items {
		if p.EventID == eventID && (p.Status == model.ParticipationPending || p.Status == model.ParticipationApproved) {
			p.Status = model.ParticipationCancelled
			ids = append(ids, p.StudentID)
		}
	}
	return ids, nil
}

// ─── Students ───────────────────────────────────────────────────────────

type fakeStudentStore struct {
	mu         sync.Mutex
	students   map[int]*model.Student
	recomputed []int
	nextID     int
}

func newFakeStudentStore(students ...*model.Student) *fakeStudentStore {
	f := &fakeStudentStore{students: map[int]*model.Student{}, nextID: 100}
	for _, s := range students {
		f.students[s.ID] = s
	}
	return f
}

func (f *fakeStudentStore) GetByID(_ context.Context, id int) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudentStore) GetByRegNo(_ context.Context, regNo string) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if s.RegistrationNumber == regNo {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStudentStore) RecalculateVolunteerHours(_ context.Context, _ repository.Querier, ids []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recomputed = append(f.recomputed, ids...)
	return nil
}

func (f *fakeStudentStore) ListPaginated(_ context.Context, _ model.StudentFilter, limit, offset int) ([]model.Student, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.students))
	for id := range f.students {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := []model.Student{}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		out = append(out, *f.students[ids[i]])
	}
	return out, len(ids), nil
}

func (f *fakeStudentStore) Create(_ context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.students {
		if existing.RegistrationNumber == s.RegistrationNumber || existing.Email == s.Email {
			return repository.ErrDuplicateRegNo
		}
	}
	f.nextID++
	s.ID = f.nextID
	s.IsEligible = s.AttendancePercentage != nil && *s.AttendancePercentage >= EligibilityThreshold
	cp := *s
	f.students[s.ID] = &cp
	return nil
}

func (f *fakeStudentStore) Update(_ context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.students[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range f.students {
		if id != s.ID && existing.RegistrationNumber == s.RegistrationNumber {
			return repository.ErrDuplicateRegNo
		}
	}
	hash := current.PasswordHash
	cp := *s
	cp.PasswordHash = hash
	f.students[s.ID] = &cp
	return nil
}

func (f *fakeStudentStore) UpdatePassword(_ context.Context, id int, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.students[id]; ok {
		s.PasswordHash = hash
	}
	return nil
}

func (f *fakeStudentStore) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.students, id)
	return nil
}

// ─── Queue ──────────────────────────────────────────────────────────────

type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string][]string
}

func newFakeQueue() *fakeQueue { return &fakeQueue{jobs: map[string][]string{}} }

func (f *fakeQueue) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		switch m := v.(type) {
		case string:
			f.jobs[key] = append(f.jobs[key], m)
		case []byte:
			f.jobs[key] = append(f.jobs[key], string(m))
		default:
			f.jobs[key] = append(f.jobs[key], fmt.Sprint(m))
		}
	}
	return redis.NewIntResult(int64(len(f.jobs[key])), nil)
}
