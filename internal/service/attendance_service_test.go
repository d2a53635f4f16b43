package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

type fakeStudentLookup struct {
	byRegNo map[string]*model.Student
	err     error
}

func (f *fakeStudentLookup) GetByRegNo(_ context.Context, regNo string) (*model.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.byRegNo[regNo]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

type attendanceKey struct{ student, month, year int }

type fakeAttendanceStore struct {
	records  map[attendanceKey]model.AttendanceRecord
	students map[int]*model.Student
	failFor  int
}

func newFakeAttendanceStore(students ...*model.Student) *fakeAttendanceStore {
	f := &fakeAttendanceStore{records: map[attendanceKey]model.AttendanceRecord{}, students: map[int]*model.Student{}}
	for _, s := range students {
		f.students[s.ID] = s
	}
	return f
}

func (f *fakeAttendanceStore) Apply(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	if f.failFor != 0 && rec.StudentID == f.failFor {
		return false, errors.New("deadlock detected")
	}
	f.records[attendanceKey{rec.StudentID, rec.Month, rec.Year}] = *rec
	s := f.students[rec.StudentID]
	pct := rec.Percentage
	s.AttendancePercentage = &pct
	s.IsEligible = pct >= EligibilityThreshold
	return s.IsEligible, nil
}

func (f *fakeAttendanceStore) ListByStudent(_ context.Context, studentID int) ([]model.AttendanceRecord, error) {
	var out []model.AttendanceRecord
	for k, r := range f.records {
		if k.student == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestAttendanceService(students ...*model.Student) (*AttendanceService, *fakeAttendanceStore) {
	lookup := &fakeStudentLookup{byRegNo: map[string]*model.Student{}}
	for _, s := range students {
		lookup.byRegNo[s.RegistrationNumber] = s
	}
	store := newFakeAttendanceStore(students...)
	svc := newAttendanceService(lookup, store, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestImport_ComputesPercentageAndEligibility(t *testing.T) {
	s := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	svc, store := newTestAttendanceService(s)

	res := svc.Import(context.Background(), model.AttendancePeriod{}, []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", ClassesAttended: ptr(18), TotalClasses: ptr(20)},
	})

	if res.Successful != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if s.AttendancePercentage == nil || *s.AttendancePercentage != 90 || !s.IsEligible {
		t.Errorf("student = pct %v eligible %v, want 90 true", s.AttendancePercentage, s.IsEligible)
	}
	rec, ok := store.records[attendanceKey{1, 3, 2026}]
	if !ok {
		t.Fatal("record not stored under the default period")
	}
	if rec.Percentage != 90 {
		t.Errorf("record percentage = %v", rec.Percentage)
	}
}

func TestImport_NormalisesRegNo(t *testing.T) {
	s := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	svc, _ := newTestAttendanceService(s)

	res := svc.Import(context.Background(), model.AttendancePeriod{Month: 1, Year: 2026}, []model.AttendanceRow{
		{RegistrationNumber: "  21cs0001 ", Percentage: ptr(80.0)},
	})
	if res.Successful != 1 {
		t.Fatalf("lowercase/padded regno not matched: %+v", res)
	}
}

func TestImport_ZeroTotalYieldsZero(t *testing.T) {
	s := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	svc, _ := newTestAttendanceService(s)

	res := svc.Import(context.Background(), model.AttendancePeriod{}, []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", ClassesAttended: ptr(0), TotalClasses: ptr(0)},
	})
	if res.Successful != 1 {
		t.Fatalf("result = %+v", res)
	}
	if *s.AttendancePercentage != 0 || s.IsEligible {
		t.Errorf("pct = %v eligible = %v", *s.AttendancePercentage, s.IsEligible)
	}
}

func TestImport_NotFoundContinues(t *testing.T) {
	a := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	b := &model.Student{ID: 2, RegistrationNumber: "21CS0002"}
	svc, _ := newTestAttendanceService(a, b)

	rows := []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", Percentage: ptr(80.0)},
		{RegistrationNumber: "99XX0001", Percentage: ptr(80.0)},
		{RegistrationNumber: "21CS0002", Percentage: ptr(60.0)},
		{RegistrationNumber: "99XX0002", Percentage: ptr(80.0)},
		{RegistrationNumber: "99XX0003", ClassesAttended: ptr(1), TotalClasses: ptr(2)},
	}
	res := svc.Import(context.Background(), model.AttendancePeriod{}, rows)

	if len(res.NotFound) != 3 {
		t.Errorf("NotFound = %v, want 3 entries", res.NotFound)
	}
	if res.Total != 5 || res.Successful != 2 || res.Failed != 3 {
		t.Errorf("result = %+v", res)
	}
	if b.IsEligible {
		t.Error("60% student should not be eligible")
	}
}

func TestImport_UpsertOverwrites(t *testing.T) {
	s := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	svc, store := newTestAttendanceService(s)
	period := model.AttendancePeriod{Month: 2, Year: 2026}

	svc.Import(context.Background(), period, []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", ClassesAttended: ptr(10), TotalClasses: ptr(20)},
	})
	svc.Import(context.Background(), period, []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", ClassesAttended: ptr(19), TotalClasses: ptr(20)},
	})

	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}
	if got := store.records[attendanceKey{1, 2, 2026}].Percentage; got != 95 {
		t.Errorf("percentage = %v, want 95", got)
	}
}

func TestImport_RowValidation(t *testing.T) {
	s := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	svc, _ := newTestAttendanceService(s)

	rows := []model.AttendanceRow{
		{RegistrationNumber: "", Percentage: ptr(80.0)},
		{RegistrationNumber: "21CS0001"},
		{RegistrationNumber: "21CS0001", ClassesAttended: ptr(-1), TotalClasses: ptr(10)},
		{RegistrationNumber: "21CS0001", Percentage: ptr(80.0), Month: ptr(13)},
		{RegistrationNumber: "21CS0001", Percentage: ptr(140.0)},
	}
	res := svc.Import(context.Background(), model.AttendancePeriod{}, rows)

	if res.Failed != 4 || res.Successful != 1 {
		t.Fatalf("result = %+v", res)
	}
	wantRows := []int{1, 2, 3, 4}
	for i, e := range res.Errors {
		if e.Row != wantRows[i] {
			t.Errorf("error %d on row %d, want %d", i, e.Row, wantRows[i])
		}
	}
	if *s.AttendancePercentage != 100 {
		t.Errorf("percentage 140 should clamp to 100, got %v", *s.AttendancePercentage)
	}
}

func TestImport_StoreFailureIsolatedToRow(t *testing.T) {
	a := &model.Student{ID: 1, RegistrationNumber: "21CS0001"}
	b := &model.Student{ID: 2, RegistrationNumber: "21CS0002"}
	svc, store := newTestAttendanceService(a, b)
	store.failFor = 1

	res := svc.Import(context.Background(), model.AttendancePeriod{}, []model.AttendanceRow{
		{RegistrationNumber: "21CS0001", Percentage: ptr(80.0)},
		{RegistrationNumber: "21CS0002", Percentage: ptr(80.0)},
	})
	if res.Successful != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if a.AttendancePercentage != nil {
		t.Error("failed row must not update the student")
	}
}
