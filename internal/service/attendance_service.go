package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

type studentLookup interface {
	GetByRegNo(ctx context.Context, regNo string) (*model.Student, error)
}

type attendanceStore interface {
	Apply(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.AttendanceRecord, error)
}

// AttendanceService imports monthly attendance and keeps eligibility current.
type AttendanceService struct {
	students   studentLookup
	attendance attendanceStore
	now        func() time.Time
	log        zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(students *repository.StudentRepository, attendance *repository.AttendanceRepository, log zerolog.Logger) *AttendanceService {
	return newAttendanceService(students, attendance, log)
}

func newAttendanceService(students studentLookup, attendance attendanceStore, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		students:   students,
		attendance: attendance,
		now:        time.Now,
		log:        log.With().Str("component", "attendance_service").Logger(),
	}
}

// Import applies every row independently. A bad or unknown row is recorded
// in the result and never aborts the rest of the import.
func (s *AttendanceService) Import(ctx context.Context, period model.AttendancePeriod, rows []model.AttendanceRow) model.ImportResult {
	now := s.now()
	if period.Month == 0 {
		period.Month = int(now.Month())
	}
	if period.Year == 0 {
		period.Year = now.Year()
	}

	result := model.ImportResult{
		Total:    len(rows),
		NotFound: []string{},
		Errors:   []model.ImportRowError{},
	}

	fail := func(row int, regNo string, err error) {
		result.Failed++
		result.Errors = append(result.Errors, model.ImportRowError{Row: row, RegistrationNumber: regNo, Error: err.Error()})
	}

	for i, row := range rows {
		rowNum := i + 1
		regNo := validator.NormalizeRegNo(row.RegistrationNumber)

		if err := ctx.Err(); err != nil {
			fail(rowNum, regNo, err)
			metrics.AttendanceRowsImported.WithLabelValues("error").Inc()
			continue
		}

		rec, err := buildRecord(row, period)
		if err != nil {
			fail(rowNum, regNo, err)
			metrics.AttendanceRowsImported.WithLabelValues("invalid").Inc()
			continue
		}

		student, err := s.students.GetByRegNo(ctx, regNo)
		if errors.Is(err, repository.ErrNotFound) {
			result.NotFound = append(result.NotFound, regNo)
			fail(rowNum, regNo, ErrStudentNotFound)
			metrics.AttendanceRowsImported.WithLabelValues("not_found").Inc()
			continue
		}
		if err != nil {
			s.log.Error().Err(err).Str("registration_number", regNo).Msg("Failed to look up student")
			fail(rowNum, regNo, errors.New("lookup failed"))
			metrics.AttendanceRowsImported.WithLabelValues("error").Inc()
			continue
		}

		rec.StudentID = student.ID
		eligible, err := s.attendance.Apply(ctx, rec)
		if err != nil {
			s.log.Error().Err(err).Int("student_id", student.ID).Int("month", rec.Month).Int("year", rec.Year).Msg("Failed to apply attendance row")
			fail(rowNum, regNo, errors.New("could not save attendance"))
			metrics.AttendanceRowsImported.WithLabelValues("error").Inc()
			continue
		}

		result.Successful++
		metrics.AttendanceRowsImported.WithLabelValues("ok").Inc()
		s.log.Debug().
			Int("student_id", student.ID).
			Float64("percentage", rec.Percentage).
			Bool("eligible", eligible).
			Msg("Attendance applied")
	}

	s.log.Info().
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("not_found", len(result.NotFound)).
		Msg("Attendance import finished")

	return result
}

// History returns a student's monthly records.
func (s *AttendanceService) History(ctx context.Context, studentID int) ([]model.AttendanceRecord, error) {
	return s.attendance.ListByStudent(ctx, studentID)
}

// buildRecord validates a row and computes its percentage.
func buildRecord(row model.AttendanceRow, period model.AttendancePeriod) (*model.AttendanceRecord, error) {
	if validator.NormalizeRegNo(row.RegistrationNumber) == "" {
		return nil, ErrMissingRegNo
	}

	rec := &model.AttendanceRecord{Month: period.Month, Year: period.Year}
	if row.Month != nil {
		rec.Month = *row.Month
	}
	if row.Year != nil {
		rec.Year = *row.Year
	}
	if rec.Month < 1 || rec.Month > 12 {
		return nil, ErrInvalidPeriod
	}
	if rec.Year < 2000 || rec.Year > 2100 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrValidation, rec.Year)
	}

	switch {
	case row.ClassesAttended != nil && row.TotalClasses != nil:
		if *row.ClassesAttended < 0 || *row.TotalClasses < 0 {
			return nil, ErrNegativeCounts
		}
		rec.ClassesAttended = row.ClassesAttended
		rec.TotalClasses = row.TotalClasses
		rec.Percentage = ComputePercentage(*row.ClassesAttended, *row.TotalClasses)
	case row.Percentage != nil:
		if math.IsNaN(*row.Percentage) || math.IsInf(*row.Percentage, 0) {
			return nil, ErrInvalidPercentage
		}
		rec.Percentage = ClampPercentage(*row.Percentage)
	default:
		return nil, ErrMissingAttendance
	}
	return rec, nil
}
