package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

type studentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByRegNo(ctx context.Context, regNo string) (*model.Student, error)
	ListPaginated(ctx context.Context, f model.StudentFilter, limit, offset int) ([]model.Student, int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Delete(ctx context.Context, id int) error
}

// StudentEligibility is a student's current standing against the threshold.
type StudentEligibility struct {
	model.Eligibility
	AttendancePercentage *float64 `json:"attendance_percentage"`
	HasAttendanceData    bool     `json:"has_attendance_data"`
}

// StudentService handles student business logic.
type StudentService struct {
	students studentStore
	auth     *AuthService
	log      zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students *repository.StudentRepository, auth *AuthService, log zerolog.Logger) *StudentService {
	return newStudentService(students, auth, log)
}

func newStudentService(students studentStore, auth *AuthService, log zerolog.Logger) *StudentService {
	return &StudentService{
		students: students,
		auth:     auth,
		log:      log.With().Str("component", "student_service").Logger(),
	}
}

// GetByRegNo retrieves a student by registration number.
func (s *StudentService) GetByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	st, err := s.students.GetByRegNo(ctx, validator.NormalizeRegNo(regNo))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	st, err := s.students.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// ListStudents retrieves students with pagination and optional filters.
func (s *StudentService) ListStudents(ctx context.Context, f model.StudentFilter, page, perPage int) ([]model.Student, *response.Pagination, error) {
	page, perPage, limit, offset := pageBounds(page, perPage)

	students, total, err := s.students.ListPaginated(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new student with a hashed password.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	st := &model.Student{
		RegistrationNumber:   validator.NormalizeRegNo(req.RegistrationNumber),
		Name:                 strings.TrimSpace(req.Name),
		Email:                strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:         hash,
		Department:           req.Department,
		Year:                 req.Year,
		AttendancePercentage: clampPtr(req.AttendancePercentage),
	}
	if err := s.students.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicateRegNo) {
			return nil, ErrDuplicateStudent
		}
		return nil, err
	}
	return st, nil
}

// Update modifies a student's details. A nil attendance percentage keeps the
// recorded value; a non-nil one is a manual override.
func (s *StudentService) Update(ctx context.Context, id int, req model.UpdateStudentRequest) (*model.Student, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current.RegistrationNumber = validator.NormalizeRegNo(req.RegistrationNumber)
	current.Name = strings.TrimSpace(req.Name)
	current.Email = strings.ToLower(strings.TrimSpace(req.Email))
	current.Department = req.Department
	current.Year = req.Year
	if req.AttendancePercentage != nil {
		current.AttendancePercentage = clampPtr(req.AttendancePercentage)
		s.log.Info().Int("student_id", id).Float64("percentage", *current.AttendancePercentage).Msg("Attendance overridden")
	}

	if err := s.students.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRegNo):
			return nil, ErrDuplicateStudent
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.students.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// Delete removes a student by ID.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	err := s.students.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStudentNotFound
	}
	return err
}

// Eligibility reports a student's standing. Missing attendance data is not an
// error here; it is reported as ineligible with HasAttendanceData false.
func (s *StudentService) Eligibility(ctx context.Context, id int) (*StudentEligibility, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &StudentEligibility{AttendancePercentage: st.AttendancePercentage}
	elig, err := CheckEligibility(st.AttendancePercentage)
	switch {
	case errors.Is(err, ErrNoAttendanceData):
		out.Eligibility = model.Eligibility{Threshold: EligibilityThreshold}
		return out, nil
	case err != nil:
		return nil, err
	}
	out.Eligibility = elig
	out.HasAttendanceData = true
	return out, nil
}

func clampPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := ClampPercentage(*p)
	return &v
}
