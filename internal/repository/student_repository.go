package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

const studentColumns = `id, registration_number, name, email, password_hash, department, year,
	attendance_percentage::float8, total_volunteer_hours::float8, is_eligible, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.RegistrationNumber, &s.Name, &s.Email, &s.PasswordHash, &s.Department, &s.Year,
		&s.AttendancePercentage, &s.TotalVolunteerHours, &s.IsEligible, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// GetByRegNo retrieves a student by their unique, uppercased registration number.
func (r *StudentRepository) GetByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE registration_number = $1`, regNo))
}

// ListPaginated retrieves students with pagination and optional filters.
func (r *StudentRepository) ListPaginated(ctx context.Context, f model.StudentFilter, limit, offset int) ([]model.Student, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if f.Department != nil {
		where += ` AND department = $` + strconv.Itoa(argIdx)
		args = append(args, *f.Department)
		argIdx++
	}
	if f.Year != nil {
		where += ` AND year = $` + strconv.Itoa(argIdx)
		args = append(args, *f.Year)
		argIdx++
	}
	if f.Eligible != nil {
		where += ` AND is_eligible = $` + strconv.Itoa(argIdx)
		args = append(args, *f.Eligible)
		argIdx++
	}
	if f.Search != "" {
		where += ` AND (name ILIKE $` + strconv.Itoa(argIdx) + ` OR registration_number ILIKE $` + strconv.Itoa(argIdx) + `)`
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	query := `SELECT ` + studentColumns + ` FROM students` + where +
		` ORDER BY registration_number LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (registration_number, name, email, password_hash, department, year, attendance_percentage)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, is_eligible, created_at, updated_at`,
		s.RegistrationNumber, s.Name, s.Email, s.PasswordHash, s.Department, s.Year, s.AttendancePercentage,
	).Scan(&s.ID, &s.IsEligible, &s.CreatedAt, &s.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateRegNo
	}
	return err
}

// Update modifies a student's profile and attendance percentage (excluding password).
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE students
		 SET registration_number = $1, name = $2, email = $3, department = $4, year = $5,
		     attendance_percentage = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7
		 RETURNING is_eligible, updated_at`,
		s.RegistrationNumber, s.Name, s.Email, s.Department, s.Year, s.AttendancePercentage, s.ID,
	).Scan(&s.IsEligible, &s.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateRegNo
	}
	return notFound(err)
}

// UpdatePassword updates a student's password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

// Delete removes a student by ID. Attendance and participations cascade.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecalculateVolunteerHours sets total_volunteer_hours to the sum of completed participations.
func (r *StudentRepository) RecalculateVolunteerHours(ctx context.Context, q Querier, studentIDs []int) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`UPDATE students s
		 SET total_volunteer_hours = COALESCE((
		         SELECT SUM(p.volunteer_hours) FROM participations p
		         WHERE p.student_id = s.id AND p.status = 'completed'), 0),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE s.id = ANY($1)`,
		studentIDs,
	)
	return err
}

// BulkCreate inserts seed students with CopyFrom. A duplicate fails the whole batch.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []model.Student) (int64, error) {
	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"students"},
		[]string{"registration_number", "name", "email", "password_hash", "department", "year", "attendance_percentage"},
		pgx.CopyFromSlice(len(students), func(i int) ([]interface{}, error) {
			s := students[i]
			return []interface{}{s.RegistrationNumber, s.Name, s.Email, s.PasswordHash, string(s.Department), s.Year, s.AttendancePercentage}, nil
		}),
	)
}
