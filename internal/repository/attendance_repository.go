package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// AttendanceRepository handles monthly attendance records.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Apply upserts the record on (student, month, year) and overwrites the
// student's attendance percentage in one transaction. It returns the
// student's eligibility as recomputed by the database.
func (r *AttendanceRepository) Apply(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	var eligible bool
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO attendance_records (student_id, month, year, classes_attended, total_classes, percentage)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (student_id, month, year) DO UPDATE
			 SET classes_attended = EXCLUDED.classes_attended,
			     total_classes = EXCLUDED.total_classes,
			     percentage = EXCLUDED.percentage,
			     updated_at = CURRENT_TIMESTAMP
			 RETURNING id, created_at, updated_at`,
			rec.StudentID, rec.Month, rec.Year, rec.ClassesAttended, rec.TotalClasses, rec.Percentage,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return err
		}

		return notFound(tx.QueryRow(ctx,
			`UPDATE students SET attendance_percentage = $1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $2 RETURNING is_eligible`,
			rec.Percentage, rec.StudentID,
		).Scan(&eligible))
	})
	return eligible, err
}

// ListByStudent returns a student's records, newest month first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID int) ([]model.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, month, year, classes_attended, total_classes, percentage::float8, created_at, updated_at
		 FROM attendance_records WHERE student_id = $1
		 ORDER BY year DESC, month DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.AttendanceRecord{}
	for rows.Next() {
		var a model.AttendanceRecord
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Month, &a.Year, &a.ClassesAttended, &a.TotalClasses, &a.Percentage, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
