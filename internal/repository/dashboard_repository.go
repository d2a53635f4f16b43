package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// DashboardCounts holds the headline numbers.
type DashboardCounts struct {
	TotalStudents         int `json:"total_students"`
	EligibleStudents      int `json:"eligible_students"`
	NoAttendanceData      int `json:"students_without_attendance"`
	PendingParticipations int `json:"pending_participations"`
	CertificatesSent      int `json:"certificates_sent"`
	CertificatesFailed    int `json:"certificates_failed"`
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (DashboardCounts, error) {
	var c DashboardCounts
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM students WHERE is_eligible),
			(SELECT COUNT(*) FROM students WHERE attendance_percentage IS NULL),
			(SELECT COUNT(*) FROM participations WHERE status = 'pending'),
			(SELECT COUNT(*) FROM participations WHERE certificate_status = 'sent'),
			(SELECT COUNT(*) FROM participations WHERE certificate_status = 'failed')`,
	).Scan(&c.TotalStudents, &c.EligibleStudents, &c.NoAttendanceData, &c.PendingParticipations, &c.CertificatesSent, &c.CertificatesFailed)
	return c, err
}

// GetEventStatusCounts retrieves the distribution of events by status.
func (r *DashboardRepository) GetEventStatusCounts(ctx context.Context) (map[model.EventStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.EventStatus]int)
	for rows.Next() {
		var status model.EventStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardUpcomingEvent represents minimal data for upcoming published events.
type DashboardUpcomingEvent struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	StartAt             time.Time `json:"start_at"`
	Capacity            *int      `json:"capacity"`
	CurrentParticipants int       `json:"current_participants"`
}

// GetUpcomingEvents retrieves the next N published events.
func (r *DashboardRepository) GetUpcomingEvents(ctx context.Context, limit int) ([]DashboardUpcomingEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, start_at, capacity, current_participants
		 FROM events
		 WHERE status = $1 AND start_at > NOW()
		 ORDER BY start_at ASC LIMIT $2`,
		model.EventStatusPublished, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []DashboardUpcomingEvent{}
	for rows.Next() {
		var e DashboardUpcomingEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.StartAt, &e.Capacity, &e.CurrentParticipants); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DepartmentEligibility is the eligible share of one department.
type DepartmentEligibility struct {
	Department model.Department `json:"department"`
	Total      int              `json:"total"`
	Eligible   int              `json:"eligible"`
}

// GetDepartmentEligibility groups eligibility by department.
func (r *DashboardRepository) GetDepartmentEligibility(ctx context.Context) ([]DepartmentEligibility, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT department, COUNT(*), COUNT(*) FILTER (WHERE is_eligible)
		 FROM students GROUP BY department ORDER BY department`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DepartmentEligibility{}
	for rows.Next() {
		var d DepartmentEligibility
		if err := rows.Scan(&d.Department, &d.Total, &d.Eligible); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
