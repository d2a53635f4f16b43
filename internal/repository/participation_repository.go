package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

const participationSelect = `SELECT p.id, p.student_id, p.event_id, p.status, p.description, p.evidence,
	p.volunteer_hours::float8, p.certificate_url, p.certificate_id, p.certificate_status, p.certificate_error,
	p.certificate_sent_at, p.ai_report, p.report_source, p.rejection_reason, p.created_at, p.updated_at,
	s.name, s.email, s.registration_number, e.title
	FROM participations p
	JOIN students s ON s.id = p.student_id
	JOIN events e ON e.id = p.event_id`

// ParticipationRepository handles participation data access.
type ParticipationRepository struct {
	pool *pgxpool.Pool
}

// NewParticipationRepository creates a new ParticipationRepository.
func NewParticipationRepository(pool *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{pool: pool}
}

func scanParticipation(row pgx.Row) (*model.Participation, error) {
	p := &model.Participation{}
	err := row.Scan(&p.ID, &p.StudentID, &p.EventID, &p.Status, &p.Description, &p.Evidence,
		&p.VolunteerHours, &p.CertificateURL, &p.CertificateID, &p.CertificateStatus, &p.CertificateError,
		&p.CertificateSentAt, &p.AIReport, &p.ReportSource, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt,
		&p.StudentName, &p.StudentEmail, &p.RegistrationNumber, &p.EventTitle)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ParticipationRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Participation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Participation{}
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a pending participation.
func (r *ParticipationRepository) Create(ctx context.Context, q Querier, p *model.Participation) error {
	err := q.QueryRow(ctx,
		`INSERT INTO participations (student_id, event_id, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, status, evidence, certificate_status, created_at, updated_at`,
		p.StudentID, p.EventID, p.Description,
	).Scan(&p.ID, &p.Status, &p.Evidence, &p.CertificateStatus, &p.CreatedAt, &p.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateParticipation
	}
	return err
}

// GetByID retrieves a participation with student and event details.
func (r *ParticipationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	return scanParticipation(r.pool.QueryRow(ctx, participationSelect+` WHERE p.id = $1`, id))
}

// ListByEvent lists an event's participations, optionally filtered by status.
func (r *ParticipationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, status *model.ParticipationStatus) ([]model.Participation, error) {
	if status != nil {
		return r.list(ctx, participationSelect+` WHERE p.event_id = $1 AND p.status = $2 ORDER BY s.name`, eventID, *status)
	}
	return r.list(ctx, participationSelect+` WHERE p.event_id = $1 ORDER BY s.name`, eventID)
}

// ListByStudent lists a student's participations, most recent event first.
func (r *ParticipationRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Participation, error) {
	return r.list(ctx, participationSelect+` WHERE p.student_id = $1 ORDER BY e.start_at DESC`, studentID)
}

// ListCertificateRecipients returns attended or completed participations that
// do not already hold a sent certificate. When onlyFailed is set, only those
// whose last delivery failed are returned.
func (r *ParticipationRepository) ListCertificateRecipients(ctx context.Context, eventID uuid.UUID, onlyFailed bool) ([]model.Participation, error) {
	statuses := make([]string, len(model.CertificateStatuses))
	for i, s := range model.CertificateStatuses {
		statuses[i] = string(s)
	}
	query := participationSelect + ` WHERE p.event_id = $1 AND p.status = ANY($2)`
	if onlyFailed {
		query += ` AND p.certificate_status = 'failed'`
	} else {
		query += ` AND p.certificate_status <> 'sent'`
	}
	return r.list(ctx, query+` ORDER BY s.name`, eventID, statuses)
}

// ListActiveStudentIDs returns students with approved or later participations in an event.
func (r *ParticipationRepository) ListActiveStudentIDs(ctx context.Context, eventID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM participations
		 WHERE event_id = $1 AND status IN ('approved', 'attended', 'completed')`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatus sets the participation status and rejection reason.
func (r *ParticipationRepository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.ParticipationStatus, reason string) error {
	tag, err := q.Exec(ctx,
		`UPDATE participations SET status = $1, rejection_reason = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`, status, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAttended moves every attended participation of the event to
// completed, awards hours and returns the affected students.
func (r *ParticipationRepository) CompleteAttended(ctx context.Context, q Querier, eventID uuid.UUID, hours float64) ([]int, error) {
	rows, err := q.Query(ctx,
		`UPDATE participations SET status = 'completed', volunteer_hours = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE event_id = $2 AND status = 'attended'
		 RETURNING student_id`, hours, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CancelOpen cancels pending and approved participations of a cancelled event.
func (r *ParticipationRepository) CancelOpen(ctx context.Context, q Querier, eventID uuid.UUID) ([]int, error) {
	rows, err := q.Query(ctx,
		`UPDATE participations SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		 WHERE event_id = $1 AND status IN ('pending', 'approved')
		 RETURNING student_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─── Certificate delivery ─────────────────────────────────────────────────

// MarkCertificateSent records a delivered certificate.
func (r *ParticipationRepository) MarkCertificateSent(ctx context.Context, id uuid.UUID, url, storageID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participations
		 SET certificate_url = $1, certificate_id = $2, certificate_status = 'sent', certificate_error = '',
		     certificate_sent_at = NOW(), updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`, url, storageID, id)
	return err
}

// MarkCertificateFailed records a failed delivery attempt.
func (r *ParticipationRepository) MarkCertificateFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participations SET certificate_status = 'failed', certificate_error = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2`, reason, id)
	return err
}

// ─── Evidence & reports ───────────────────────────────────────────────────

// SetEvidence replaces the evidence list.
func (r *ParticipationRepository) SetEvidence(ctx context.Context, id uuid.UUID, evidence []model.Evidence) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participations SET evidence = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, evidence, id)
	return err
}

// SetReport stores the student's description and the generated report.
func (r *ParticipationRepository) SetReport(ctx context.Context, id uuid.UUID, description, report string, source model.ReportSource) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participations SET description = $1, ai_report = $2, report_source = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`, description, report, source, id)
	return err
}
