package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/model"
)

const eventColumns = `id, title, description, type, location, start_at, end_at, registration_deadline,
	capacity, current_participants, organizer_id, status, hours_awarded::float8,
	certificate_template_url, certificate_template_id, certificate_fields, certificate_auto_send,
	certificates_sent, certificates_sent_at, reminder_sent, created_at, updated_at`

// EventRepository handles event data access.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	e := &model.Event{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Location, &e.StartAt, &e.EndAt, &e.RegistrationDeadline,
		&e.Capacity, &e.CurrentParticipants, &e.OrganizerID, &e.Status, &e.HoursAwarded,
		&e.Certificate.TemplateURL, &e.Certificate.TemplateID, &e.Certificate.Fields, &e.Certificate.AutoSend,
		&e.CertificatesSent, &e.CertificatesSentAt, &e.ReminderSent, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// GetByID retrieves an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetForUpdate locks the event row inside a transaction.
func (r *EventRepository) GetForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*model.Event, error) {
	return scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
}

// ListPaginated retrieves events matching the filter, soonest first.
func (r *EventRepository) ListPaginated(ctx context.Context, f model.EventFilter, limit, offset int) ([]model.Event, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where += ` AND status = ANY($` + strconv.Itoa(argIdx) + `)`
		args = append(args, statuses)
		argIdx++
	}
	if f.Type != nil {
		where += ` AND type = $` + strconv.Itoa(argIdx)
		args = append(args, *f.Type)
		argIdx++
	}
	if f.Search != "" {
		where += ` AND (title ILIKE $` + strconv.Itoa(argIdx) + ` OR location ILIKE $` + strconv.Itoa(argIdx) + `)`
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where +
		` ORDER BY start_at ASC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *e)
	}
	return events, total, rows.Err()
}

// Create inserts a new draft event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO events (title, description, type, location, start_at, end_at, registration_deadline,
		                     capacity, organizer_id, hours_awarded)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, status, certificate_fields, created_at, updated_at`,
		e.Title, e.Description, e.Type, e.Location, e.StartAt, e.EndAt, e.RegistrationDeadline,
		e.Capacity, e.OrganizerID, e.HoursAwarded,
	).Scan(&e.ID, &e.Status, &e.Certificate.Fields, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an event's details.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events
		 SET title = $1, description = $2, type = $3, location = $4, start_at = $5, end_at = $6,
		     registration_deadline = $7, capacity = $8, hours_awarded = $9, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10`,
		e.Title, e.Description, e.Type, e.Location, e.StartAt, e.EndAt,
		e.RegistrationDeadline, e.Capacity, e.HoursAwarded, e.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets an event's lifecycle status.
func (r *EventRepository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.EventStatus) error {
	tag, err := q.Exec(ctx,
		`UPDATE events SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event. Participations cascade.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Capacity ─────────────────────────────────────────────────────────────

// ReserveSeat increments current_participants if capacity allows.
func (r *EventRepository) ReserveSeat(ctx context.Context, q Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`UPDATE events SET current_participants = current_participants + 1
		 WHERE id = $1 AND (capacity IS NULL OR current_participants < capacity)`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventFull
	}
	return nil
}

// ReleaseSeat decrements current_participants, never below zero.
func (r *EventRepository) ReleaseSeat(ctx context.Context, q Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE events SET current_participants = GREATEST(current_participants - 1, 0) WHERE id = $1`, id)
	return err
}

// ─── Certificate configuration ────────────────────────────────────────────

// SaveCertificateFields persists the field layout and auto-send flag.
func (r *EventRepository) SaveCertificateFields(ctx context.Context, id uuid.UUID, fields certificate.Fields, autoSend bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET certificate_fields = $1, certificate_auto_send = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`, fields, autoSend, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCertificateField writes one placement into the stored layout without
// touching the other fields, and returns the resulting layout. A nil
// placement clears the field.
func (r *EventRepository) SetCertificateField(ctx context.Context, id uuid.UUID, key certificate.FieldKey, placement *certificate.Placement) (certificate.Fields, error) {
	raw, err := json.Marshal(placement)
	if err != nil {
		return certificate.Fields{}, fmt.Errorf("encode placement: %w", err)
	}

	var fields certificate.Fields
	err = r.pool.QueryRow(ctx,
		`UPDATE events
		 SET certificate_fields = jsonb_set(COALESCE(certificate_fields, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1
		 RETURNING certificate_fields`, id, string(key), string(raw)).Scan(&fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return certificate.Fields{}, ErrNotFound
	}
	return fields, err
}

// SetTemplate records the stored template location. Empty values clear it.
func (r *EventRepository) SetTemplate(ctx context.Context, id uuid.UUID, url, storageID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET certificate_template_url = $1, certificate_template_id = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`, url, storageID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCertificatesSent flips the certificates_sent latch. It reports false
// when another writer had already set it.
func (r *EventRepository) MarkCertificatesSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET certificates_sent = TRUE, certificates_sent_at = NOW(), updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND certificates_sent = FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ─── Reminders ────────────────────────────────────────────────────────────

// ListDueReminders returns published events starting before the given time
// that have not been reminded yet.
func (r *EventRepository) ListDueReminders(ctx context.Context, before time.Time) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = $1 AND reminder_sent = FALSE AND start_at > NOW() AND start_at <= $2
		 ORDER BY start_at`,
		model.EventStatusPublished, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// MarkReminderSent records that an event's reminder went out.
func (r *EventRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE events SET reminder_sent = TRUE WHERE id = $1`, id)
	return err
}
