package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// CampaignRepository handles bulk email bookkeeping and recipient resolution.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new CampaignRepository.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// ResolveRecipients returns the students matching the audience.
func (r *CampaignRepository) ResolveRecipients(ctx context.Context, a model.EmailAudience) ([]model.Recipient, error) {
	query := `SELECT s.id, s.name, s.email FROM students s`
	var args []interface{}
	argIdx := 1

	if a.EventID != nil {
		query += ` JOIN participations p ON p.student_id = s.id AND p.event_id = $` + strconv.Itoa(argIdx) +
			` AND p.status IN ('approved', 'attended', 'completed')`
		args = append(args, *a.EventID)
		argIdx++
	}
	query += ` WHERE 1=1`
	if a.Department != nil {
		query += ` AND s.department = $` + strconv.Itoa(argIdx)
		args = append(args, *a.Department)
		argIdx++
	}
	if a.Year != nil {
		query += ` AND s.year = $` + strconv.Itoa(argIdx)
		args = append(args, *a.Year)
	}
	if a.EligibleOnly {
		query += ` AND s.is_eligible`
	}
	query += ` ORDER BY s.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Recipient{}
	for rows.Next() {
		var rc model.Recipient
		if err := rows.Scan(&rc.StudentID, &rc.Name, &rc.Email); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Create inserts a queued campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *model.EmailCampaign) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO email_campaigns (subject, body_markdown, audience, total, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, status, created_at`,
		c.Subject, c.BodyMarkdown, c.Audience, c.Total, c.CreatedBy,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)
}

// GetByID retrieves a campaign.
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.EmailCampaign, error) {
	c := &model.EmailCampaign{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject, body_markdown, audience, total, sent, failed, status, created_by, created_at, completed_at
		 FROM email_campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Subject, &c.BodyMarkdown, &c.Audience, &c.Total, &c.Sent, &c.Failed, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// List returns the most recent campaigns.
func (r *CampaignRepository) List(ctx context.Context, limit, offset int) ([]model.EmailCampaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_campaigns`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, subject, body_markdown, audience, total, sent, failed, status, created_by, created_at, completed_at
		 FROM email_campaigns ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.EmailCampaign{}
	for rows.Next() {
		var c model.EmailCampaign
		if err := rows.Scan(&c.ID, &c.Subject, &c.BodyMarkdown, &c.Audience, &c.Total, &c.Sent, &c.Failed, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.CompletedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// RecordResult increments the sent or failed counter and completes the
// campaign once every recipient has been attempted.
func (r *CampaignRepository) RecordResult(ctx context.Context, id uuid.UUID, sent bool) error {
	col := "failed"
	if sent {
		col = "sent"
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE email_campaigns
		 SET `+col+` = `+col+` + 1,
		     status = CASE WHEN sent + failed + 1 >= total THEN 'completed' ELSE status END,
		     completed_at = CASE WHEN sent + failed + 1 >= total THEN NOW() ELSE completed_at END
		 WHERE id = $1`, id)
	return err
}
