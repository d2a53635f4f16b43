package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO notifications (recipient_type, recipient_id, type, title, message, link)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		n.RecipientType, n.RecipientID, n.Type, n.Title, n.Message, n.Link,
	).Scan(&n.ID, &n.CreatedAt)
}

// CreateMany inserts the same notification for many recipients.
func (r *NotificationRepository) CreateMany(ctx context.Context, tmpl model.Notification, recipientIDs []int) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"notifications"},
		[]string{"recipient_type", "recipient_id", "type", "title", "message", "link"},
		pgx.CopyFromSlice(len(recipientIDs), func(i int) ([]interface{}, error) {
			return []interface{}{string(tmpl.RecipientType), recipientIDs[i], string(tmpl.Type), tmpl.Title, tmpl.Message, tmpl.Link}, nil
		}),
	)
	return err
}

// List returns a recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, recipientType model.RecipientType, recipientID, limit int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, recipient_type, recipient_id, type, title, message, link, read_at, created_at
		 FROM notifications
		 WHERE recipient_type = $1 AND recipient_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		recipientType, recipientID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.RecipientType, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.Link, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one notification read. A nil id marks all of them.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientType model.RecipientType, recipientID int, id *int64) error {
	if id == nil {
		_, err := r.pool.Exec(ctx,
			`UPDATE notifications SET read_at = NOW()
			 WHERE recipient_type = $1 AND recipient_id = $2 AND read_at IS NULL`,
			recipientType, recipientID)
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND recipient_type = $2 AND recipient_id = $3`,
		*id, recipientType, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
