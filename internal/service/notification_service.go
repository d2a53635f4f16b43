package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	ws "github.com/sevahub/sevahub-backend/internal/websocket"
)

// Notifier delivers in-app notifications. Callers treat failures as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
	NotifyMany(ctx context.Context, tmpl model.Notification, studentIDs []int) error
	Broadcast(ctx context.Context, n model.Notification) error
}

type notificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateMany(ctx context.Context, tmpl model.Notification, recipientIDs []int) error
	List(ctx context.Context, recipientType model.RecipientType, recipientID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientType model.RecipientType, recipientID int, id *int64) error
}

// Publisher is the subset of the Redis client used for pub/sub fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationService persists notifications and publishes them to the
// recipient's room. Connected websocket clients forward whatever arrives.
type NotificationService struct {
	store notificationStore
	pub   Publisher
	now   func() time.Time
	log   zerolog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store *repository.NotificationRepository, rdb *redis.Client, log zerolog.Logger) *NotificationService {
	return newNotificationService(store, rdb, log)
}

func newNotificationService(store notificationStore, pub Publisher, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		pub:   pub,
		now:   time.Now,
		log:   log.With().Str("component", "notification_service").Logger(),
	}
}

// Notify persists n and emits it to the recipient's room.
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) error {
	if n.RecipientType == "" {
		n.RecipientType = model.RecipientStudent
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	s.publish(ctx, config.CacheKey.UserNotificationChannel(string(n.RecipientType), n.RecipientID), *n)
	return nil
}

// NotifyMany persists one notification per student and emits each.
func (s *NotificationService) NotifyMany(ctx context.Context, tmpl model.Notification, studentIDs []int) error {
	if len(studentIDs) == 0 {
		return nil
	}
	tmpl.RecipientType = model.RecipientStudent
	if err := s.store.CreateMany(ctx, tmpl, studentIDs); err != nil {
		return err
	}

	tmpl.CreatedAt = s.now()
	for _, id := range studentIDs {
		n := tmpl
		n.RecipientID = id
		s.publish(ctx, config.CacheKey.UserNotificationChannel(string(model.RecipientStudent), id), n)
	}
	return nil
}

// Broadcast emits n to every connected client. Broadcasts are not persisted.
func (s *NotificationService) Broadcast(ctx context.Context, n model.Notification) error {
	n.ID = 0
	n.RecipientID = 0
	n.CreatedAt = s.now()
	s.publish(ctx, config.CacheKey.BroadcastNotificationChannel(), n)
	return nil
}

// List returns the latest notifications for a user.
func (s *NotificationService) List(ctx context.Context, recipientType model.RecipientType, recipientID, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.List(ctx, recipientType, recipientID, limit)
}

// MarkRead marks one notification read, or all of them when id is nil.
func (s *NotificationService) MarkRead(ctx context.Context, recipientType model.RecipientType, recipientID int, id *int64) error {
	err := s.store.MarkRead(ctx, recipientType, recipientID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) publish(ctx context.Context, channel string, n model.Notification) {
	payload, err := json.Marshal(ws.NotificationMessage{Event: ws.EventNotification, Notification: n})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode notification")
		return
	}
	if err := s.pub.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish notification")
	}
}
