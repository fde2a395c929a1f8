// Package notify implements the notification fan-out: one mailbox row per
// recipient per domain event, a polled unread badge, and recipient-scoped
// read/delete.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/metrics"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// Service owns the notification mailbox operations.
type Service struct {
	store store.NotificationStore
	users store.UserStore
	log   zerolog.Logger
}

// NewService creates a notification service.
func NewService(s store.NotificationStore, users store.UserStore, log zerolog.Logger) *Service {
	return &Service{store: s, users: users, log: log}
}

// Create stores a single recipient-scoped notification.
func (s *Service) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
	return n, nil
}

// ListByUser returns the user's mailbox, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, opts store.ListOptions) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, opts)
}

// UnreadCount is a plain count query. The UI polls it; this surface is
// deliberately not a live feed.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks one notification read, scoped to the recipient. Marking
// another user's notification is a silent no-op, not an error.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	return s.store.MarkNotificationRead(ctx, id, userID)
}

// MarkAllRead marks the user's whole mailbox read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

// Delete removes one notification, recipient-scoped like MarkRead.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	return s.store.DeleteNotification(ctx, id, userID)
}

// PurgeRead removes read notifications older than the retention window.
// Unread notifications are never purged automatically.
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	purged, err := s.store.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		metrics.NotificationsPurged.Add(float64(purged))
		s.log.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("notification retention sweep")
	}
	return purged, nil
}
