package chat

import (
	"context"
	"time"

	"github.com/huddleapp/huddle/internal/metrics"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// SetStatus upserts the user's presence, last-write-wins, no history.
func (s *Service) SetStatus(ctx context.Context, userID string, status models.PresenceStatus) error {
	err := s.store.UpsertPresence(ctx, &models.Presence{
		UserID:   userID,
		Status:   status,
		LastSeen: time.Now().UnixMilli(),
	})
	if err == nil {
		metrics.PresenceUpdates.WithLabelValues(string(status)).Inc()
	}
	return err
}

// Lifecycle transitions, driven by the client's page-visibility and unload
// signals. There is no timer-based demotion: a client that dies without
// firing Unloaded stays online or away indefinitely. Known, accepted
// staleness.

// AppStarted marks the user online (app start / tab became visible).
func (s *Service) AppStarted(ctx context.Context, userID string) error {
	return s.SetStatus(ctx, userID, models.PresenceOnline)
}

// TabHidden marks the user away (tab hidden without closing).
func (s *Service) TabHidden(ctx context.Context, userID string) error {
	return s.SetStatus(ctx, userID, models.PresenceAway)
}

// TabVisible marks the user online again.
func (s *Service) TabVisible(ctx context.Context, userID string) error {
	return s.SetStatus(ctx, userID, models.PresenceOnline)
}

// Unloaded marks the user offline (page unload).
func (s *Service) Unloaded(ctx context.Context, userID string) error {
	return s.SetStatus(ctx, userID, models.PresenceOffline)
}

// Presence returns a user's current record, (nil, nil) if never seen.
func (s *Service) Presence(ctx context.Context, userID string) (*models.Presence, error) {
	return s.store.GetPresence(ctx, userID)
}

// SubscribePresence follows all users' presence as a single live map, used
// to render status dots across the directory and room list.
func (s *Service) SubscribePresence(ctx context.Context) (<-chan map[string]models.Presence, store.Unsubscribe, error) {
	return s.store.SubscribePresence(ctx)
}
