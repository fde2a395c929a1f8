package chat

import (
	"context"
	"strings"
	"time"

	"github.com/huddleapp/huddle/internal/metrics"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// Send appends a message to the room and updates the room's last-message
// preview. The two writes are not atomic with each other: a successful
// append with a stale preview is self-healing, the next send corrects it.
func (s *Service) Send(ctx context.Context, roomID, text, senderID, senderName, senderPhoto string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	msg := &models.Message{
		RoomID:      roomID,
		Text:        text,
		SenderID:    senderID,
		SenderName:  senderName,
		SenderPhoto: senderPhoto,
		CreatedAt:   time.Now().UnixMilli(),
		ReadBy:      []string{senderID}, // a message is read by its own author
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	metrics.MessagesSent.Inc()

	err := s.store.TouchRoom(ctx, roomID, models.LastMessage{
		Text:       preview(text),
		SenderName: senderName,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		// The message is stored; a stale preview is acceptable.
		s.log.Warn().Err(err).Str("room", roomID).Msg("failed to update room preview")
	}

	return msg.ID, nil
}

// preview truncates text for the room's last-message field.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}

// Subscribe follows a room's message window: the newest limit messages,
// oldest-first for display, re-delivered in full on every change.
// Call the returned unsubscribe on room switch and teardown or the
// server-side listener leaks for the life of the session.
func (s *Service) Subscribe(ctx context.Context, roomID string, limit int) (<-chan []models.Message, store.Unsubscribe, error) {
	if limit <= 0 {
		limit = DefaultWindow
	}
	return s.store.SubscribeRoomMessages(ctx, roomID, limit)
}

// Messages returns the room window once, without a subscription.
func (s *Service) Messages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultWindow
	}
	return s.store.RoomMessages(ctx, roomID, limit)
}

// Delete removes a message. Rare admin action.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	return s.store.DeleteMessage(ctx, messageID)
}
