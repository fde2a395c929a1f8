package chat

import (
	"context"

	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// MarkRead adds userID to each message's read-set. Idempotent set-union:
// re-marking is a no-op. Individual failures (a deleted id, a transient
// store error) are logged and skipped, never aborting the batch; this is
// fire-and-forget by design.
func (s *Service) MarkRead(ctx context.Context, messageIDs []string, userID string) {
	for _, id := range messageIDs {
		if err := s.store.AddReadBy(ctx, id, userID); err != nil {
			s.log.Debug().Err(err).Str("message", id).Str("user", userID).Msg("mark-read skipped")
		}
	}
}

// UnreadCount computes the user's unread count for a room once: messages
// not sent by the user and not containing them in the read-set. Derived,
// never stored.
func (s *Service) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	msgs, err := s.store.RoomMessages(ctx, roomID, 0)
	if err != nil {
		return 0, err
	}
	return countUnread(msgs, userID), nil
}

// SubscribeUnreadCount recomputes the unread count on every change to the
// room's message set and delivers the current value. Correctness depends on
// the orchestrator calling MarkRead whenever unseen messages are actually
// rendered.
func (s *Service) SubscribeUnreadCount(ctx context.Context, roomID, userID string) (<-chan int, store.Unsubscribe, error) {
	msgs, unsub, err := s.store.SubscribeRoomMessages(ctx, roomID, 0)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan int, 1)
	go func() {
		defer close(out)
		for snapshot := range msgs {
			count := countUnread(snapshot, userID)
			// Replace an undelivered count with the newer one.
			select {
			case out <- count:
			default:
				select {
				case <-out:
				default:
				}
				out <- count
			}
		}
	}()
	return out, unsub, nil
}

func countUnread(msgs []models.Message, userID string) int {
	count := 0
	for i := range msgs {
		if msgs[i].UnreadFor(userID) {
			count++
		}
	}
	return count
}
