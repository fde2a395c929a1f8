package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRejectsEmptyText(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, GeneralRoomID, "", "alice", "Alice", "")
	req.True(errors.Is(err, ErrEmptyMessage))

	_, err = svc.Send(ctx, GeneralRoomID, "   \n\t ", "alice", "Alice", "")
	req.True(errors.Is(err, ErrEmptyMessage))
}

func TestSendAuthorReadsOwnMessage(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
	req.NoError(err)

	_, err = svc.Send(ctx, roomID, "hola", "alice", "Alice", "")
	req.NoError(err)

	msgs, err := svc.Messages(ctx, roomID, 0)
	req.NoError(err)
	req.Len(msgs, 1)
	req.False(msgs[0].UnreadFor("alice"), "sender must never see their own message as unread")
	req.True(msgs[0].UnreadFor("bob"))
}

func TestSendUpdatesRoomPreview(t *testing.T) {
	req := require.New(t)
	svc, mem := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
	req.NoError(err)

	long := strings.Repeat("x", 80)
	_, err = svc.Send(ctx, roomID, long, "alice", "Alice", "")
	req.NoError(err)

	room, err := mem.GetRoom(ctx, roomID)
	req.NoError(err)
	req.NotNil(room.LastMessage)
	req.Equal(strings.Repeat("x", 50)+"...", room.LastMessage.Text)
	req.Equal("Alice", room.LastMessage.SenderName)
}

func TestPreviewShortTextUntouched(t *testing.T) {
	req := require.New(t)
	req.Equal("hello", preview("hello"))

	// Multibyte runes count as one character each.
	accented := strings.Repeat("é", 50)
	req.Equal(accented, preview(accented))
	req.Equal(accented+"...", preview(accented+"é"))
}

func TestMessagesWindowKeepsNewest(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveGeneralRoom(ctx)
	req.NoError(err)

	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		_, err := svc.Send(ctx, roomID, text, "alice", "Alice", "")
		req.NoError(err)
		time.Sleep(2 * time.Millisecond) // distinct timestamps
	}

	msgs, err := svc.Messages(ctx, roomID, 3)
	req.NoError(err)
	req.Len(msgs, 3)
	req.Equal("three", msgs[0].Text)
	req.Equal("four", msgs[1].Text)
	req.Equal("five", msgs[2].Text)
}

func TestUnreadLifecycle(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
	req.NoError(err)

	msgID, err := svc.Send(ctx, roomID, "hola", "alice", "Alice", "")
	req.NoError(err)

	count, err := svc.UnreadCount(ctx, roomID, "bob")
	req.NoError(err)
	req.Equal(1, count)

	count, err = svc.UnreadCount(ctx, roomID, "alice")
	req.NoError(err)
	req.Equal(0, count)

	svc.MarkRead(ctx, []string{msgID}, "bob")

	count, err = svc.UnreadCount(ctx, roomID, "bob")
	req.NoError(err)
	req.Equal(0, count)

	// Re-marking an already read message changes nothing.
	svc.MarkRead(ctx, []string{msgID}, "bob")

	count, err = svc.UnreadCount(ctx, roomID, "bob")
	req.NoError(err)
	req.Equal(0, count)
}

func TestMarkReadSkipsMissingIDs(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
	req.NoError(err)

	msgID, err := svc.Send(ctx, roomID, "hi", "alice", "Alice", "")
	req.NoError(err)

	// A vanished id in the batch must not prevent the rest being marked.
	svc.MarkRead(ctx, []string{"no-such-message", msgID}, "bob")

	count, err := svc.UnreadCount(ctx, roomID, "bob")
	req.NoError(err)
	req.Equal(0, count)
}

func TestSubscribeUnreadCount(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
	req.NoError(err)

	counts, unsub, err := svc.SubscribeUnreadCount(ctx, roomID, "bob")
	req.NoError(err)
	defer unsub()

	req.Equal(0, waitFor(t, counts))

	_, err = svc.Send(ctx, roomID, "hola", "alice", "Alice", "")
	req.NoError(err)

	req.Equal(1, waitForValue(t, counts, 1))

	msgs, err := svc.Messages(ctx, roomID, 0)
	req.NoError(err)
	svc.MarkRead(ctx, []string{msgs[0].ID}, "bob")

	req.Equal(0, waitForValue(t, counts, 0))
}

func TestDeleteMessage(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	roomID, err := svc.ResolveGeneralRoom(ctx)
	req.NoError(err)

	msgID, err := svc.Send(ctx, roomID, "oops", "alice", "Alice", "")
	req.NoError(err)

	req.NoError(svc.Delete(ctx, msgID))

	msgs, err := svc.Messages(ctx, roomID, 0)
	req.NoError(err)
	req.Empty(msgs)
}

// waitFor receives one value or fails the test after a timeout.
func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		var zero T
		return zero
	}
}

// waitForValue receives until want arrives, skipping coalesced
// intermediate snapshots.
func waitForValue(t *testing.T, ch <-chan int, want int) int {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if v == want {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d", want)
			return 0
		}
	}
}
