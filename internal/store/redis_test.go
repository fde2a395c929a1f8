package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/huddleapp/huddle/internal/models"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping: REDIS_URL not set")
	}
	s, err := NewRedisStore(context.Background(), url)
	if err != nil {
		t.Skipf("Skipping: could not connect to redis: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomMessagesSkipsOnlyEvictedDocuments(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	roomID := fmt.Sprintf("test_%s", ulid.Make().String())

	var ids []string
	for _, text := range []string{"first", "second", "third"} {
		msg := &models.Message{
			RoomID:   roomID,
			Text:     text,
			SenderID: "alice",
			ReadBy:   []string{"alice"},
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			s.client.Del(context.Background(), messageKey(id), readByKey(id))
		}
		s.client.Del(context.Background(), roomMessagesKey(roomID))
	})

	// Drop one message document but leave its index entry, as retention
	// eviction does between the index read and the fetch.
	if err := s.client.Del(ctx, messageKey(ids[1])).Err(); err != nil {
		t.Fatalf("del: %v", err)
	}

	msgs, err := s.RoomMessages(ctx, roomID, 10)
	if err != nil {
		t.Fatalf("room messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "first" || msgs[1].Text != "third" {
		t.Fatalf("unexpected window: %q, %q", msgs[0].Text, msgs[1].Text)
	}
	for _, m := range msgs {
		if len(m.ReadBy) != 1 || m.ReadBy[0] != "alice" {
			t.Fatalf("read-set not attached: %+v", m.ReadBy)
		}
	}
}

func TestRoomMessagesPropagatesStoreErrors(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	roomID := fmt.Sprintf("test_%s", ulid.Make().String())

	msg := &models.Message{RoomID: roomID, Text: "hello", SenderID: "alice"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	t.Cleanup(func() {
		s.client.Del(context.Background(), messageKey(msg.ID), readByKey(msg.ID), roomMessagesKey(roomID))
	})

	// Corrupt the document in place. A fetch failure mid-window must surface
	// instead of silently shrinking the result.
	if err := s.client.Set(ctx, messageKey(msg.ID), "{not json", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := s.RoomMessages(ctx, roomID, 10); err == nil {
		t.Fatal("expected error from unreadable message document, got nil")
	}
}
