package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

func newTestService() (*Service, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	return NewService(mem, zerolog.Nop()), mem
}

func TestDirectRoomIDSymmetric(t *testing.T) {
	a := DirectRoomID("user1", "user2")
	b := DirectRoomID("user2", "user1")

	if a != b {
		t.Errorf("ids differ by argument order: %q vs %q", a, b)
	}
	if a != "dm_user1_user2" {
		t.Errorf("unexpected id format: %q", a)
	}
}

func TestAssistantRoomID(t *testing.T) {
	if got := AssistantRoomID("u42"); got != "assistant_u42" {
		t.Errorf("unexpected id: %q", got)
	}
}

func TestResolveGeneralRoomIdempotent(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	id1, err := svc.ResolveGeneralRoom(ctx)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	id2, err := svc.ResolveGeneralRoom(ctx)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if id1 != id2 || id1 != GeneralRoomID {
		t.Errorf("ids not stable: %q, %q", id1, id2)
	}

	room, err := mem.GetRoom(ctx, GeneralRoomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room == nil {
		t.Fatal("general room was not created")
	}
	if room.Kind != models.RoomGeneral {
		t.Errorf("wrong kind: %q", room.Kind)
	}
}

func TestResolveDirectRoomConcurrent(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the resolvers see the pair in the opposite order.
			var err error
			if i%2 == 0 {
				ids[i], err = svc.ResolveDirectRoom(ctx, "alice", "Alice", "bob", "Bob")
			} else {
				ids[i], err = svc.ResolveDirectRoom(ctx, "bob", "Bob", "alice", "Alice")
			}
			if err != nil {
				t.Errorf("resolve %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("resolver %d got %q, want %q", i, ids[i], ids[0])
		}
	}

	room, err := mem.GetRoom(ctx, ids[0])
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room == nil {
		t.Fatal("direct room was not created")
	}
	if !room.HasParticipant("alice") || !room.HasParticipant("bob") {
		t.Errorf("participants wrong: %v", room.Participants)
	}
}

func TestResolveAssistantRoom(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	id, err := svc.ResolveAssistantRoom(ctx, "carol", "Carol")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	room, err := mem.GetRoom(ctx, id)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room == nil {
		t.Fatal("assistant room was not created")
	}
	if room.Kind != models.RoomAssistant {
		t.Errorf("wrong kind: %q", room.Kind)
	}
	if !room.HasParticipant("carol") || !room.HasParticipant("assistant") {
		t.Errorf("participants wrong: %v", room.Participants)
	}
}
