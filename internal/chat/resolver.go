package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

// GeneralRoomID is the fixed id of the single shared room.
const GeneralRoomID = "general"

// DirectRoomID derives the stable id of a 1:1 room. The id is a pure
// function of the unordered participant pair, so two clients resolving the
// same pair concurrently compute the same id and converge on one room.
func DirectRoomID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return fmt.Sprintf("dm_%s_%s", pair[0], pair[1])
}

// AssistantRoomID derives the id of a user's private assistant room.
func AssistantRoomID(userID string) string {
	return "assistant_" + userID
}

// ResolveGeneralRoom returns the general room id, creating the room record
// on first access. The check-then-create race is benign: a losing writer
// re-writes identical initial state.
func (s *Service) ResolveGeneralRoom(ctx context.Context) (string, error) {
	room, err := s.store.GetRoom(ctx, GeneralRoomID)
	if err != nil {
		return "", err
	}
	if room != nil {
		return GeneralRoomID, nil
	}

	now := time.Now().UnixMilli()
	err = s.store.UpsertRoom(ctx, &models.Room{
		ID:           GeneralRoomID,
		Name:         "General",
		Kind:         models.RoomGeneral,
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return "", err
	}
	return GeneralRoomID, nil
}

// ResolveDirectRoom gets or creates the 1:1 room between two users. Display
// names are captured at creation time and never re-synced.
func (s *Service) ResolveDirectRoom(ctx context.Context, userA, nameA, userB, nameB string) (string, error) {
	roomID := DirectRoomID(userA, userB)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room != nil {
		return roomID, nil
	}

	now := time.Now().UnixMilli()
	err = s.store.UpsertRoom(ctx, &models.Room{
		ID:           roomID,
		Name:         nameA + " & " + nameB,
		Kind:         models.RoomDirect,
		Participants: []string{userA, userB},
		ParticipantNames: map[string]string{
			userA: nameA,
			userB: nameB,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return roomID, nil
}

// ResolveAssistantRoom gets or creates the user's assistant room.
func (s *Service) ResolveAssistantRoom(ctx context.Context, userID, userName string) (string, error) {
	roomID := AssistantRoomID(userID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room != nil {
		return roomID, nil
	}

	now := time.Now().UnixMilli()
	err = s.store.UpsertRoom(ctx, &models.Room{
		ID:           roomID,
		Name:         "Assistant",
		Kind:         models.RoomAssistant,
		Participants: []string{userID, "assistant"},
		ParticipantNames: map[string]string{
			userID:      userName,
			"assistant": "Assistant",
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return roomID, nil
}

// SubscribeUserRooms follows the user's direct rooms, most recent activity
// first, re-delivered on every change.
func (s *Service) SubscribeUserRooms(ctx context.Context, userID string) (<-chan []models.Room, store.Unsubscribe, error) {
	return s.store.SubscribeUserRooms(ctx, userID)
}
