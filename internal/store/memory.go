package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/huddleapp/huddle/internal/models"
)

// MemoryStore implements both LiveStore and DataStore in process memory.
// It backs tests and dev mode when no Redis/Postgres is configured, and is
// the substitutable fake the service layer is written against.
type MemoryStore struct {
	mu sync.RWMutex

	rooms         map[string]models.Room
	messages      map[string]models.Message
	presence      map[string]models.Presence
	notifications map[string]models.Notification
	users         map[string]models.User

	nextSub  int
	msgSubs  map[int]*messageSub
	roomSubs map[int]*roomSub
	presSubs map[int]chan map[string]models.Presence
}

type messageSub struct {
	roomID string
	limit  int
	ch     chan []models.Message
}

type roomSub struct {
	userID string
	ch     chan []models.Room
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:         make(map[string]models.Room),
		messages:      make(map[string]models.Message),
		presence:      make(map[string]models.Presence),
		notifications: make(map[string]models.Notification),
		users:         make(map[string]models.User),
		msgSubs:       make(map[int]*messageSub),
		roomSubs:      make(map[int]*roomSub),
		presSubs:      make(map[int]chan map[string]models.Presence),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func copyRoom(r models.Room) models.Room {
	cp := r
	cp.Participants = append([]string(nil), r.Participants...)
	if r.ParticipantNames != nil {
		cp.ParticipantNames = make(map[string]string, len(r.ParticipantNames))
		for k, v := range r.ParticipantNames {
			cp.ParticipantNames[k] = v
		}
	}
	if r.LastMessage != nil {
		last := *r.LastMessage
		cp.LastMessage = &last
	}
	return cp
}

func copyMessage(m models.Message) models.Message {
	cp := m
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	return cp
}

// UpsertRoom overwrites the room document and signals its participants'
// room-list subscriptions.
func (s *MemoryStore) UpsertRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	s.rooms[room.ID] = copyRoom(*room)
	s.mu.Unlock()

	s.deliverRooms(room.Participants)
	return nil
}

// GetRoom returns (nil, nil) when the room does not exist.
func (s *MemoryStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := copyRoom(room)
	return &cp, nil
}

// TouchRoom updates the last-message preview and updated-at.
func (s *MemoryStore) TouchRoom(ctx context.Context, id string, last models.LastMessage) error {
	s.mu.Lock()
	room, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	room.LastMessage = &last
	room.UpdatedAt = last.CreatedAt
	s.rooms[id] = room
	participants := room.Participants
	s.mu.Unlock()

	s.deliverRooms(participants)
	return nil
}

// Delivery happens under the read lock and channel closure under the write
// lock (see the unsubscribe closures), so a concurrent unsubscribe can never
// close a channel between the subscriber lookup and the send. sendLatest
// never blocks, which makes holding the lock across it safe.
func (s *MemoryStore) deliverRooms(participants []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.roomSubs {
		if lo.Contains(participants, sub.userID) {
			sendLatest(sub.ch, s.userRoomsLocked(sub.userID))
		}
	}
}

func (s *MemoryStore) userRoomsLocked(userID string) []models.Room {
	rooms := lo.FilterMap(lo.Values(s.rooms), func(r models.Room, _ int) (models.Room, bool) {
		return copyRoom(r), r.Kind == models.RoomDirect && (&r).HasParticipant(userID)
	})
	sort.Slice(rooms, func(i, j int) bool {
		return roomActivity(rooms[i]) > roomActivity(rooms[j])
	})
	return rooms
}

// SubscribeUserRooms delivers the user's direct rooms on every change.
func (s *MemoryStore) SubscribeUserRooms(ctx context.Context, userID string) (<-chan []models.Room, Unsubscribe, error) {
	ch := make(chan []models.Room, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.roomSubs[id] = &roomSub{userID: userID, ch: ch}
	ch <- s.userRoomsLocked(userID)
	s.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.roomSubs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, unsub, nil
}

// AppendMessage stores the message and signals the room's subscriptions.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	s.mu.Lock()
	s.messages[msg.ID] = copyMessage(*msg)
	s.mu.Unlock()

	s.notifyRoom(msg.RoomID)
	return nil
}

// AddReadBy adds userID to the read-set; re-adding is a no-op.
func (s *MemoryStore) AddReadBy(ctx context.Context, messageID, userID string) error {
	s.mu.Lock()
	msg, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("message %s not found", messageID)
	}
	if !(&msg).ReadByUser(userID) {
		msg.ReadBy = append(msg.ReadBy, userID)
		s.messages[messageID] = msg
	}
	roomID := msg.RoomID
	s.mu.Unlock()

	s.notifyRoom(roomID)
	return nil
}

func (s *MemoryStore) roomMessagesLocked(roomID string, limit int) []models.Message {
	msgs := lo.FilterMap(lo.Values(s.messages), func(m models.Message, _ int) (models.Message, bool) {
		return copyMessage(m), m.RoomID == roomID
	})
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt != msgs[j].CreatedAt {
			return msgs[i].CreatedAt < msgs[j].CreatedAt
		}
		return msgs[i].ID < msgs[j].ID
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

// RoomMessages returns the newest-limit window, oldest-first.
func (s *MemoryStore) RoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomMessagesLocked(roomID, limit), nil
}

// SubscribeRoomMessages re-delivers the current window on every mutation of
// the room's message set.
func (s *MemoryStore) SubscribeRoomMessages(ctx context.Context, roomID string, limit int) (<-chan []models.Message, Unsubscribe, error) {
	ch := make(chan []models.Message, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.msgSubs[id] = &messageSub{roomID: roomID, limit: limit, ch: ch}
	ch <- s.roomMessagesLocked(roomID, limit)
	s.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.msgSubs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, unsub, nil
}

// notifyRoom delivers the current window to the room's subscribers. Same
// locking discipline as deliverRooms: sends under the read lock, closes
// under the write lock, so the two never interleave.
func (s *MemoryStore) notifyRoom(roomID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.msgSubs {
		if sub.roomID == roomID {
			sendLatest(sub.ch, s.roomMessagesLocked(roomID, sub.limit))
		}
	}
}

// DeleteMessage removes a message if present.
func (s *MemoryStore) DeleteMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	msg, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.messages, messageID)
	roomID := msg.RoomID
	s.mu.Unlock()

	s.notifyRoom(roomID)
	return nil
}

// UpsertPresence overwrites the user's presence record.
func (s *MemoryStore) UpsertPresence(ctx context.Context, p *models.Presence) error {
	s.mu.Lock()
	s.presence[p.UserID] = *p
	s.mu.Unlock()

	s.mu.RLock()
	snapshot := s.presenceLocked()
	for _, ch := range s.presSubs {
		sendLatest(ch, snapshot)
	}
	s.mu.RUnlock()
	return nil
}

// GetPresence returns (nil, nil) for users who never connected.
func (s *MemoryStore) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) presenceLocked() map[string]models.Presence {
	snapshot := make(map[string]models.Presence, len(s.presence))
	for k, v := range s.presence {
		snapshot[k] = v
	}
	return snapshot
}

// SubscribePresence delivers the full presence map on every change.
func (s *MemoryStore) SubscribePresence(ctx context.Context) (<-chan map[string]models.Presence, Unsubscribe, error) {
	ch := make(chan map[string]models.Presence, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.presSubs[id] = ch
	ch <- s.presenceLocked()
	s.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.presSubs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, unsub, nil
}

// CreateNotification stores a mailbox row, assigning an id when unset.
func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = *n
	return nil
}

// ListNotifications returns the recipient's mailbox, newest first.
func (s *MemoryStore) ListNotifications(ctx context.Context, recipientID string, opts ListOptions) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Filter(lo.Values(s.notifications), func(n models.Notification, _ int) bool {
		if n.RecipientID != recipientID {
			return false
		}
		return !opts.UnreadOnly || !n.IsRead
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountUnread counts the recipient's unread rows.
func (s *MemoryStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkNotificationRead flips IsRead for a row owned by recipientID. A
// mismatched recipient filters to zero rows, silently.
func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientID != recipientID || n.IsRead {
		return nil
	}
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	s.notifications[id] = n
	return nil
}

// MarkAllNotificationsRead flips every unread row of the recipient.
func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			s.notifications[id] = n
		}
	}
	return nil
}

// DeleteNotification removes a row owned by recipientID, silently otherwise.
func (s *MemoryStore) DeleteNotification(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.notifications[id]; ok && n.RecipientID == recipientID {
		delete(s.notifications, id)
	}
	return nil
}

// PurgeRead deletes read rows older than cutoff.
func (s *MemoryStore) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, n := range s.notifications {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			purged++
		}
	}
	return purged, nil
}

// AddUser seeds a directory entry.
func (s *MemoryStore) AddUser(u models.User) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// ListTeam returns the directory ordered by first name.
func (s *MemoryStore) ListTeam(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team := lo.Values(s.users)
	sort.Slice(team, func(i, j int) bool {
		return team[i].FirstName < team[j].FirstName
	})
	return team, nil
}

// GetUser returns (nil, nil) for unknown ids.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// FindUserByName matches first name or full display name, case-insensitive.
func (s *MemoryStore) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(name))
	for _, u := range s.users {
		if strings.ToLower(u.FirstName) == want || strings.ToLower(u.DisplayName()) == want {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}
