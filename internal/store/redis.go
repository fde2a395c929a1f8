package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/huddleapp/huddle/internal/models"
)

// RedisStore implements LiveStore on Redis: plain JSON documents for rooms,
// messages and presence, a sorted set per room for message ordering, a set
// per message for its read-set, and pub/sub channels carrying change
// signals. Subscribers re-query the full current result on every signal, so
// the feed delivers snapshots rather than deltas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that shares the
// connection (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func roomKey(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

func roomMessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

func messageKey(msgID string) string {
	return fmt.Sprintf("msg:%s", msgID)
}

func readByKey(msgID string) string {
	return fmt.Sprintf("msg:%s:readby", msgID)
}

func userRoomsKey(userID string) string {
	return fmt.Sprintf("user:%s:rooms", userID)
}

const presenceKey = "presence"

func roomEventsChannel(roomID string) string {
	return fmt.Sprintf("events:room:%s", roomID)
}

func userRoomsChannel(userID string) string {
	return fmt.Sprintf("events:userrooms:%s", userID)
}

const presenceChannel = "events:presence"

// UpsertRoom writes the room document and indexes direct rooms under each
// participant. Overwriting an existing room with identical data is the
// benign outcome of two racing creators.
func (s *RedisStore) UpsertRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, roomKey(room.ID), data, 0)
	if room.Kind == models.RoomDirect {
		for _, p := range room.Participants {
			pipe.SAdd(ctx, userRoomsKey(p), room.ID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.notifyParticipants(ctx, room)
	return nil
}

// GetRoom retrieves a room document, (nil, nil) when absent.
func (s *RedisStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var room models.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// TouchRoom updates the last-message preview and updated-at. The read and
// write are not transactional: a racing send leaves a stale preview that the
// next send corrects.
func (s *RedisStore) TouchRoom(ctx context.Context, id string, last models.LastMessage) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %s not found", id)
	}

	room.LastMessage = &last
	room.UpdatedAt = last.CreatedAt

	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, roomKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.notifyParticipants(ctx, room)
	return nil
}

// notifyParticipants signals every participant's room-list subscription.
func (s *RedisStore) notifyParticipants(ctx context.Context, room *models.Room) {
	for _, p := range room.Participants {
		s.client.Publish(ctx, userRoomsChannel(p), room.ID)
	}
}

// SubscribeUserRooms delivers the user's direct rooms, newest activity
// first, re-queried on every change signal.
func (s *RedisStore) SubscribeUserRooms(ctx context.Context, userID string) (<-chan []models.Room, Unsubscribe, error) {
	query := func(ctx context.Context) ([]models.Room, error) {
		return s.userRooms(ctx, userID)
	}
	return subscribeSnapshots(ctx, s.client, userRoomsChannel(userID), query)
}

func (s *RedisStore) userRooms(ctx context.Context, userID string) ([]models.Room, error) {
	ids, err := s.client.SMembers(ctx, userRoomsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rooms := make([]models.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		if room != nil {
			rooms = append(rooms, *room)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		return roomActivity(rooms[i]) > roomActivity(rooms[j])
	})
	return rooms, nil
}

func roomActivity(r models.Room) int64 {
	if r.LastMessage != nil {
		return r.LastMessage.CreatedAt
	}
	return r.UpdatedAt
}

// AppendMessage stores the message document, seeds its read-set with the
// sender, and indexes it in the room's sorted set.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	readBy := msg.ReadBy
	msg.ReadBy = nil // read-set lives in its own key
	data, err := json.Marshal(msg)
	msg.ReadBy = readBy
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, messageKey(msg.ID), data, 0)
	if len(readBy) > 0 {
		members := make([]interface{}, len(readBy))
		for i, id := range readBy {
			members[i] = id
		}
		pipe.SAdd(ctx, readByKey(msg.ID), members...)
	}
	pipe.ZAdd(ctx, roomMessagesKey(msg.RoomID), redis.Z{
		Score:  float64(msg.CreatedAt),
		Member: msg.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.client.Publish(ctx, roomEventsChannel(msg.RoomID), msg.ID)
	return nil
}

// AddReadBy adds userID to a message's read-set. SADD is a set union, so
// re-marking an already-read message is a no-op.
func (s *RedisStore) AddReadBy(ctx context.Context, messageID, userID string) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message %s not found", messageID)
	}

	if err := s.client.SAdd(ctx, readByKey(messageID), userID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.client.Publish(ctx, roomEventsChannel(msg.RoomID), messageID)
	return nil
}

func (s *RedisStore) getMessage(ctx context.Context, messageID string) (*models.Message, error) {
	data, err := s.client.Get(ctx, messageKey(messageID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var msg models.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RoomMessages returns messages oldest-first. The store is queried
// newest-first for the bound, then reversed for display order.
func (s *RedisStore) RoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	key := roomMessagesKey(roomID)

	var ids []string
	var err error
	if limit > 0 {
		ids, err = s.client.ZRevRange(ctx, key, 0, int64(limit)-1).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, key, 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	messages := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.getMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue // evicted between index read and fetch
		}
		readBy, err := s.client.SMembers(ctx, readByKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		sort.Strings(readBy)
		msg.ReadBy = readBy
		messages = append(messages, *msg)
	}

	// Reverse to oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SubscribeRoomMessages re-delivers the current window on every room event.
func (s *RedisStore) SubscribeRoomMessages(ctx context.Context, roomID string, limit int) (<-chan []models.Message, Unsubscribe, error) {
	query := func(ctx context.Context) ([]models.Message, error) {
		return s.RoomMessages(ctx, roomID, limit)
	}
	return subscribeSnapshots(ctx, s.client, roomEventsChannel(roomID), query)
}

// DeleteMessage removes the message document, its read-set, and its index
// entry.
func (s *RedisStore) DeleteMessage(ctx context.Context, messageID string) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, roomMessagesKey(msg.RoomID), messageID)
	pipe.Del(ctx, messageKey(messageID), readByKey(messageID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.client.Publish(ctx, roomEventsChannel(msg.RoomID), messageID)
	return nil
}

// UpsertPresence writes the user's presence record, last-write-wins.
func (s *RedisStore) UpsertPresence(ctx context.Context, p *models.Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, presenceKey, p.UserID, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.client.Publish(ctx, presenceChannel, p.UserID)
	return nil
}

// GetPresence returns (nil, nil) for users who never connected.
func (s *RedisStore) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	data, err := s.client.HGet(ctx, presenceKey, userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var p models.Presence
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SubscribePresence delivers the full presence map on every change.
func (s *RedisStore) SubscribePresence(ctx context.Context) (<-chan map[string]models.Presence, Unsubscribe, error) {
	query := func(ctx context.Context) (map[string]models.Presence, error) {
		return s.allPresence(ctx)
	}
	return subscribeSnapshots(ctx, s.client, presenceChannel, query)
}

func (s *RedisStore) allPresence(ctx context.Context) (map[string]models.Presence, error) {
	entries, err := s.client.HGetAll(ctx, presenceKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := make(map[string]models.Presence, len(entries))
	for userID, data := range entries {
		var p models.Presence
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			continue
		}
		result[userID] = p
	}
	return result, nil
}

// subscribeSnapshots subscribes to a change channel and delivers the result
// of query after every signal. The output channel has a one-slot buffer and
// stale snapshots are dropped in favour of the latest, so a slow consumer
// always observes the current value.
func subscribeSnapshots[T any](ctx context.Context, client *redis.Client, channel string, query func(context.Context) (T, error)) (<-chan T, Unsubscribe, error) {
	initial, err := query(ctx)
	if err != nil {
		return nil, nil, err
	}

	pubsub := client.Subscribe(ctx, channel)
	out := make(chan T, 1)
	out <- initial

	done := make(chan struct{})
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		events := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				unsub()
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				snapshot, err := query(ctx)
				if err != nil {
					continue // transient; next signal retries
				}
				sendLatest(out, snapshot)
			}
		}
	}()

	return out, unsub, nil
}

// sendLatest replaces any undelivered snapshot with the newest one.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
