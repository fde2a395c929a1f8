package store

import (
	"context"
	"errors"
	"time"

	"github.com/huddleapp/huddle/internal/models"
)

// ErrUnavailable marks transient backend failures. Callers retry with
// backoff; no partial state is left behind (every create is a single
// document write).
var ErrUnavailable = errors.New("store unavailable")

// Unsubscribe stops a live subscription and releases its server-side
// listener. Safe to call more than once.
type Unsubscribe func()

// RoomStore holds room documents keyed by their stable ids.
type RoomStore interface {
	// UpsertRoom writes the room document, overwriting any existing one.
	UpsertRoom(ctx context.Context, room *models.Room) error
	// GetRoom returns (nil, nil) when the room does not exist.
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	// TouchRoom updates the room's last-message preview and updated-at.
	TouchRoom(ctx context.Context, id string, last models.LastMessage) error
	// SubscribeUserRooms delivers the full set of direct rooms the user
	// participates in, newest activity first, re-sent on every change.
	SubscribeUserRooms(ctx context.Context, userID string) (<-chan []models.Room, Unsubscribe, error)
}

// MessageStore is the append-only per-room message log.
type MessageStore interface {
	// AppendMessage stores the message, assigning ID and CreatedAt when
	// unset.
	AppendMessage(ctx context.Context, msg *models.Message) error
	// AddReadBy adds userID to the message's read-set (set union; re-adding
	// is a no-op). Unknown message ids are an error the caller may ignore.
	AddReadBy(ctx context.Context, messageID, userID string) error
	// RoomMessages returns messages oldest-first. limit > 0 bounds the
	// window to the newest N; limit <= 0 returns the whole room.
	RoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	// SubscribeRoomMessages re-delivers the current window on every
	// mutation of the room's message set. Full snapshots, not deltas;
	// intermediate states may be coalesced, the last value wins.
	SubscribeRoomMessages(ctx context.Context, roomID string, limit int) (<-chan []models.Message, Unsubscribe, error)
	// DeleteMessage removes a message. Rare admin action; no guarantees
	// attach to it.
	DeleteMessage(ctx context.Context, messageID string) error
}

// PresenceStore holds one ephemeral status record per user.
type PresenceStore interface {
	UpsertPresence(ctx context.Context, p *models.Presence) error
	GetPresence(ctx context.Context, userID string) (*models.Presence, error)
	// SubscribePresence delivers the full user-to-presence map on every
	// change.
	SubscribePresence(ctx context.Context) (<-chan map[string]models.Presence, Unsubscribe, error)
}

// LiveStore is the document store backing chat: per-document upsert/get plus
// query-with-live-subscription. Implemented by RedisStore and MemoryStore.
type LiveStore interface {
	RoomStore
	MessageStore
	PresenceStore

	Ping(ctx context.Context) error
	Close() error
}

// ListOptions narrows a mailbox listing.
type ListOptions struct {
	Limit      int
	UnreadOnly bool
}

// NotificationStore is the relational mailbox. All mutations are scoped by
// recipient: a mismatched recipient id filters to zero rows rather than
// erroring, so callers cannot probe other users' mailboxes.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID string, opts ListOptions) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, recipientID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) error
	DeleteNotification(ctx context.Context, id, recipientID string) error
	// PurgeRead deletes read notifications older than cutoff. Unread rows
	// are never purged.
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserStore is the team directory.
type UserStore interface {
	ListTeam(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	// FindUserByName matches first name or full display name,
	// case-insensitively. Returns (nil, nil) when nobody matches.
	FindUserByName(ctx context.Context, name string) (*models.User, error)
}

// DataStore is the relational side: notifications plus the user directory.
// Implemented by PostgresStore and SQLiteStore.
type DataStore interface {
	NotificationStore
	UserStore

	Ping(ctx context.Context) error
	Close() error
}
