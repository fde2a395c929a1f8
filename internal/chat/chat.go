// Package chat implements the collaboration core: room resolution, the
// message log, read tracking, and presence, all over an injected live store.
package chat

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/store"
)

// ErrEmptyMessage rejects sends whose text is empty or whitespace-only.
var ErrEmptyMessage = errors.New("message text is empty")

// DefaultWindow is the newest-N bound on a room subscription.
const DefaultWindow = 100

// previewLen bounds the last-message preview stored on the room.
const previewLen = 50

// Service exposes the chat operations. All state lives in the store; the
// service holds no caches, so any number of Services over the same store see
// the same data.
type Service struct {
	store store.LiveStore
	log   zerolog.Logger
}

// NewService creates a chat service over the given live store.
func NewService(s store.LiveStore, log zerolog.Logger) *Service {
	return &Service{store: s, log: log}
}
