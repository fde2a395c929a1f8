package models

// Message is a chat message stored in the live store.
// Immutable after creation except for ReadBy, which only grows.
type Message struct {
	ID          string   `json:"id"` // ULID
	RoomID      string   `json:"room_id"`
	Text        string   `json:"text"`
	SenderID    string   `json:"sender_id"`
	SenderName  string   `json:"sender_name"`
	SenderPhoto string   `json:"sender_photo,omitempty"`
	CreatedAt   int64    `json:"created_at"` // Unix ms
	ReadBy      []string `json:"read_by"`    // always contains SenderID
}

// ReadByUser reports whether userID is in the message's read-set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// UnreadFor reports whether the message counts as unread for userID.
// A user's own messages never count as unread for them.
func (m *Message) UnreadFor(userID string) bool {
	return m.SenderID != userID && !m.ReadByUser(userID)
}
