package models

// RoomKind identifies how a room came to exist and who belongs in it.
type RoomKind string

const (
	RoomGeneral   RoomKind = "general"
	RoomDirect    RoomKind = "direct"
	RoomAssistant RoomKind = "assistant"
)

// LastMessage is the truncated preview stored on a room after every send.
type LastMessage struct {
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
	CreatedAt  int64  `json:"created_at"` // Unix ms
}

// Room is a named channel owning an ordered message log.
// Rooms are created lazily and never deleted. Direct room ids are a pure
// function of the two participant ids, so racing creators converge on the
// same document and the losing write overwrites identical data.
type Room struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Kind             RoomKind          `json:"kind"`
	Participants     []string          `json:"participants"`
	ParticipantNames map[string]string `json:"participant_names,omitempty"`
	LastMessage      *LastMessage      `json:"last_message,omitempty"`
	CreatedAt        int64             `json:"created_at"` // Unix ms
	UpdatedAt        int64             `json:"updated_at"` // Unix ms
}

// HasParticipant reports whether userID belongs to the room.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
