package models

// PresenceStatus is a user's ephemeral availability.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// Presence is one record per user, upserted in place with last-write-wins.
// There is no timer-based demotion: a client that dies without sending its
// unload signal stays online or away until it next reconnects.
type Presence struct {
	UserID   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen int64          `json:"last_seen"` // Unix ms
}
