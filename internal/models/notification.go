package models

import "time"

// Notification kinds produced by domain-event handlers.
const (
	NotificationTaskAssigned  = "task_assigned"
	NotificationTaskCompleted = "task_completed"
	NotificationTaskComment   = "task_comment"
	NotificationDealAssigned  = "deal_assigned"
	NotificationReminder      = "reminder"
	NotificationSystem        = "system"
)

// Notification is one mailbox row per recipient per domain event.
// Mutated only to flip IsRead/ReadAt; deleted explicitly by its recipient or
// by the retention sweep once read.
type Notification struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	RecipientID  string     `json:"recipient_id"`
	SenderID     string     `json:"sender_id,omitempty"`
	Link         string     `json:"link,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	IsRead       bool       `json:"is_read"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
