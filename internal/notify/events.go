package notify

import (
	"context"
	"fmt"

	"github.com/huddleapp/huddle/internal/models"
)

// Helper constructors, one per domain event kind. Each enforces its own
// "don't notify the acting user about their own action" rule: when the actor
// is the recipient the helper returns (nil, nil) and stores nothing.

// TaskAssignedParams describes a task-assignment event.
type TaskAssignedParams struct {
	TaskTitle      string
	TaskID         string
	AssigneeUserID string
	AssignerUserID string
	AssignerName   string
}

// NotifyTaskAssigned fans out a task-assignment notification to the
// assignee.
func (s *Service) NotifyTaskAssigned(ctx context.Context, p TaskAssignedParams) (*models.Notification, error) {
	if p.AssigneeUserID == p.AssignerUserID {
		return nil, nil
	}
	return s.Create(ctx, &models.Notification{
		Type:         models.NotificationTaskAssigned,
		Title:        "New task assigned",
		Message:      fmt.Sprintf("%s assigned you the task: %q", p.AssignerName, p.TaskTitle),
		RecipientID:  p.AssigneeUserID,
		SenderID:     p.AssignerUserID,
		Link:         "/tasks",
		ResourceID:   p.TaskID,
		ResourceType: "task",
	})
}

// TaskCompletedParams describes a task-completion event.
type TaskCompletedParams struct {
	TaskTitle         string
	TaskID            string
	CompletedByUserID string
	CompletedByName   string
	TaskCreatorUserID string
}

// NotifyTaskCompleted tells the task's creator their task was completed.
func (s *Service) NotifyTaskCompleted(ctx context.Context, p TaskCompletedParams) (*models.Notification, error) {
	if p.CompletedByUserID == p.TaskCreatorUserID {
		return nil, nil
	}
	return s.Create(ctx, &models.Notification{
		Type:         models.NotificationTaskCompleted,
		Title:        "Task completed",
		Message:      fmt.Sprintf("%s completed the task: %q", p.CompletedByName, p.TaskTitle),
		RecipientID:  p.TaskCreatorUserID,
		SenderID:     p.CompletedByUserID,
		Link:         "/tasks",
		ResourceID:   p.TaskID,
		ResourceType: "task",
	})
}

// TaskCommentParams describes a new comment on a task.
type TaskCommentParams struct {
	TaskTitle         string
	TaskID            string
	CommenterUserID   string
	CommenterName     string
	TaskCreatorUserID string
}

// NotifyTaskComment tells the task's creator about a new comment.
func (s *Service) NotifyTaskComment(ctx context.Context, p TaskCommentParams) (*models.Notification, error) {
	if p.CommenterUserID == p.TaskCreatorUserID {
		return nil, nil
	}
	return s.Create(ctx, &models.Notification{
		Type:         models.NotificationTaskComment,
		Title:        "New comment on task",
		Message:      fmt.Sprintf("%s commented on the task: %q", p.CommenterName, p.TaskTitle),
		RecipientID:  p.TaskCreatorUserID,
		SenderID:     p.CommenterUserID,
		Link:         "/tasks",
		ResourceID:   p.TaskID,
		ResourceType: "task",
	})
}

// DealAssignedParams describes a deal-assignment event.
type DealAssignedParams struct {
	DealName       string
	DealID         string
	AssigneeUserID string
	AssignerUserID string
	AssignerName   string
}

// NotifyDealAssigned fans out a deal-assignment notification.
func (s *Service) NotifyDealAssigned(ctx context.Context, p DealAssignedParams) (*models.Notification, error) {
	if p.AssigneeUserID == p.AssignerUserID {
		return nil, nil
	}
	return s.Create(ctx, &models.Notification{
		Type:         models.NotificationDealAssigned,
		Title:        "Deal assigned",
		Message:      fmt.Sprintf("%s assigned you the deal: %q", p.AssignerName, p.DealName),
		RecipientID:  p.AssigneeUserID,
		SenderID:     p.AssignerUserID,
		Link:         "/crm",
		ResourceID:   p.DealID,
		ResourceType: "deal",
	})
}

// ReminderParams describes a reminder firing.
type ReminderParams struct {
	ReminderTitle  string
	ReminderID     string
	DealName       string
	AssigneeUserID string
}

// NotifyReminder fans out a reminder notification. Reminders have no acting
// user, so there is no self-action rule.
func (s *Service) NotifyReminder(ctx context.Context, p ReminderParams) (*models.Notification, error) {
	return s.Create(ctx, &models.Notification{
		Type:         models.NotificationReminder,
		Title:        "Reminder",
		Message:      fmt.Sprintf("You have a reminder: %q for %s", p.ReminderTitle, p.DealName),
		RecipientID:  p.AssigneeUserID,
		Link:         "/crm",
		ResourceID:   p.ReminderID,
		ResourceType: "reminder",
	})
}

// SystemParams describes a system-originated notification.
type SystemParams struct {
	Title       string
	Message     string
	RecipientID string
	Link        string
}

// NotifySystem fans out a system notification.
func (s *Service) NotifySystem(ctx context.Context, p SystemParams) (*models.Notification, error) {
	return s.Create(ctx, &models.Notification{
		Type:        models.NotificationSystem,
		Title:       p.Title,
		Message:     p.Message,
		RecipientID: p.RecipientID,
		Link:        p.Link,
	})
}
