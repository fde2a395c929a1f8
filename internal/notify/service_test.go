package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/store"
)

func newTestService() (*Service, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	return NewService(mem, mem, zerolog.Nop()), mem
}

func TestNotifyTaskAssigned(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	n, err := svc.NotifyTaskAssigned(ctx, TaskAssignedParams{
		TaskTitle:      "Ship the release",
		TaskID:         "task-1",
		AssigneeUserID: "bob",
		AssignerUserID: "alice",
		AssignerName:   "Alice",
	})
	req.NoError(err)
	req.NotNil(n)
	req.NotEmpty(n.ID)
	req.Equal(models.NotificationTaskAssigned, n.Type)
	req.Equal("bob", n.RecipientID)
	req.Contains(n.Message, "Alice")
	req.Contains(n.Message, "Ship the release")

	count, err := svc.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Equal(int64(1), count)
}

func TestSelfActionStoresNothing(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	n, err := svc.NotifyTaskAssigned(ctx, TaskAssignedParams{
		TaskTitle:      "Solo task",
		AssigneeUserID: "alice",
		AssignerUserID: "alice",
		AssignerName:   "Alice",
	})
	req.NoError(err)
	req.Nil(n)

	n, err = svc.NotifyTaskCompleted(ctx, TaskCompletedParams{
		TaskTitle:         "Solo task",
		CompletedByUserID: "alice",
		TaskCreatorUserID: "alice",
	})
	req.NoError(err)
	req.Nil(n)

	count, err := svc.UnreadCount(ctx, "alice")
	req.NoError(err)
	req.Zero(count)
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	n, err := svc.NotifySystem(ctx, SystemParams{
		Title:       "Welcome",
		Message:     "Welcome to the workspace",
		RecipientID: "bob",
	})
	req.NoError(err)

	// Another user marking bob's notification is a silent no-op.
	req.NoError(svc.MarkRead(ctx, n.ID, "mallory"))
	count, err := svc.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Equal(int64(1), count)

	req.NoError(svc.MarkRead(ctx, n.ID, "bob"))
	count, err = svc.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Zero(count)
}

func TestDeleteScopedToRecipient(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	n, err := svc.NotifySystem(ctx, SystemParams{
		Title:       "Welcome",
		RecipientID: "bob",
	})
	req.NoError(err)

	req.NoError(svc.Delete(ctx, n.ID, "mallory"))
	list, err := svc.ListByUser(ctx, "bob", store.ListOptions{})
	req.NoError(err)
	req.Len(list, 1)

	req.NoError(svc.Delete(ctx, n.ID, "bob"))
	list, err = svc.ListByUser(ctx, "bob", store.ListOptions{})
	req.NoError(err)
	req.Empty(list)
}

func TestMarkAllRead(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.NotifyReminder(ctx, ReminderParams{
			ReminderTitle:  "Follow up",
			DealName:       "Acme",
			AssigneeUserID: "bob",
		})
		req.NoError(err)
	}
	_, err := svc.NotifySystem(ctx, SystemParams{Title: "Other", RecipientID: "carol"})
	req.NoError(err)

	req.NoError(svc.MarkAllRead(ctx, "bob"))

	count, err := svc.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Zero(count)

	// Other mailboxes are untouched.
	count, err = svc.UnreadCount(ctx, "carol")
	req.NoError(err)
	req.Equal(int64(1), count)
}

func TestListUnreadOnly(t *testing.T) {
	req := require.New(t)
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.NotifySystem(ctx, SystemParams{Title: "First", RecipientID: "bob"})
	req.NoError(err)
	_, err = svc.NotifySystem(ctx, SystemParams{Title: "Second", RecipientID: "bob"})
	req.NoError(err)

	req.NoError(svc.MarkRead(ctx, first.ID, "bob"))

	list, err := svc.ListByUser(ctx, "bob", store.ListOptions{UnreadOnly: true})
	req.NoError(err)
	req.Len(list, 1)
	req.Equal("Second", list[0].Title)
}

func TestPurgeReadKeepsUnread(t *testing.T) {
	req := require.New(t)
	svc, mem := newTestService()
	ctx := context.Background()

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	readAt := old.Add(time.Hour)

	// An old read notification, an old unread one, and a fresh read one.
	req.NoError(mem.CreateNotification(ctx, &models.Notification{
		Type: models.NotificationSystem, Title: "old read",
		RecipientID: "bob", IsRead: true, ReadAt: &readAt, CreatedAt: old,
	}))
	req.NoError(mem.CreateNotification(ctx, &models.Notification{
		Type: models.NotificationSystem, Title: "old unread",
		RecipientID: "bob", CreatedAt: old,
	}))
	req.NoError(mem.CreateNotification(ctx, &models.Notification{
		Type: models.NotificationSystem, Title: "fresh read",
		RecipientID: "bob", IsRead: true, ReadAt: &readAt,
	}))

	purged, err := svc.PurgeRead(ctx, 30*24*time.Hour)
	req.NoError(err)
	req.Equal(int64(1), purged)

	list, err := svc.ListByUser(ctx, "bob", store.ListOptions{})
	req.NoError(err)
	req.Len(list, 2)
	for _, n := range list {
		req.NotEqual("old read", n.Title)
	}
}
