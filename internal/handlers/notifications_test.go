package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/huddleapp/huddle/internal/api"
	"github.com/huddleapp/huddle/internal/auth"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/notify"
	"github.com/huddleapp/huddle/internal/store"
)

var testSecret = []byte("test-secret")

type fixture struct {
	server *httptest.Server
	mem    *store.MemoryStore
	notify *notify.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	notifySvc := notify.NewService(mem, mem, zerolog.Nop())

	router := api.NewRouter(api.RouterConfig{
		Logger:    zerolog.Nop(),
		Notify:    notifySvc,
		Data:      mem,
		Live:      mem,
		JWTSecret: testSecret,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, mem: mem, notify: notifySvc}
}

func (f *fixture) request(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := auth.GenerateToken(testSecret, userID, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestNotificationsRequireAuth(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := f.request(t, "GET", "/notifications", "", nil)
	resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// A garbage token is rejected too.
	httpReq, _ := http.NewRequest("GET", f.server.URL+"/notifications", nil)
	httpReq.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	resp2.Body.Close()
	req.Equal(http.StatusUnauthorized, resp2.StatusCode)
}

func TestListNotificationsEmpty(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := f.request(t, "GET", "/notifications", "bob", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	list := decode[[]models.Notification](t, resp)
	req.NotNil(list)
	req.Empty(list)
}

func TestNotificationReadFlow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.notify.NotifySystem(ctx, notify.SystemParams{
		Title:       "Welcome",
		Message:     "Welcome aboard",
		RecipientID: "bob",
	})
	req.NoError(err)

	resp := f.request(t, "GET", "/notifications/unread-count", "bob", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	count := decode[map[string]int64](t, resp)
	req.Equal(int64(1), count["count"])

	resp = f.request(t, "POST", "/notifications/"+n.ID+"/read", "bob", nil)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = f.request(t, "GET", "/notifications/unread-count", "bob", nil)
	count = decode[map[string]int64](t, resp)
	req.Zero(count["count"])

	// Another recipient's mailbox is untouched and theirs stays scoped.
	resp = f.request(t, "GET", "/notifications", "carol", nil)
	list := decode[[]models.Notification](t, resp)
	req.Empty(list)
}

func TestMarkAllAndUnreadOnlyFilter(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := f.notify.NotifySystem(ctx, notify.SystemParams{Title: title, RecipientID: "bob"})
		req.NoError(err)
	}

	resp := f.request(t, "POST", "/notifications/mark-all-read", "bob", nil)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = f.request(t, "GET", "/notifications?unreadOnly=true", "bob", nil)
	list := decode[[]models.Notification](t, resp)
	req.Empty(list)

	resp = f.request(t, "GET", "/notifications", "bob", nil)
	list = decode[[]models.Notification](t, resp)
	req.Len(list, 3)
}

func TestDeleteNotification(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.notify.NotifySystem(ctx, notify.SystemParams{Title: "gone soon", RecipientID: "bob"})
	req.NoError(err)

	resp := f.request(t, "DELETE", "/notifications/"+n.ID, "bob", nil)
	resp.Body.Close()
	req.Equal(http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, "GET", "/notifications", "bob", nil)
	list := decode[[]models.Notification](t, resp)
	req.Empty(list)
}

func TestIngestTaskEvent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.mem.AddUser(models.User{ID: "bob", FirstName: "Bob", LastName: "Stone"})
	f.mem.AddUser(models.User{ID: "alice", FirstName: "Alice", LastName: "Meyer"})

	body := map[string]string{
		"type":          models.NotificationTaskAssigned,
		"task_title":    "Ship it",
		"task_id":       "task-9",
		"assignee_name": "Bob",
		"sender_name":   "Alice",
	}
	resp := f.request(t, "POST", "/notifications/task", "alice", body)
	req.Equal(http.StatusCreated, resp.StatusCode)
	result := decode[struct {
		Success      bool                 `json:"success"`
		Notification *models.Notification `json:"notification"`
	}](t, resp)
	req.True(result.Success)
	req.NotNil(result.Notification)
	req.Equal("bob", result.Notification.RecipientID)

	resp = f.request(t, "GET", "/notifications/unread-count", "bob", nil)
	count := decode[map[string]int64](t, resp)
	req.Equal(int64(1), count["count"])
}

func TestIngestTaskEventSkipPaths(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.mem.AddUser(models.User{ID: "alice", FirstName: "Alice", LastName: "Meyer"})

	// Unknown recipient name: reported skipped, not an error.
	body := map[string]string{
		"type":          models.NotificationTaskAssigned,
		"task_title":    "Orphan task",
		"assignee_name": "Nobody Here",
		"sender_name":   "Alice",
	}
	resp := f.request(t, "POST", "/notifications/task", "alice", body)
	req.Equal(http.StatusOK, resp.StatusCode)
	result := decode[struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}](t, resp)
	req.True(result.Success)
	req.Contains(result.Message, "skipped")

	// Self-assignment: skipped as well.
	body["assignee_name"] = "Alice"
	resp = f.request(t, "POST", "/notifications/task", "alice", body)
	req.Equal(http.StatusOK, resp.StatusCode)
	result = decode[struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}](t, resp)
	req.True(result.Success)
	req.Contains(result.Message, "self-action")

	// Unknown event type is the caller's mistake.
	f.mem.AddUser(models.User{ID: "bob", FirstName: "Bob"})
	body["assignee_name"] = "Bob"
	body["type"] = "task_exploded"
	resp = f.request(t, "POST", "/notifications/task", "alice", body)
	resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestListTeam(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.mem.AddUser(models.User{ID: "u1", FirstName: "Alice", LastName: "Meyer", Email: "alice@example.com"})
	f.mem.AddUser(models.User{ID: "u2", FirstName: "Bob", LastName: "Stone", Email: "bob@example.com"})

	resp := f.request(t, "GET", "/users/team", "u1", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	team := decode[[]struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
	}](t, resp)
	req.Len(team, 2)
	req.Equal("Alice", team[0].FirstName)
	req.Equal("Bob", team[1].FirstName)
}

func TestHealthPublic(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := f.request(t, "GET", "/health", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	req.Equal("healthy", health["status"])
}
