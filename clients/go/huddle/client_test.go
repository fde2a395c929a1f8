package huddle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSendsBearerToken(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("Bearer tok-123", r.Header.Get("Authorization"))
		req.Equal("/notifications/unread-count", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int64{"count": 7})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	count, err := c.UnreadCount()
	req.NoError(err)
	req.Equal(int64(7), count)
}

func TestClientListNotificationsQuery(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("25", r.URL.Query().Get("limit"))
		req.Equal("true", r.URL.Query().Get("unreadOnly"))
		json.NewEncoder(w).Encode([]Notification{{ID: "n1", Title: "hi"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	list, err := c.ListNotifications(25, true)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal("n1", list[0].ID)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	_, err := c.ListTeam()
	req.Error(err)
	req.Contains(err.Error(), "invalid or expired token")
	req.Contains(err.Error(), "401")
}
