// Package huddle provides a client for the Huddle team chat and
// notification API.
package huddle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a Huddle API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client. The token is the bearer token sent on
// every authenticated request.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("huddle error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// TeamMember is a member of the workspace directory.
type TeamMember struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

// DisplayName returns the member's full name.
func (m TeamMember) DisplayName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// ListTeam retrieves the workspace member directory.
func (c *Client) ListTeam() ([]TeamMember, error) {
	respBody, err := c.doRequest("GET", "/users/team", nil)
	if err != nil {
		return nil, err
	}

	var members []TeamMember
	if err := json.Unmarshal(respBody, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Notification is a per-recipient notification record.
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

// ListNotifications retrieves the caller's notifications, newest first.
// A limit of 0 uses the server default. Set unreadOnly to filter out
// notifications that have already been read.
func (c *Client) ListNotifications(limit int, unreadOnly bool) ([]Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if unreadOnly {
		q.Set("unreadOnly", "true")
	}

	path := "/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var notifications []Notification
	if err := json.Unmarshal(respBody, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount returns the caller's unread notification count.
func (c *Client) UnreadCount() (int64, error) {
	respBody, err := c.doRequest("GET", "/notifications/unread-count", nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(notificationID string) error {
	_, err := c.doRequest("POST", "/notifications/"+notificationID+"/read", nil)
	return err
}

// MarkAllRead marks all of the caller's notifications as read.
func (c *Client) MarkAllRead() error {
	_, err := c.doRequest("POST", "/notifications/mark-all-read", nil)
	return err
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(notificationID string) error {
	_, err := c.doRequest("DELETE", "/notifications/"+notificationID, nil)
	return err
}

// Check is one dependency probe in the health report.
type Check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the server health report.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
