package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/huddleapp/huddle/internal/api/middleware"
	"github.com/huddleapp/huddle/internal/models"
	"github.com/huddleapp/huddle/internal/notify"
	"github.com/huddleapp/huddle/internal/store"
)

// UnreadCountResponse is the badge payload the UI polls.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// TaskEventRequest is a domain event ingested from the task feature. The
// recipient arrives as a display name, not an id; the handler resolves it
// against the directory.
type TaskEventRequest struct {
	Type         string `json:"type"`
	TaskTitle    string `json:"task_title"`
	TaskID       string `json:"task_id"`
	AssigneeName string `json:"assignee_name"`
	SenderName   string `json:"sender_name"`
}

// TaskEventResponse reports the fan-out result.
type TaskEventResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// ListNotifications handles GET /notifications for the logged-in user.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())

	opts := store.ListOptions{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if opts.Limit > 200 {
		opts.Limit = 200
	}
	opts.UnreadOnly = r.URL.Query().Get("unreadOnly") == "true"

	notifications, err := h.notify.ListByUser(r.Context(), userID, opts)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	h.JSON(w, http.StatusOK, notifications)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())

	count, err := h.notify.UnreadCount(r.Context(), userID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	h.JSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkNotificationRead handles POST /notifications/{id}/read. Marking a
// notification the caller does not own is a silent no-op.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.notify.MarkRead(r.Context(), id, userID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MarkAllNotificationsRead handles POST /notifications/mark-all-read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())

	if err := h.notify.MarkAllRead(r.Context(), userID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteNotification handles DELETE /notifications/{id}: no body, 204.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.notify.Delete(r.Context(), id, userID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IngestTaskEvent handles POST /notifications/task. Resolves the recipient
// by display name; unknown recipients and self-actions are reported as
// skipped, not errors.
func (h *Handler) IngestTaskEvent(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.UserFromContext(r.Context())

	var req TaskEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	recipient, err := h.data.FindUserByName(r.Context(), req.AssigneeName)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	if recipient == nil {
		// Not every team member has an account; skip quietly.
		h.JSON(w, http.StatusOK, TaskEventResponse{Success: true, Message: "user not found, notification skipped"})
		return
	}
	if recipient.ID == senderID {
		h.JSON(w, http.StatusOK, TaskEventResponse{Success: true, Message: "self-action, notification skipped"})
		return
	}

	var notification *models.Notification
	switch req.Type {
	case models.NotificationTaskAssigned:
		notification, err = h.notify.NotifyTaskAssigned(r.Context(), notify.TaskAssignedParams{
			TaskTitle:      req.TaskTitle,
			TaskID:         req.TaskID,
			AssigneeUserID: recipient.ID,
			AssignerUserID: senderID,
			AssignerName:   req.SenderName,
		})
	case models.NotificationTaskCompleted:
		// For completion events the resolved name is the task's creator.
		notification, err = h.notify.NotifyTaskCompleted(r.Context(), notify.TaskCompletedParams{
			TaskTitle:         req.TaskTitle,
			TaskID:            req.TaskID,
			CompletedByUserID: senderID,
			CompletedByName:   req.SenderName,
			TaskCreatorUserID: recipient.ID,
		})
	case models.NotificationTaskComment:
		notification, err = h.notify.NotifyTaskComment(r.Context(), notify.TaskCommentParams{
			TaskTitle:         req.TaskTitle,
			TaskID:            req.TaskID,
			CommenterUserID:   senderID,
			CommenterName:     req.SenderName,
			TaskCreatorUserID: recipient.ID,
		})
	default:
		h.Error(w, http.StatusBadRequest, "unknown event type")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	h.JSON(w, http.StatusCreated, TaskEventResponse{Success: true, Notification: notification})
}
