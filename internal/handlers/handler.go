package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/huddleapp/huddle/internal/notify"
	"github.com/huddleapp/huddle/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	notify *notify.Service
	data   store.DataStore
	live   store.LiveStore
}

// NewHandler creates a new Handler with the given services and stores.
func NewHandler(n *notify.Service, data store.DataStore, live store.LiveStore) *Handler {
	return &Handler{notify: n, data: data, live: live}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
