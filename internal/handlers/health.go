package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Relational store (notifications, directory)
	if h.data != nil {
		start := time.Now()
		if err := h.data.Ping(ctx); err != nil {
			checks["data"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["data"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["data"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	// Live store (rooms, messages, presence)
	if h.live != nil {
		start := time.Now()
		if err := h.live.Ping(ctx); err != nil {
			checks["live"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["live"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["live"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "Huddle",
		Version: version,
	})
}
