package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huddle_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_messages_sent_total",
			Help: "Total chat messages sent",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_notifications_created_total",
			Help: "Total notifications fanned out",
		},
		[]string{"type"},
	)

	NotificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_notifications_purged_total",
			Help: "Total notifications removed by the retention sweep",
		},
	)

	PresenceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_presence_updates_total",
			Help: "Total presence status writes",
		},
		[]string{"status"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
