package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/api/middleware"
	"github.com/huddleapp/huddle/internal/handlers"
	"github.com/huddleapp/huddle/internal/notify"
	"github.com/huddleapp/huddle/internal/store"
)

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Logger      zerolog.Logger
	Notify      *notify.Service
	Data        store.DataStore
	Live        store.LiveStore
	JWTSecret   []byte
	RedisClient *redis.Client // nil disables rate limiting
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)

	// CORS - the dashboard frontend calls from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(cfg.Notify, cfg.Data, cfg.Live)
	auth := middleware.NewAuthMiddleware(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RedisClient, cfg.Logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Authenticated routes (bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(limiter.Middleware)

		r.Get("/users/team", h.ListTeam)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/unread-count", h.UnreadCount)
			r.Post("/mark-all-read", h.MarkAllNotificationsRead)
			r.Post("/task", h.IngestTaskEvent)
			r.Post("/{id}/read", h.MarkNotificationRead)
			r.Delete("/{id}", h.DeleteNotification)
		})
	})

	return r
}
