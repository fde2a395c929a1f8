package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/huddleapp/huddle/internal/api"
	"github.com/huddleapp/huddle/internal/chat"
	"github.com/huddleapp/huddle/internal/config"
	"github.com/huddleapp/huddle/internal/notify"
	"github.com/huddleapp/huddle/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the relational store (notifications, team directory).
	// PostgreSQL in production, SQLite as the development fallback.
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		if err := pgStore.InitSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("schema initialization failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqlStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqlStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer dataStore.Close()

	// Initialize the live store (rooms, messages, presence).
	// Redis in production, in-memory as the development fallback.
	var liveStore store.LiveStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		liveStore = redisStore
		redisClient = redisStore.Client()
		logger.Info().Msg("connected to Redis")
	} else {
		liveStore = store.NewMemoryStore()
		logger.Warn().Msg("no REDIS_URL set, chat state is in-memory only")
	}
	defer liveStore.Close()

	chatSvc := chat.NewService(liveStore, logger)
	notifySvc := notify.NewService(dataStore, dataStore, logger)

	// Bootstrap the shared room so it exists before the first client connects
	if _, err := chatSvc.ResolveGeneralRoom(ctx); err != nil {
		logger.Fatal().Err(err).Msg("general room bootstrap failed")
	}

	// Daily sweep of read notifications past the retention window
	retention := time.Duration(cfg.NotifRetentionDays) * 24 * time.Hour
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@daily", func() {
		if _, err := notifySvc.PurgeRead(context.Background(), retention); err != nil {
			logger.Error().Err(err).Msg("notification purge failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("cron schedule failed")
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Create router
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Notify:      notifySvc,
		Data:        dataStore,
		Live:        liveStore,
		JWTSecret:   []byte(cfg.JWTSecret),
		RedisClient: redisClient,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting Huddle server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
