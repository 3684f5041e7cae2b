// Command api is the Risewell notification engine API server.
//
// Usage:
//
//	notification-api
//	API_PORT=8080 notification-api

// @title Risewell Notification Engine API
// @version 1.0.0
// @description Adaptive notification engine: behavioral emotion classification, template selection with A/B experiments, durable delivery scheduling with retry, and per-user effectiveness learning.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Risewell
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/risewell/notification-engine/internal/api"
	"github.com/risewell/notification-engine/internal/cache"
	"github.com/risewell/notification-engine/internal/config"
	"github.com/risewell/notification-engine/internal/db"
	"github.com/risewell/notification-engine/internal/engine"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/learner"
	"github.com/risewell/notification-engine/internal/push"
	"github.com/risewell/notification-engine/internal/retention"
	"github.com/risewell/notification-engine/internal/scheduler"
	"github.com/risewell/notification-engine/internal/store/postgres"

	_ "github.com/risewell/notification-engine/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Assemble the engine
	stores := postgres.NewStores(pool.Pool)
	catalog := postgres.NewCatalog(pool.Pool)
	bus := events.NewBus()
	trail := events.NewTrail(stores.Audit, logger)

	eng := engine.New(stores, catalog, bus, trail, engine.Config{
		MaxAttempts:     cfg.MaxAttempts,
		QuietStartHour:  cfg.QuietStartHour,
		QuietEndHour:    cfg.QuietEndHour,
		EscalationDays:  cfg.EscalationDays,
		StateRetention:  cfg.StateRetention,
		ProudStreakDays: cfg.ProudStreakDays,
	}, logger)

	// The learner consumes log events: template counters and profiles.
	bus.Subscribe(learner.New(stores.Logs, stores.Profiles, catalog, logger))

	enforcer := retention.NewEnforcer(stores, trail, retention.Config{
		StateRetention:          cfg.StateRetention,
		FailedEntryRetention:    cfg.FailedEntryRetention,
		DeliveredEntryRetention: cfg.DeliveredEntryRetention,
	}, logger)

	// Start delivery dispatch worker (if FCM is configured)
	transport := push.NewFCMTransport(cfg.FCMCredentialsFile, logger)
	if transport != nil {
		worker := scheduler.NewWorker(stores.Schedules, stores.Logs, bus, trail, transport, scheduler.Config{
			Interval:        cfg.DispatchInterval,
			BatchSize:       cfg.DispatchBatchSize,
			Workers:         cfg.DispatchWorkers,
			DeliveryTimeout: cfg.DeliveryTimeout,
			RetryBackoff:    cfg.RetryBackoff,
		}, logger)
		go worker.Start(ctx)
		logger.Info("Delivery dispatch worker started")
	} else {
		logger.Info("Delivery dispatch worker disabled (no FIREBASE_CREDENTIALS_FILE)")
	}

	// Background jobs: daily retention pass, hourly experiment aggregation.
	// SkipIfStillRunning guarantees runs never overlap.
	jobs := startJobs(ctx, cfg, eng, enforcer, logger)
	defer jobs.Stop()

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Create router
	router := api.NewRouter(eng, enforcer, stores, pool.Pool, appCache, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Risewell Notification Engine API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// startJobs schedules the retention and aggregation crons.
func startJobs(ctx context.Context, cfg *config.Config, eng *engine.Engine, enforcer *retention.Enforcer, logger *slog.Logger) *cron.Cron {
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)))

	if _, err := c.AddFunc(cfg.RetentionCronSpec, func() {
		if err := enforcer.Run(ctx); err != nil {
			logger.Error("Retention pass failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid retention cron spec", "spec", cfg.RetentionCronSpec, "error", err)
		os.Exit(1)
	}

	if _, err := c.AddFunc(cfg.AggregationCronSpec, func() {
		if err := eng.Aggregator().Run(ctx); err != nil {
			logger.Error("Experiment aggregation failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid aggregation cron spec", "spec", cfg.AggregationCronSpec, "error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("Background jobs scheduled",
		"retention", cfg.RetentionCronSpec,
		"aggregation", cfg.AggregationCronSpec)
	return c
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, "error", err)...)
}
