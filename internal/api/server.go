// Package api assembles the HTTP surface: router, middleware, and handlers.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/risewell/notification-engine/internal/api/handler"
	"github.com/risewell/notification-engine/internal/cache"
	"github.com/risewell/notification-engine/internal/config"
	"github.com/risewell/notification-engine/internal/engine"
	"github.com/risewell/notification-engine/internal/retention"
	"github.com/risewell/notification-engine/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(
	eng *engine.Engine,
	enforcer *retention.Enforcer,
	stores *store.Stores,
	pool *pgxpool.Pool,
	appCache *cache.Cache,
	cfg *config.Config,
) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(eng, enforcer, stores, pool, appCache, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Users
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/analyze", h.AnalyzeUser)
			r.Get("/state", h.GetLatestState)
			r.Get("/profile", h.GetProfile)
			r.Get("/notifications", h.GetUserLogs)
			r.Post("/notifications", h.ScheduleNotification)
			r.Delete("/notifications/schedule/{entryID}", h.CancelScheduled)
			r.Delete("/", h.DeleteUser)
		})

		// Delivery receipts and interactions
		r.Post("/schedule/{entryID}/delivered", h.ConfirmDelivery)
		r.Post("/notifications/{logID}/interaction", h.RecordInteraction)

		// Experiments
		r.Route("/experiments", func(r chi.Router) {
			r.Post("/", h.CreateExperiment)
			r.Post("/{name}/status", h.UpdateExperimentStatus)
			r.Get("/{name}/results", h.GetExperimentResults)
		})

		// Audit trail
		r.Get("/audit/{entityType}/{entityID}", h.GetAuditTrail)
	})

	return r
}
