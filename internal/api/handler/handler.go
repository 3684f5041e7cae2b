// Package handler provides HTTP handlers for all API endpoints. Handlers
// delegate to the engine facade and map its sentinel errors onto HTTP
// status codes.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/api/respond"
	"github.com/risewell/notification-engine/internal/cache"
	"github.com/risewell/notification-engine/internal/config"
	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/engine"
	"github.com/risewell/notification-engine/internal/retention"
	"github.com/risewell/notification-engine/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	engine   *engine.Engine
	enforcer *retention.Enforcer
	stores   *store.Stores
	pool     *pgxpool.Pool
	cache    *cache.Cache
	cfg      *config.Config
}

// New creates a Handler with shared dependencies. pool may be nil when the
// API runs on the in-memory stores (local development).
func New(eng *engine.Engine, enforcer *retention.Enforcer, stores *store.Stores, pool *pgxpool.Pool, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		engine:   eng,
		enforcer: enforcer,
		stores:   stores,
		pool:     pool,
		cache:    c,
		cfg:      cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Risewell Notification Engine",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "in-memory",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeEngineError maps engine sentinel errors onto HTTP statuses. Unknown
// errors become 500; callers that expect validation failures pass
// badRequest=true to get 400 instead.
func writeEngineError(w http.ResponseWriter, err error, badRequest bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrNoTemplateAvailable):
		respond.WriteError(w, http.StatusUnprocessableEntity, "NO_TEMPLATE_AVAILABLE",
			"No template exists for the requested emotion and tone")
	case errors.Is(err, domain.ErrNotCancellable):
		respond.WriteError(w, http.StatusConflict, "NOT_CANCELLABLE",
			"Entry already claimed for delivery or in a terminal state")
	case errors.Is(err, domain.ErrDuplicateName):
		respond.WriteError(w, http.StatusConflict, "DUPLICATE_NAME", "Name already in use")
	case errors.Is(err, domain.ErrTerminalState):
		respond.WriteError(w, http.StatusConflict, "TERMINAL_STATE",
			"Entry is in a terminal state")
	case badRequest:
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request", err.Error())
	default:
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
