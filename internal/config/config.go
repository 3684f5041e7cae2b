// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/engine.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	EmotionalStatesTable  = "emotional_states"
	ScheduleEntriesTable  = "schedule_entries"
	NotificationLogsTable = "notification_logs"
	UserProfilesTable     = "user_emotional_profiles"
	ExperimentsTable      = "experiments"
	MessageTemplatesTable = "message_templates"
	AuditEventsTable      = "audit_events"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Delivery
	FCMCredentialsFile string
	DispatchInterval   time.Duration
	DispatchBatchSize  int
	DispatchWorkers    int
	DeliveryTimeout    time.Duration
	RetryBackoff       time.Duration // minimum wait between attempts
	MaxAttempts        int

	// Quiet hours — sends inside the window defer to QuietEndHour
	QuietStartHour int
	QuietEndHour   int

	// Escalation — ascending day-count boundaries for the five levels
	// (gentle, nudge, concerned, firm, major_reset). Configuration, not a
	// hard-coded contract.
	EscalationDays []int

	// Proud requires at least this streak length; below it, happy.
	ProudStreakDays int

	// Retention windows
	StateRetention          time.Duration // emotional states
	FailedEntryRetention    time.Duration // failed schedule entries
	DeliveredEntryRetention time.Duration // sent/delivered schedule entries

	// Cron specs (robfig/cron, standard 5-field)
	RetentionCronSpec   string
	AggregationCronSpec string

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("NEON_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or NEON_DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		FCMCredentialsFile: envOr("FIREBASE_CREDENTIALS_FILE", ""),
		DispatchInterval:   time.Duration(envInt("DISPATCH_INTERVAL_SECONDS", 30)) * time.Second,
		DispatchBatchSize:  envInt("DISPATCH_BATCH_SIZE", 100),
		DispatchWorkers:    envInt("DISPATCH_WORKERS", 4),
		DeliveryTimeout:    time.Duration(envInt("DELIVERY_TIMEOUT_SECONDS", 15)) * time.Second,
		RetryBackoff:       time.Duration(envInt("RETRY_BACKOFF_MINUTES", 60)) * time.Minute,
		MaxAttempts:        envInt("MAX_DELIVERY_ATTEMPTS", 3),

		QuietStartHour: envInt("QUIET_START_HOUR", 22),
		QuietEndHour:   envInt("QUIET_END_HOUR", 9),

		EscalationDays:  envIntList("ESCALATION_DAYS", []int{1, 3, 7, 14, 30}),
		ProudStreakDays: envInt("PROUD_STREAK_DAYS", 7),

		StateRetention:          time.Duration(envInt("STATE_RETENTION_DAYS", 90)) * 24 * time.Hour,
		FailedEntryRetention:    time.Duration(envInt("FAILED_ENTRY_RETENTION_DAYS", 30)) * 24 * time.Hour,
		DeliveredEntryRetention: time.Duration(envInt("DELIVERED_ENTRY_RETENTION_DAYS", 7)) * 24 * time.Hour,

		RetentionCronSpec:   envOr("RETENTION_CRON", "30 3 * * *"),   // daily, 03:30
		AggregationCronSpec: envOr("AGGREGATION_CRON", "15 * * * *"), // hourly

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if len(cfg.EscalationDays) != 5 || !sort.IntsAreSorted(cfg.EscalationDays) {
		return nil, fmt.Errorf("ESCALATION_DAYS must be five ascending day counts, got %v", cfg.EscalationDays)
	}
	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envIntList(key string, fallback []int) []int {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return fallback
			}
			result = append(result, n)
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
