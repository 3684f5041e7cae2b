// Package engine is the application facade: it wires the classifier,
// selector, experiment allocator, scheduler stores, and event bus behind
// the operations exposed to callers (the behavior-analysis job, the API,
// and the admin CLI).
package engine

import (
	"log/slog"
	"time"

	"github.com/risewell/notification-engine/internal/classifier"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/experiment"
	"github.com/risewell/notification-engine/internal/selector"
	"github.com/risewell/notification-engine/internal/store"
)

// Priority controls when a scheduled notification goes out.
type Priority string

const (
	// PriorityHigh schedules for immediate dispatch (quiet hours permitting).
	PriorityHigh Priority = "high"
	// PriorityNormal prefers the user's learned optimal send hours.
	PriorityNormal Priority = "normal"
)

// Config holds the engine's tunables.
type Config struct {
	MaxAttempts     int
	QuietStartHour  int
	QuietEndHour    int
	EscalationDays  []int // ascending day boundaries for the five levels
	StateRetention  time.Duration
	ProudStreakDays int
}

// Engine exposes the notification engine's operations.
type Engine struct {
	stores     *store.Stores
	catalog    selector.Catalog
	selector   *selector.Selector
	classifier *classifier.Classifier
	aggregator *experiment.Aggregator
	bus        *events.Bus
	trail      *events.Trail
	cfg        Config
	logger     *slog.Logger

	now func() time.Time // injectable clock for tests
}

// New creates an Engine.
func New(
	stores *store.Stores,
	catalog selector.Catalog,
	bus *events.Bus,
	trail *events.Trail,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		stores:     stores,
		catalog:    catalog,
		selector:   selector.New(catalog),
		classifier: classifier.New(cfg.ProudStreakDays),
		aggregator: experiment.NewAggregator(stores.Experiments, stores.Logs, logger),
		bus:        bus,
		trail:      trail,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Bus returns the event bus for handler registration.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Aggregator returns the experiment aggregator for job wiring.
func (e *Engine) Aggregator() *experiment.Aggregator { return e.aggregator }

// SetClock overrides the engine clock; test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }
