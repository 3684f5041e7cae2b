// Package scheduler runs the delivery loop: a fixed pool of workers polls
// for due schedule entries, claims them exclusively, and dispatches them to
// the push transport with retry and backoff.
//
// Claiming is the sole point of mutual exclusion; the outbound delivery
// call runs outside any lock since it may be slow or fail.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/push"
	"github.com/risewell/notification-engine/internal/store"
)

// Config controls the dispatch loop.
type Config struct {
	Interval        time.Duration
	BatchSize       int
	Workers         int
	DeliveryTimeout time.Duration
	RetryBackoff    time.Duration // minimum wait between attempts
}

// Result summarizes one dispatch batch.
type Result struct {
	Claimed int
	Sent    int
	Retried int
	Failed  int
}

// Worker is the delivery scheduler.
type Worker struct {
	schedules store.ScheduleStore
	logs      store.LogStore
	bus       *events.Bus
	trail     *events.Trail
	transport push.Transport
	cfg       Config
	logger    *slog.Logger
}

// NewWorker creates a delivery worker pool.
func NewWorker(
	schedules store.ScheduleStore,
	logs store.LogStore,
	bus *events.Bus,
	trail *events.Trail,
	transport push.Transport,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Worker{
		schedules: schedules,
		logs:      logs,
		bus:       bus,
		trail:     trail,
		transport: transport,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start runs the dispatch loop. Blocks until ctx is cancelled. Intended to
// be called with `go`.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Delivery dispatch worker started",
		"interval", w.cfg.Interval, "workers", w.cfg.Workers)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := w.RunOnce(ctx, time.Now().UTC())
			if err != nil {
				w.logger.Error("dispatch error", "error", err)
			} else if res.Claimed > 0 {
				w.logger.Info("dispatch batch",
					"claimed", res.Claimed, "sent", res.Sent,
					"retried", res.Retried, "failed", res.Failed)
			}
		case <-ctx.Done():
			w.logger.Info("Delivery dispatch worker stopped")
			return
		}
	}
}

// RunOnce claims one batch of due entries and processes it across the
// worker pool. Exposed for the admin CLI and tests.
func (w *Worker) RunOnce(ctx context.Context, now time.Time) (Result, error) {
	claimed, err := w.schedules.ClaimDue(ctx, now, w.cfg.RetryBackoff, w.cfg.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("claim due entries: %w", err)
	}

	res := Result{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return res, nil
	}

	workers := w.cfg.Workers
	if workers > len(claimed) {
		workers = len(claimed)
	}

	ch := make(chan *domain.ScheduleEntry, len(claimed))
	for _, e := range claimed {
		ch <- e
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range ch {
				outcome := w.process(ctx, entry, now)
				mu.Lock()
				switch outcome {
				case outcomeSent:
					res.Sent++
				case outcomeRetried:
					res.Retried++
				case outcomeFailed:
					res.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return res, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetried
	outcomeFailed
)

// process handles one claimed entry: fail it if attempts are exhausted,
// otherwise attempt delivery with a bounded timeout.
func (w *Worker) process(ctx context.Context, entry *domain.ScheduleEntry, now time.Time) outcome {
	if entry.Attempts >= entry.MaxAttempts {
		// Exhausted and past backoff: terminal failure, reported to the
		// audit stream rather than to any caller.
		if err := w.schedules.MarkFailed(ctx, entry.ID, now, "delivery attempts exhausted"); err != nil {
			w.logger.Warn("mark failed", "entry_id", entry.ID, "error", err)
		}
		w.trail.Record(ctx, entry.UserID, "schedule_entry", entry.ID, events.ActionFailed,
			map[string]string{"reason": "delivery attempts exhausted"})
		return outcomeFailed
	}

	attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.DeliveryTimeout)
	platformID, err := w.transport.Dispatch(attemptCtx, push.Payload{
		UserID: entry.UserID,
		Title:  "Risewell",
		Body:   entry.Payload,
		Data: map[string]string{
			"emotion":    string(entry.Emotion),
			"tone":       string(entry.Tone),
			"escalation": entry.EscalationLevel.String(),
		},
	})
	cancel()

	if err != nil {
		// Timeouts and transport failures both take the retry path.
		w.logger.Warn("dispatch attempt failed",
			"entry_id", entry.ID, "attempt", entry.Attempts+1, "error", err)
		if err := w.schedules.MarkRetry(ctx, entry.ID, now); err != nil {
			w.logger.Warn("mark retry", "entry_id", entry.ID, "error", err)
		}
		return outcomeRetried
	}

	if err := w.schedules.MarkSent(ctx, entry.ID, now); err != nil {
		w.logger.Warn("mark sent", "entry_id", entry.ID, "error", err)
	}

	w.recordLog(ctx, entry, now, platformID)
	return outcomeSent
}

// recordLog creates the NotificationLog for a dispatched entry and
// publishes its creation event, which drives the learner.
func (w *Worker) recordLog(ctx context.Context, entry *domain.ScheduleEntry, sentAt time.Time, platformID string) {
	log := &domain.NotificationLog{
		ID:                domain.NewID(),
		UserID:            entry.UserID,
		MessageID:         entry.TemplateID,
		EmotionalStateID:  entry.EmotionalStateID,
		Emotion:           entry.Emotion,
		Tone:              entry.Tone,
		EscalationLevel:   entry.EscalationLevel,
		MessageSent:       entry.Payload,
		ScheduledFor:      entry.ScheduledFor,
		SentAt:            &sentAt,
		DeliveryStatus:    domain.StatusSent,
		ActionTaken:       domain.ActionNone,
		ExperimentID:      entry.ExperimentID,
		ExperimentVariant: entry.ExperimentVariant,
		CreatedAt:         sentAt,
	}

	if err := w.logs.Insert(ctx, log); err != nil {
		w.logger.Error("notification log insert failed", "entry_id", entry.ID, "error", err)
		return
	}

	meta := map[string]string{"platform_message_id": platformID}
	w.trail.Record(ctx, entry.UserID, "notification_log", log.ID, events.ActionSent, meta)

	if err := w.bus.Publish(ctx, events.LogEvent{Current: log}); err != nil {
		w.logger.Warn("log created handlers", "log_id", log.ID, "error", err)
	}
}
