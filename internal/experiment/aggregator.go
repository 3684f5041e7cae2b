package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/store"
)

// Significance labels. Design-level heuristic, not a statistical test —
// surfaced to readers, never used to auto-stop an experiment.
const (
	SignificanceSufficient   = "sufficient"
	SignificanceApproaching  = "approaching"
	SignificanceInsufficient = "insufficient"
)

const (
	sufficientParticipants  = 100
	approachingParticipants = 50
)

// Aggregator recomputes per-variant results from notification logs.
// All of its math is commutative (sums, counts, means) so concurrent
// per-user updates never need serialization against it.
type Aggregator struct {
	experiments store.ExperimentStore
	logs        store.LogStore
	logger      *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(experiments store.ExperimentStore, logs store.LogStore, logger *slog.Logger) *Aggregator {
	return &Aggregator{experiments: experiments, logs: logs, logger: logger}
}

// Run recomputes and stores results for every active experiment. Invoked
// on a periodic schedule; runs must not overlap (the caller enforces this
// via its job runner).
func (a *Aggregator) Run(ctx context.Context) error {
	active, err := a.experiments.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active experiments: %w", err)
	}

	for _, exp := range active {
		results, err := a.Aggregate(ctx, exp)
		if err != nil {
			a.logger.Warn("experiment aggregation failed", "experiment", exp.Name, "error", err)
			continue
		}
		if err := a.experiments.UpdateResults(ctx, exp.ID, results); err != nil {
			a.logger.Warn("experiment results update failed", "experiment", exp.Name, "error", err)
			continue
		}
		a.logger.Info("experiment aggregated",
			"experiment", exp.Name,
			"participants", results.TotalParticipants,
			"significance", results.Significance)
	}
	return nil
}

// Aggregate computes per-variant stats for one experiment from its logs.
func (a *Aggregator) Aggregate(ctx context.Context, exp *domain.Experiment) (*domain.ExperimentResults, error) {
	logs, err := a.logs.ListByExperiment(ctx, exp.ID)
	if err != nil {
		return nil, fmt.Errorf("list experiment logs: %w", err)
	}

	type acc struct {
		sent, opened, completed int64
		ratingSum               float64
		ratingCount             int64
		users                   map[string]bool
	}
	variants := make(map[string]*acc)
	allUsers := make(map[string]bool)

	for _, log := range logs {
		v, ok := variants[log.ExperimentVariant]
		if !ok {
			v = &acc{users: make(map[string]bool)}
			variants[log.ExperimentVariant] = v
		}
		v.sent++
		if log.NotificationOpened || log.ActionTaken == domain.ActionOpenedApp {
			v.opened++
		}
		if log.ActionTaken == domain.ActionCompletedTask {
			v.completed++
		}
		if log.EffectivenessRating != nil {
			v.ratingSum += float64(*log.EffectivenessRating)
			v.ratingCount++
		}
		if log.UserID != "" {
			v.users[log.UserID] = true
			allUsers[log.UserID] = true
		}
	}

	results := &domain.ExperimentResults{
		TotalParticipants: int64(len(allUsers)),
		Significance:      significance(int64(len(allUsers)), exp.Status),
		ComputedAt:        time.Now().UTC(),
	}
	for name, v := range variants {
		vr := domain.VariantResult{
			Variant:           name,
			Sent:              v.sent,
			Opened:            v.opened,
			Completed:         v.completed,
			TotalParticipants: int64(len(v.users)),
		}
		if v.sent > 0 {
			vr.OpenRate = float64(v.opened) / float64(v.sent)
			vr.CompletionRate = float64(v.completed) / float64(v.sent)
		}
		if v.ratingCount > 0 {
			vr.AvgEffectiveness = v.ratingSum / float64(v.ratingCount)
		}
		results.Variants = append(results.Variants, vr)
	}
	sort.Slice(results.Variants, func(i, j int) bool {
		return results.Variants[i].Variant < results.Variants[j].Variant
	})
	return results, nil
}

func significance(participants int64, status domain.ExperimentStatus) string {
	switch {
	case participants >= sufficientParticipants && status == domain.ExperimentCompleted:
		return SignificanceSufficient
	case participants >= approachingParticipants && status == domain.ExperimentActive:
		return SignificanceApproaching
	default:
		return SignificanceInsufficient
	}
}
