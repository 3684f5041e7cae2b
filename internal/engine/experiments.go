package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
)

// ExperimentConfig is the caller-facing experiment definition.
type ExperimentConfig struct {
	Name              string                  `json:"name"`
	ControlVariant    string                  `json:"control_variant"`
	TreatmentVariants []string                `json:"treatment_variants"`
	TrafficAllocation float64                 `json:"traffic_allocation"`
	TargetEmotions    []domain.Emotion        `json:"target_emotions,omitempty"`
	TargetTones       []domain.Tone           `json:"target_tones,omitempty"`
	Status            domain.ExperimentStatus `json:"status,omitempty"` // defaults to draft
	StartDate         *time.Time              `json:"start_date,omitempty"`
	EndDate           *time.Time              `json:"end_date,omitempty"`
	PrimaryMetric     string                  `json:"primary_metric,omitempty"`
}

// CreateExperiment validates and persists a new experiment.
func (e *Engine) CreateExperiment(ctx context.Context, cfg ExperimentConfig) (*domain.Experiment, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("create experiment: empty name")
	}
	if cfg.ControlVariant == "" {
		return nil, fmt.Errorf("create experiment: empty control variant")
	}
	if len(cfg.TreatmentVariants) == 0 {
		return nil, fmt.Errorf("create experiment: at least one treatment variant required")
	}
	if cfg.TrafficAllocation <= 0 || cfg.TrafficAllocation > 1 {
		return nil, fmt.Errorf("create experiment: traffic allocation %.3f outside (0, 1]", cfg.TrafficAllocation)
	}
	for _, em := range cfg.TargetEmotions {
		if !em.Valid() {
			return nil, fmt.Errorf("create experiment: unknown target emotion %q", em)
		}
	}
	for _, t := range cfg.TargetTones {
		if !t.Valid() {
			return nil, fmt.Errorf("create experiment: unknown target tone %q", t)
		}
	}

	status := cfg.Status
	if status == "" {
		status = domain.ExperimentDraft
	}
	switch status {
	case domain.ExperimentDraft, domain.ExperimentActive:
	default:
		return nil, fmt.Errorf("create experiment: status %q not allowed at creation", status)
	}

	metric := cfg.PrimaryMetric
	if metric == "" {
		metric = "completion_rate"
	}

	exp := &domain.Experiment{
		ID:                domain.NewID(),
		Name:              cfg.Name,
		ControlVariant:    cfg.ControlVariant,
		TreatmentVariants: append([]string(nil), cfg.TreatmentVariants...),
		TrafficAllocation: cfg.TrafficAllocation,
		TargetEmotions:    append([]domain.Emotion(nil), cfg.TargetEmotions...),
		TargetTones:       append([]domain.Tone(nil), cfg.TargetTones...),
		Status:            status,
		StartDate:         cfg.StartDate,
		EndDate:           cfg.EndDate,
		PrimaryMetric:     metric,
		CreatedAt:         e.now(),
	}
	if err := e.stores.Experiments.Create(ctx, exp); err != nil {
		return nil, err
	}

	e.trail.Record(ctx, "", "experiment", exp.ID, events.ActionExperimentCreated, map[string]string{
		"name":   exp.Name,
		"status": string(exp.Status),
	})
	return exp, nil
}

// statusTransitions is the experiment lifecycle: draft → active →
// paused/completed → archived. Anything else is rejected.
var statusTransitions = map[domain.ExperimentStatus][]domain.ExperimentStatus{
	domain.ExperimentDraft:     {domain.ExperimentActive, domain.ExperimentArchived},
	domain.ExperimentActive:    {domain.ExperimentPaused, domain.ExperimentCompleted},
	domain.ExperimentPaused:    {domain.ExperimentActive, domain.ExperimentCompleted},
	domain.ExperimentCompleted: {domain.ExperimentArchived},
}

// UpdateExperimentStatus moves an experiment along its lifecycle. Completing
// an experiment recomputes its results immediately: the significance label
// depends on the status, and the periodic aggregation only covers active
// experiments.
func (e *Engine) UpdateExperimentStatus(ctx context.Context, name string, status domain.ExperimentStatus) (*domain.Experiment, error) {
	exp, err := e.stores.Experiments.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range statusTransitions[exp.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("update experiment status: %q cannot move from %q to %q", name, exp.Status, status)
	}

	if err := e.stores.Experiments.UpdateStatus(ctx, exp.ID, status); err != nil {
		return nil, fmt.Errorf("update experiment status: %w", err)
	}
	exp.Status = status

	if status == domain.ExperimentCompleted {
		results, err := e.aggregator.Aggregate(ctx, exp)
		if err != nil {
			e.logger.Warn("aggregate completed experiment", "experiment", name, "error", err)
		} else {
			if err := e.stores.Experiments.UpdateResults(ctx, exp.ID, results); err != nil {
				e.logger.Warn("store experiment results", "experiment", name, "error", err)
			}
			exp.Results = results
		}
	}

	e.trail.Record(ctx, "", "experiment", exp.ID, events.ActionExperimentStatusChanged, map[string]string{
		"name":   exp.Name,
		"status": string(status),
	})
	return exp, nil
}

// GetExperimentResults returns the experiment with its aggregated stats.
// Results are computed on demand when no periodic aggregation has run yet,
// and always recomputed for completed experiments: the hourly job covers
// only active ones, and ratings can still arrive after completion.
func (e *Engine) GetExperimentResults(ctx context.Context, name string) (*domain.Experiment, error) {
	exp, err := e.stores.Experiments.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exp.Results == nil || exp.Status == domain.ExperimentCompleted {
		results, err := e.aggregator.Aggregate(ctx, exp)
		if err != nil {
			return nil, fmt.Errorf("aggregate experiment: %w", err)
		}
		if err := e.stores.Experiments.UpdateResults(ctx, exp.ID, results); err != nil {
			e.logger.Warn("store experiment results", "experiment", name, "error", err)
		}
		exp.Results = results
	}
	return exp, nil
}
