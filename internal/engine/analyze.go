package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
)

// AnalyzeUser runs the behavioral classifier over an activity snapshot and
// persists the resulting emotional state.
func (e *Engine) AnalyzeUser(ctx context.Context, userID string, snap domain.ActivitySnapshot) (*domain.EmotionalState, error) {
	if userID == "" {
		return nil, fmt.Errorf("analyze user: empty user id")
	}
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = e.now()
	}

	profile, err := e.stores.Profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	state := e.classifier.Classify(userID, snap, profile)
	if err := e.stores.States.Insert(ctx, state); err != nil {
		return nil, fmt.Errorf("persist emotional state: %w", err)
	}

	e.trail.Record(ctx, userID, "emotional_state", state.ID, events.ActionStateCreated, map[string]string{
		"emotion":    string(state.Emotion),
		"confidence": fmt.Sprintf("%.2f", state.Confidence),
	})
	return state, nil
}

// GetUserProfile returns the learned profile for a user.
func (e *Engine) GetUserProfile(ctx context.Context, userID string) (*domain.UserEmotionalProfile, error) {
	return e.stores.Profiles.Get(ctx, userID)
}

// LatestState returns the user's most recent emotional state inside the
// retention window. Aged states are treated as absent.
func (e *Engine) LatestState(ctx context.Context, userID string) (*domain.EmotionalState, error) {
	cutoff := e.now().Add(-e.cfg.StateRetention)
	return e.stores.States.LatestByUser(ctx, userID, cutoff)
}
