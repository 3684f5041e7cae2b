package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

// EmotionalStateStore persists classifier verdicts in emotional_states.
type EmotionalStateStore struct {
	pool *pgxpool.Pool
}

func (s *EmotionalStateStore) Insert(ctx context.Context, state *domain.EmotionalState) error {
	contextJSON, err := json.Marshal(state.Context)
	if err != nil {
		return fmt.Errorf("marshal state context: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO emotional_states
			(id, user_id, emotion, intensity, confidence, context, triggers,
			 recommended_tone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		state.ID, nullableText(state.UserID), string(state.Emotion),
		state.Intensity, state.Confidence, contextJSON, state.Triggers,
		string(state.RecommendedTone), state.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert emotional state: %w", err)
	}
	return nil
}

func (s *EmotionalStateStore) LatestByUser(ctx context.Context, userID string, cutoff time.Time) (*domain.EmotionalState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, emotion, intensity, confidence, context, triggers,
		       recommended_tone, created_at
		FROM emotional_states
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		userID, cutoff)

	state, err := scanState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return state, err
}

func (s *EmotionalStateStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emotional_states WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete aged states: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *EmotionalStateStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emotional_states WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user states: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanState(row pgx.Row) (*domain.EmotionalState, error) {
	var (
		state       domain.EmotionalState
		userID      *string
		emotion     string
		tone        string
		contextJSON []byte
	)
	err := row.Scan(&state.ID, &userID, &emotion, &state.Intensity,
		&state.Confidence, &contextJSON, &state.Triggers, &tone, &state.CreatedAt)
	if err != nil {
		return nil, err
	}
	state.UserID = textValue(userID)
	state.Emotion = domain.Emotion(emotion)
	state.RecommendedTone = domain.Tone(tone)
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &state.Context); err != nil {
			return nil, fmt.Errorf("unmarshal state context: %w", err)
		}
	}
	return &state, nil
}
