package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

// ProfileStore persists user_emotional_profiles, one row per user, with a
// version column for optimistic concurrency.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserEmotionalProfile, error) {
	row := s.pool.QueryRow(ctx, "get_user_profile", userID)

	var (
		profile  domain.UserEmotionalProfile
		prefs    []string
		avoided  []string
		emotions []string
	)
	err := row.Scan(&profile.UserID, &prefs, &avoided, &emotions,
		&profile.OptimalSendTimes, &profile.ConfidenceScore,
		&profile.DataPointsCollected, &profile.Totals.Sent,
		&profile.Totals.Opened, &profile.Totals.Completed,
		&profile.AverageEffectivenessRating, &profile.LastAnalyzedAt,
		&profile.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	profile.PreferredTones = stringsToTones(prefs)
	profile.AvoidedTones = stringsToTones(avoided)
	profile.MostEffectiveEmotions = stringsToEmotions(emotions)
	return &profile, nil
}

// Upsert writes the profile when the stored version still matches
// expectedVersion. expectedVersion 0 inserts a fresh row; the unique
// user_id constraint turns a lost insert race into a version conflict.
func (s *ProfileStore) Upsert(ctx context.Context, profile *domain.UserEmotionalProfile, expectedVersion int64) error {
	if expectedVersion == 0 {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO user_emotional_profiles
				(user_id, preferred_tones, avoided_tones, most_effective_emotions,
				 optimal_send_times, confidence_score, data_points_collected,
				 total_sent, total_opened, total_completed,
				 average_effectiveness_rating, last_analyzed_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
			ON CONFLICT (user_id) DO NOTHING`,
			profile.UserID,
			tonesToStrings(profile.PreferredTones),
			tonesToStrings(profile.AvoidedTones),
			emotionsToStrings(profile.MostEffectiveEmotions),
			profile.OptimalSendTimes, profile.ConfidenceScore,
			profile.DataPointsCollected, profile.Totals.Sent,
			profile.Totals.Opened, profile.Totals.Completed,
			profile.AverageEffectivenessRating, profile.LastAnalyzedAt)
		if err != nil {
			return fmt.Errorf("insert user profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProfileUpsertConflict
		}
		profile.Version = 1
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE user_emotional_profiles SET
			preferred_tones = $3, avoided_tones = $4,
			most_effective_emotions = $5, optimal_send_times = $6,
			confidence_score = $7, data_points_collected = $8,
			total_sent = $9, total_opened = $10, total_completed = $11,
			average_effectiveness_rating = $12, last_analyzed_at = $13,
			version = version + 1
		WHERE user_id = $1 AND version = $2`,
		profile.UserID, expectedVersion,
		tonesToStrings(profile.PreferredTones),
		tonesToStrings(profile.AvoidedTones),
		emotionsToStrings(profile.MostEffectiveEmotions),
		profile.OptimalSendTimes, profile.ConfidenceScore,
		profile.DataPointsCollected, profile.Totals.Sent,
		profile.Totals.Opened, profile.Totals.Completed,
		profile.AverageEffectivenessRating, profile.LastAnalyzedAt)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileUpsertConflict
	}
	profile.Version = expectedVersion + 1
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_emotional_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user profile: %w", err)
	}
	return nil
}
