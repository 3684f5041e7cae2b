package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

// ExperimentStore persists experiments, unique by name. Aggregated results
// are stored as a jsonb snapshot.
type ExperimentStore struct {
	pool *pgxpool.Pool
}

func (s *ExperimentStore) Create(ctx context.Context, exp *domain.Experiment) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO experiments
			(id, name, control_variant, treatment_variants, traffic_allocation,
			 target_emotions, target_tones, status, start_date, end_date,
			 primary_metric, results, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, $12)
		ON CONFLICT (name) DO NOTHING`,
		exp.ID, exp.Name, exp.ControlVariant, exp.TreatmentVariants,
		exp.TrafficAllocation, emotionsToStrings(exp.TargetEmotions),
		tonesToStrings(exp.TargetTones), string(exp.Status), exp.StartDate,
		exp.EndDate, exp.PrimaryMetric, exp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateName
	}
	return nil
}

func (s *ExperimentStore) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, control_variant, treatment_variants, traffic_allocation,
		       target_emotions, target_tones, status, start_date, end_date,
		       primary_metric, results, created_at
		FROM experiments WHERE name = $1`, name)
	exp, err := scanExperiment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return exp, err
}

func (s *ExperimentStore) ListActive(ctx context.Context) ([]*domain.Experiment, error) {
	rows, err := s.pool.Query(ctx, "active_experiments")
	if err != nil {
		return nil, fmt.Errorf("list active experiments: %w", err)
	}
	defer rows.Close()

	var exps []*domain.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		exps = append(exps, exp)
	}
	return exps, rows.Err()
}

func (s *ExperimentStore) UpdateResults(ctx context.Context, id string, results *domain.ExperimentResults) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal experiment results: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE experiments SET results = $2 WHERE id = $1`, id, resultsJSON)
	if err != nil {
		return fmt.Errorf("update experiment results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ExperimentStore) UpdateStatus(ctx context.Context, id string, status domain.ExperimentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE experiments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update experiment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanExperiment(row pgx.Row) (*domain.Experiment, error) {
	var (
		exp         domain.Experiment
		emotions    []string
		tones       []string
		status      string
		resultsJSON []byte
	)
	err := row.Scan(&exp.ID, &exp.Name, &exp.ControlVariant,
		&exp.TreatmentVariants, &exp.TrafficAllocation, &emotions, &tones,
		&status, &exp.StartDate, &exp.EndDate, &exp.PrimaryMetric,
		&resultsJSON, &exp.CreatedAt)
	if err != nil {
		return nil, err
	}
	exp.TargetEmotions = stringsToEmotions(emotions)
	exp.TargetTones = stringsToTones(tones)
	exp.Status = domain.ExperimentStatus(status)
	if len(resultsJSON) > 0 {
		exp.Results = &domain.ExperimentResults{}
		if err := json.Unmarshal(resultsJSON, exp.Results); err != nil {
			return nil, fmt.Errorf("unmarshal experiment results: %w", err)
		}
	}
	return &exp, nil
}
