package memory

import (
	"context"
	"sync"

	"github.com/risewell/notification-engine/internal/domain"
)

// ExperimentStore is the in-memory ExperimentStore, unique by name.
type ExperimentStore struct {
	mu     sync.Mutex
	byID   map[string]*domain.Experiment
	byName map[string]*domain.Experiment
}

// NewExperimentStore creates an empty experiment store.
func NewExperimentStore() *ExperimentStore {
	return &ExperimentStore{
		byID:   make(map[string]*domain.Experiment),
		byName: make(map[string]*domain.Experiment),
	}
}

func (s *ExperimentStore) Create(ctx context.Context, exp *domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[exp.Name]; exists {
		return domain.ErrDuplicateName
	}
	c := copyExperiment(exp)
	s.byID[c.ID] = c
	s.byName[c.Name] = c
	return nil
}

func (s *ExperimentStore) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyExperiment(e), nil
}

func (s *ExperimentStore) ListActive(ctx context.Context) ([]*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Experiment
	for _, e := range s.byID {
		if e.Status == domain.ExperimentActive {
			out = append(out, copyExperiment(e))
		}
	}
	return out, nil
}

func (s *ExperimentStore) UpdateResults(ctx context.Context, id string, results *domain.ExperimentResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r := *results
	r.Variants = append([]domain.VariantResult(nil), results.Variants...)
	e.Results = &r
	return nil
}

func (s *ExperimentStore) UpdateStatus(ctx context.Context, id string, status domain.ExperimentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	return nil
}
