package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eqmx/equilibrium-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*model.Scenario
	records   []model.SolveRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]*model.Scenario),
	}
}

func (s *MemoryStore) CreateScenario(_ context.Context, sc *model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.scenarios {
		if existing.Name == sc.Name {
			return fmt.Errorf("scenario %q already exists", sc.Name)
		}
	}

	// Store a copy to avoid external mutation.
	copy := *sc
	s.scenarios[sc.ID] = &copy
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (*model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s not found", id)
	}
	copy := *sc
	return &copy, nil
}

func (s *MemoryStore) GetScenarioByName(_ context.Context, name string) (*model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sc := range s.scenarios {
		if sc.Name == name {
			copy := *sc
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found", name)
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenarios := make([]model.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		scenarios = append(scenarios, *sc)
	}
	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].CreatedAt.After(scenarios[j].CreatedAt)
	})
	return scenarios, nil
}

func (s *MemoryStore) UpdateScenarioDefinition(_ context.Context, id string, def model.Definition, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return fmt.Errorf("scenario %s not found", id)
	}
	sc.Definition = def
	sc.UpdatedAt = updatedAt
	return nil
}

func (s *MemoryStore) CountScenarios(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenarios), nil
}

func (s *MemoryStore) InsertSolveRecord(_ context.Context, rec *model.SolveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryStore) GetSolveRecordsByScenario(_ context.Context, scenarioID string) ([]model.SolveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.SolveRecord
	for _, r := range s.records {
		if r.ScenarioID == scenarioID {
			result = append(result, r)
		}
	}
	return result, nil
}
