package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eqmx/equilibrium-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for scenario reads. Writes go to the primary store and invalidate
// the cache; solve-record queries pass through uncached since the ledger
// is append-only and read rarely.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, maintain cache) ---

func (s *CachedStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if err := s.primary.CreateScenario(ctx, sc); err != nil {
		return err
	}
	s.cacheScenario(ctx, sc)
	return nil
}

func (s *CachedStore) UpdateScenarioDefinition(ctx context.Context, id string, def model.Definition, updatedAt time.Time) error {
	if err := s.primary.UpdateScenarioDefinition(ctx, id, def, updatedAt); err != nil {
		return err
	}
	// Invalidate; next read re-populates with the amended definition.
	s.rdb.Del(ctx, scenarioKey(id))
	return nil
}

func (s *CachedStore) InsertSolveRecord(ctx context.Context, rec *model.SolveRecord) error {
	return s.primary.InsertSolveRecord(ctx, rec)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	data, err := s.rdb.Get(ctx, scenarioKey(id)).Bytes()
	if err == nil {
		var sc model.Scenario
		if json.Unmarshal(data, &sc) == nil {
			return &sc, nil
		}
	}

	sc, err := s.primary.GetScenario(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheScenario(ctx, sc)
	return sc, nil
}

func (s *CachedStore) GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error) {
	// Try cache via name→ID mapping.
	id, err := s.rdb.Get(ctx, nameKey(name)).Result()
	if err == nil {
		return s.GetScenario(ctx, id)
	}

	sc, err := s.primary.GetScenarioByName(ctx, name)
	if err != nil {
		return nil, err
	}

	// Cache both the scenario and the name→ID mapping.
	s.cacheScenario(ctx, sc)
	s.rdb.Set(ctx, nameKey(name), sc.ID, s.ttl)
	return sc, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	return s.primary.ListScenarios(ctx)
}

func (s *CachedStore) CountScenarios(ctx context.Context) (int, error) {
	return s.primary.CountScenarios(ctx)
}

func (s *CachedStore) GetSolveRecordsByScenario(ctx context.Context, scenarioID string) ([]model.SolveRecord, error) {
	return s.primary.GetSolveRecordsByScenario(ctx, scenarioID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheScenario(ctx context.Context, sc *model.Scenario) {
	if data, err := json.Marshal(sc); err == nil {
		s.rdb.Set(ctx, scenarioKey(sc.ID), data, s.ttl)
	}
}

func scenarioKey(id string) string { return fmt.Sprintf("scenario:%s", id) }
func nameKey(name string) string   { return fmt.Sprintf("scenario-name:%s", name) }
