// Package store defines the persistence interface for the equilibrium
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/eqmx/equilibrium-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Scenario operations ---

	// CreateScenario persists a new scenario.
	CreateScenario(ctx context.Context, sc *model.Scenario) error

	// GetScenario retrieves a scenario by its ID.
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)

	// GetScenarioByName retrieves a scenario by its unique name.
	GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error)

	// ListScenarios returns all scenarios.
	ListScenarios(ctx context.Context) ([]model.Scenario, error)

	// UpdateScenarioDefinition replaces a scenario's definition after a
	// parameter amendment.
	UpdateScenarioDefinition(ctx context.Context, id string, def model.Definition, updatedAt time.Time) error

	// CountScenarios returns the number of stored scenarios.
	CountScenarios(ctx context.Context) (int, error)

	// --- Immutable solve ledger ---

	// InsertSolveRecord appends an immutable solve record.
	InsertSolveRecord(ctx context.Context, rec *model.SolveRecord) error

	// GetSolveRecordsByScenario returns all solve records for a scenario.
	GetSolveRecordsByScenario(ctx context.Context, scenarioID string) ([]model.SolveRecord, error)
}
