package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eqmx/equilibrium-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Definitions and result vectors are stored as JSONB; decimal values
// serialize as strings, preserving exact reported precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	def, err := json.Marshal(sc.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scenarios (id, name, kind, definition, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::JSONB, $5, $6)`,
		sc.ID, sc.Name, sc.Kind, def, sc.CreatedAt, sc.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	return s.scanScenario(ctx,
		`SELECT id, name, kind, definition, created_at, updated_at
		 FROM scenarios WHERE id = $1`, id)
}

func (s *PostgresStore) GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error) {
	return s.scanScenario(ctx,
		`SELECT id, name, kind, definition, created_at, updated_at
		 FROM scenarios WHERE name = $1`, name)
}

func (s *PostgresStore) scanScenario(ctx context.Context, query, arg string) (*model.Scenario, error) {
	var sc model.Scenario
	var def []byte

	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&sc.ID, &sc.Name, &sc.Kind, &def, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", arg, err)
	}
	if err := json.Unmarshal(def, &sc.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition for %s: %w", arg, err)
	}
	return &sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, kind, definition, created_at, updated_at
		 FROM scenarios ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []model.Scenario
	for rows.Next() {
		var sc model.Scenario
		var def []byte
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Kind, &def, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(def, &sc.Definition); err != nil {
			return nil, fmt.Errorf("unmarshal definition for %s: %w", sc.ID, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func (s *PostgresStore) UpdateScenarioDefinition(ctx context.Context, id string, def model.Definition, updatedAt time.Time) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE scenarios SET definition = $2::JSONB, updated_at = $3 WHERE id = $1`,
		id, data, updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scenario %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CountScenarios(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&count)
	return count, err
}

func (s *PostgresStore) InsertSolveRecord(ctx context.Context, rec *model.SolveRecord) error {
	prices, err := json.Marshal(rec.Prices)
	if err != nil {
		return fmt.Errorf("marshal prices: %w", err)
	}
	allocations, err := json.Marshal(rec.Allocations)
	if err != nil {
		return fmt.Errorf("marshal allocations: %w", err)
	}
	multipliers, err := json.Marshal(rec.Multipliers)
	if err != nil {
		return fmt.Errorf("marshal multipliers: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO solve_records (id, scenario_id, kind, variant, prices, allocations, multipliers,
		                            consumer_surplus, producer_surplus, created_at)
		 VALUES ($1, $2, $3, $4, $5::JSONB, $6::JSONB, $7::JSONB, $8, $9, $10)`,
		rec.ID, rec.ScenarioID, rec.Kind, rec.Variant,
		prices, allocations, multipliers,
		decimalText(rec.ConsumerSurplus), decimalText(rec.ProducerSurplus), rec.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetSolveRecordsByScenario(ctx context.Context, scenarioID string) ([]model.SolveRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scenario_id, kind, variant, prices, allocations, multipliers,
		        consumer_surplus, producer_surplus, created_at
		 FROM solve_records WHERE scenario_id = $1 ORDER BY created_at`, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.SolveRecord
	for rows.Next() {
		var rec model.SolveRecord
		var prices, allocations, multipliers []byte
		var consumerSurplus, producerSurplus *string

		if err := rows.Scan(&rec.ID, &rec.ScenarioID, &rec.Kind, &rec.Variant,
			&prices, &allocations, &multipliers,
			&consumerSurplus, &producerSurplus, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.ConsumerSurplus, err = parseDecimalText(consumerSurplus); err != nil {
			return nil, fmt.Errorf("parse consumer surplus for %s: %w", rec.ID, err)
		}
		if rec.ProducerSurplus, err = parseDecimalText(producerSurplus); err != nil {
			return nil, fmt.Errorf("parse producer surplus for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal(prices, &rec.Prices); err != nil {
			return nil, fmt.Errorf("unmarshal prices for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal(allocations, &rec.Allocations); err != nil {
			return nil, fmt.Errorf("unmarshal allocations for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal(multipliers, &rec.Multipliers); err != nil {
			return nil, fmt.Errorf("unmarshal multipliers for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// decimalText converts an optional decimal to its text representation for a
// nullable column.
func decimalText(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimalText(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
