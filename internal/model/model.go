// Package model defines the core domain types shared across the
// equilibrium engine. Solver arithmetic stays float64; values that cross
// the reporting or storage boundary are rounded through shopspring/decimal
// so records compare and persist exactly.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Economy kinds.
const (
	KindExchange   = "exchange"
	KindProduction = "production"
)

// Solve variants.
const (
	VariantCompetitive = "competitive"
	VariantMonopoly    = "monopoly"
)

// ReportScale is the number of decimal places used for reported prices,
// allocations, and surpluses.
const ReportScale int32 = 8

// Definition is the full numeric configuration of an economy. Exchange
// scenarios use Bliss/Endowments/Wealth with one row per agent; production
// scenarios use a single Bliss row plus the cost structure and planner
// weight.
type Definition struct {
	Substitution    [][]float64 `json:"substitution"`               // Π, n×n
	Bliss           [][]float64 `json:"bliss"`                      // one n-vector per agent
	Endowments      [][]float64 `json:"endowments,omitempty"`       // exchange: one n-vector per agent
	Wealth          []float64   `json:"wealth,omitempty"`           // exchange: transfers, sum to zero
	CostLinear      []float64   `json:"cost_linear,omitempty"`      // production: h
	CostQuad        [][]float64 `json:"cost_quad,omitempty"`        // production: J
	Weight          float64     `json:"weight,omitempty"`           // production: μ
	SatiationMargin float64     `json:"satiation_margin,omitempty"` // 0 → solver default
}

// Goods returns the goods dimension n implied by the substitution matrix.
func (d *Definition) Goods() int { return len(d.Substitution) }

// AgentCount returns the number of agents implied by the bliss rows.
func (d *Definition) AgentCount() int { return len(d.Bliss) }

// Scenario is a persisted economy configuration. The definition may be
// amended between solves (planner weight, bliss points); solves never
// mutate it.
type Scenario struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Kind       string     `json:"kind" db:"kind"` // "exchange" or "production"
	Definition Definition `json:"definition" db:"definition"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// SolveRecord is an immutable record of one equilibrium computation.
// Once created, these are never modified or deleted.
type SolveRecord struct {
	ID          string              `json:"id" db:"id"`
	ScenarioID  string              `json:"scenario_id" db:"scenario_id"`
	Kind        string              `json:"kind" db:"kind"`
	Variant     string              `json:"variant" db:"variant"`
	Prices      []decimal.Decimal   `json:"prices" db:"prices"`
	Allocations [][]decimal.Decimal `json:"allocations" db:"allocations"`
	Multipliers []decimal.Decimal   `json:"multipliers,omitempty" db:"multipliers"` // exchange: μᵢ

	// Surpluses are set only for single-good production competitive solves.
	ConsumerSurplus *decimal.Decimal `json:"consumer_surplus,omitempty" db:"consumer_surplus"`
	ProducerSurplus *decimal.Decimal `json:"producer_surplus,omitempty" db:"producer_surplus"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FromFloats rounds a float64 slice into reporting decimals.
func FromFloats(xs []float64) []decimal.Decimal {
	if xs == nil {
		return nil
	}
	out := make([]decimal.Decimal, len(xs))
	for i, x := range xs {
		out[i] = decimal.NewFromFloat(x).Round(ReportScale)
	}
	return out
}

// FromFloatRows rounds a slice of float64 rows into reporting decimals.
func FromFloatRows(rows [][]float64) [][]decimal.Decimal {
	if rows == nil {
		return nil
	}
	out := make([][]decimal.Decimal, len(rows))
	for i, row := range rows {
		out[i] = FromFloats(row)
	}
	return out
}
