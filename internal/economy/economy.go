// Package economy implements closed-form competitive-equilibrium solvers for
// quadratic-utility economies.
//
// Two solvers share one mathematical substrate. Utility over a consumption
// vector c is −½(Πc − b)ᵗ(Πc − b), where Π is an invertible n×n substitution
// matrix and b an n-vector of bliss points. With linear budget constraints
// this yields linear demand, so every equilibrium reduces to a fixed number
// of matrix inversions followed by vector arithmetic — no iteration, no
// fixed-point search:
//
//   - ExchangeEconomy: m agents trading fixed endowments of n goods.
//   - ProductionEconomy: one representative consumer facing a convex
//     quadratic production cost, with competitive and monopoly variants.
//
// All solver failures are structural properties of the inputs, never
// transient conditions; callers adjust parameters and construct anew.
//
// Reference: Hansen & Sargent, "Recursive Linear Models of Dynamic Economies".
package economy

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularSubstitution is returned when the substitution matrix Π
	// cannot be inverted. Both solvers require Π (and hence ΠᵗΠ) to be
	// invertible.
	ErrSingularSubstitution = errors.New("economy: substitution matrix is singular")

	// ErrDimensionMismatch is returned when input vectors or matrices do
	// not agree on the number of goods or agents.
	ErrDimensionMismatch = errors.New("economy: dimension mismatch")

	// ErrWealthNotClosed is returned when the wealth-transfer vector does
	// not sum to zero. Redistribution must not create or destroy wealth.
	ErrWealthNotClosed = errors.New("economy: wealth transfers must sum to zero")

	// ErrNonSatiation is returned when a bliss point sits too close to the
	// consumption implied by an endowment, or when a solved allocation
	// reaches the bliss point. Quadratic utility is only valid where
	// marginal utility stays positive.
	ErrNonSatiation = errors.New("economy: non-satiation violated")

	// ErrDegenerateNumeraire is returned when the unnormalized price of
	// the numeraire good is numerically zero, so no price normalization
	// exists.
	ErrDegenerateNumeraire = errors.New("economy: numeraire price component is zero")

	// ErrNoEquilibrium is returned (wrapped in a NoEquilibriumError) when
	// the computed allocation has a negative component. No competitive
	// equilibrium exists for the given endowments and preferences.
	ErrNoEquilibrium = errors.New("economy: no equilibrium with nonnegative allocations")

	// ErrNonPositiveWeight is returned when a production solve is
	// requested with planner weight μ ≤ 0; prices are backed out by
	// dividing by μ.
	ErrNonPositiveWeight = errors.New("economy: planner weight must be positive")

	// ErrSingularSystem is returned when the cost-adjusted demand system
	// of a production solve cannot be solved.
	ErrSingularSystem = errors.New("economy: first-order-condition system is singular")

	// ErrScalarOnly is returned when surplus or curve sampling is
	// requested for an economy with more than one good.
	ErrScalarOnly = errors.New("economy: operation defined only for single-good economies")
)

const (
	// DefaultSatiationMargin is the minimum ratio of an agent's smallest
	// bliss component to the largest component of Π·e. A heuristic guard
	// against bliss points the endowment could already satisfy, not a
	// derived bound.
	DefaultSatiationMargin = 1.5

	// WealthTolerance bounds |ΣWᵢ| for a transfer vector to count as
	// closed.
	WealthTolerance = 1e-9

	// NumeraireTolerance is the magnitude below which the unnormalized
	// numeraire price is treated as zero.
	NumeraireTolerance = 1e-12

	// AllocationTolerance is how far below zero an allocation component
	// may fall before the equilibrium is declared nonexistent.
	AllocationTolerance = 1e-9
)

// NoEquilibriumError reports a solved allocation with a negative component.
// It carries the offending agent and allocation for diagnostics and wraps
// ErrNoEquilibrium for errors.Is matching.
type NoEquilibriumError struct {
	Agent      int
	Allocation []float64
}

func (e *NoEquilibriumError) Error() string {
	return fmt.Sprintf("%v: agent %d allocation %v", ErrNoEquilibrium, e.Agent, e.Allocation)
}

func (e *NoEquilibriumError) Unwrap() error { return ErrNoEquilibrium }

// squareFromRows builds an n×n dense matrix from row slices.
func squareFromRows(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*n)
	for _, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: matrix must be square, row has %d of %d columns",
				ErrDimensionMismatch, len(row), n)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}

// vecOfLen copies a slice into a VecDense, enforcing its length.
func vecOfLen(v []float64, n int, what string) (*mat.VecDense, error) {
	if len(v) != n {
		return nil, fmt.Errorf("%w: %s has length %d, want %d",
			ErrDimensionMismatch, what, len(v), n)
	}
	return mat.NewVecDense(n, append([]float64(nil), v...)), nil
}

// invert returns A⁻¹ or wraps the singularity sentinel.
func invert(a *mat.Dense, sentinel error) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	return &inv, nil
}

// gramian computes ΠᵗΠ.
func gramian(pi *mat.Dense) *mat.Dense {
	var g mat.Dense
	g.Mul(pi.T(), pi)
	return &g
}

// checkSatiationMargin applies the non-satiation guard for one agent:
// the smallest bliss component must exceed margin times the largest
// component of Π·e. When the endowment image is nonpositive everywhere,
// a positive bliss point is accepted as trivially far above it.
func checkSatiationMargin(pi *mat.Dense, bliss, endow *mat.VecDense, margin float64) error {
	var img mat.VecDense
	img.MulVec(pi, endow)

	maxImg := floats.Max(vecSlice(&img))
	minBliss := floats.Min(vecSlice(bliss))

	if maxImg > 0 {
		if minBliss/maxImg <= margin {
			return fmt.Errorf("%w: bliss/endowment ratio %.4f below margin %.4f",
				ErrNonSatiation, minBliss/maxImg, margin)
		}
		return nil
	}
	if minBliss <= 0 {
		return fmt.Errorf("%w: bliss point %v is not above the endowment image",
			ErrNonSatiation, minBliss)
	}
	return nil
}
