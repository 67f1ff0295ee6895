package economy

import (
	"errors"
	"math"
	"testing"
)

// singleGood builds the reference single-good economy:
// Π=[[1]], b=[10], h=[0.5], J=[[1]], μ=1.
func singleGood(t *testing.T) *ProductionEconomy {
	t.Helper()
	p, err := NewProductionEconomy(
		[][]float64{{1}},
		[]float64{10},
		[]float64{0.5},
		[][]float64{{1}},
		1,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

// --- Constructor tests ---

func TestNewProductionEconomy_SingularPi(t *testing.T) {
	_, err := NewProductionEconomy(
		[][]float64{{1, 1}, {1, 1}},
		[]float64{10, 10},
		[]float64{0.5, 0.5},
		ident(2),
		1,
	)
	if !errors.Is(err, ErrSingularSubstitution) {
		t.Errorf("expected ErrSingularSubstitution, got %v", err)
	}
}

func TestNewProductionEconomy_DimensionMismatch(t *testing.T) {
	_, err := NewProductionEconomy(
		ident(2),
		[]float64{10},
		[]float64{0.5, 0.5},
		ident(2),
		1,
	)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	_, err = NewProductionEconomy(
		ident(2),
		[]float64{10, 10},
		[]float64{0.5, 0.5},
		[][]float64{{1}},
		1,
	)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for cost matrix, got %v", err)
	}
}

// --- Competitive tests ---

func TestCompetitive_SingleGoodReference(t *testing.T) {
	// c = (1+1)⁻¹(10−0.5) = 4.75, p = 10 − 4.75 = 5.25.
	eq, err := singleGood(t).Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(eq.Quantities[0]-4.75) > tol {
		t.Errorf("quantity = %g, want 4.75", eq.Quantities[0])
	}
	if math.Abs(eq.Prices[0]-5.25) > tol {
		t.Errorf("price = %g, want 5.25", eq.Prices[0])
	}
}

func TestCompetitive_TwoGoodDiagonal(t *testing.T) {
	// Diagonal everything: each good solves independently to the
	// single-good reference values.
	p, err := NewProductionEconomy(
		ident(2),
		[]float64{10, 10},
		[]float64{0.5, 0.5},
		ident(2),
		1,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eq, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := 0; k < 2; k++ {
		if math.Abs(eq.Quantities[k]-4.75) > tol {
			t.Errorf("quantity[%d] = %g, want 4.75", k, eq.Quantities[k])
		}
		if math.Abs(eq.Prices[k]-5.25) > tol {
			t.Errorf("price[%d] = %g, want 5.25", k, eq.Prices[k])
		}
	}
}

func TestCompetitive_NonSatiation(t *testing.T) {
	// A heavily subsidized cost (h = −30) pushes the chosen quantity past
	// the bliss point.
	p, err := NewProductionEconomy(
		[][]float64{{1}},
		[]float64{10},
		[]float64{-30},
		[][]float64{{1}},
		1,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = p.Competitive()
	if !errors.Is(err, ErrNonSatiation) {
		t.Errorf("expected ErrNonSatiation, got %v", err)
	}
}

func TestCompetitive_NonPositiveWeight(t *testing.T) {
	p := singleGood(t)
	p.SetWeight(0)
	if _, err := p.Competitive(); !errors.Is(err, ErrNonPositiveWeight) {
		t.Errorf("expected ErrNonPositiveWeight for μ=0, got %v", err)
	}
	p.SetWeight(-1)
	if _, err := p.Monopoly(); !errors.Is(err, ErrNonPositiveWeight) {
		t.Errorf("expected ErrNonPositiveWeight for μ=-1, got %v", err)
	}
}

func TestCompetitive_CostMatrixSymmetrized(t *testing.T) {
	// J enters only through ½(J+Jᵗ): J and Jᵗ must solve identically.
	j := [][]float64{{1, 0.6}, {0.2, 1}}
	jt := [][]float64{{1, 0.2}, {0.6, 1}}

	pa, err := NewProductionEconomy(ident(2), []float64{10, 10}, []float64{0.5, 0.5}, j, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pb, err := NewProductionEconomy(ident(2), []float64{10, 10}, []float64{0.5, 0.5}, jt, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eqa, err := pa.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eqb, err := pb.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := 0; k < 2; k++ {
		if math.Abs(eqa.Quantities[k]-eqb.Quantities[k]) > tol {
			t.Errorf("quantity[%d] differs between J and Jᵗ: %g vs %g",
				k, eqa.Quantities[k], eqb.Quantities[k])
		}
	}
}

// --- Monopoly tests ---

func TestMonopoly_RestrictsQuantityRaisesPrice(t *testing.T) {
	p := singleGood(t)
	comp, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mono, err := p.Monopoly()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mono.Quantities[0] >= comp.Quantities[0] {
		t.Errorf("monopoly quantity %g should be below competitive %g",
			mono.Quantities[0], comp.Quantities[0])
	}
	if mono.Prices[0] <= comp.Prices[0] {
		t.Errorf("monopoly price %g should exceed competitive %g",
			mono.Prices[0], comp.Prices[0])
	}

	// q = (1+2)⁻¹·9.5, pm = 10 − q.
	wantQ := 9.5 / 3
	if math.Abs(mono.Quantities[0]-wantQ) > tol {
		t.Errorf("monopoly quantity = %g, want %g", mono.Quantities[0], wantQ)
	}
	if math.Abs(mono.Prices[0]-(10-wantQ)) > tol {
		t.Errorf("monopoly price = %g, want %g", mono.Prices[0], 10-wantQ)
	}
}

// --- Mutation tests ---

func TestSetWeight_ChangesSubsequentSolves(t *testing.T) {
	p := singleGood(t)
	before, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.SetWeight(2)
	after, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(before.Quantities[0]-after.Quantities[0]) < tol {
		t.Error("raising μ should change the competitive quantity")
	}

	// Restoring μ restores the solution: no hidden state.
	p.SetWeight(1)
	restored, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Quantities[0] != before.Quantities[0] {
		t.Errorf("solve is not a pure function of fields: %g vs %g",
			restored.Quantities[0], before.Quantities[0])
	}
}

func TestSetBliss_ChangesSubsequentSolves(t *testing.T) {
	p := singleGood(t)
	if err := p.SetBliss([]float64{20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eq, err := p.Competitive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// c = (1+1)⁻¹(20−0.5) = 9.75.
	if math.Abs(eq.Quantities[0]-9.75) > tol {
		t.Errorf("quantity = %g, want 9.75", eq.Quantities[0])
	}

	if err := p.SetBliss([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for wrong-length bliss, got %v", err)
	}
}

// --- Surplus tests ---

func TestSurplus_SingleGoodReference(t *testing.T) {
	// Demand and supply have equal slopes here, so the triangle areas
	// coincide: CS = PS = ½·4.75² = 11.28125.
	s, err := singleGood(t).Surplus()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(s.Quantity-4.75) > tol || math.Abs(s.Price-5.25) > tol {
		t.Errorf("equilibrium = (%g, %g), want (4.75, 5.25)", s.Quantity, s.Price)
	}
	want := 4.75 * 4.75 / 2
	if math.Abs(s.Consumer-want) > tol {
		t.Errorf("consumer surplus = %g, want %g", s.Consumer, want)
	}
	if math.Abs(s.Producer-want) > tol {
		t.Errorf("producer surplus = %g, want %g", s.Producer, want)
	}
}

func TestSurplus_ScalarOnly(t *testing.T) {
	p, err := NewProductionEconomy(ident(2), []float64{10, 10}, []float64{0.5, 0.5}, ident(2), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Surplus(); !errors.Is(err, ErrScalarOnly) {
		t.Errorf("expected ErrScalarOnly, got %v", err)
	}
}

// --- Curve tests ---

func TestCurves_SingleGood(t *testing.T) {
	grid := []float64{0, 1, 2, 3, 4, 5}
	series, err := singleGood(t).Curves(grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Intercepts: demand starts at Πb/μ = 10, supply at h = 0.5.
	if math.Abs(series.Demand[0]-10) > tol {
		t.Errorf("demand intercept = %g, want 10", series.Demand[0])
	}
	if math.Abs(series.Supply[0]-0.5) > tol {
		t.Errorf("supply intercept = %g, want 0.5", series.Supply[0])
	}
	for k := 1; k < len(grid); k++ {
		if series.Demand[k] >= series.Demand[k-1] {
			t.Errorf("demand must be decreasing at grid point %d", k)
		}
		if series.Supply[k] <= series.Supply[k-1] {
			t.Errorf("supply must be increasing at grid point %d", k)
		}
	}
}

func TestCurves_Errors(t *testing.T) {
	if _, err := singleGood(t).Curves(nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty grid, got %v", err)
	}

	p, err := NewProductionEconomy(ident(2), []float64{10, 10}, []float64{0.5, 0.5}, ident(2), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Curves([]float64{0, 1}); !errors.Is(err, ErrScalarOnly) {
		t.Errorf("expected ErrScalarOnly, got %v", err)
	}
}
