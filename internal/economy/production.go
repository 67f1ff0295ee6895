package economy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ProductionEconomy is a single representative consumer with quadratic
// utility −½(Πc − b)ᵗ(Πc − b) facing a convex production cost
// hᵗc + ½cᵗHc, where H is the symmetrization ½(J + Jᵗ) of the supplied
// cost matrix. μ weights producer against consumer welfare in the
// planner's program.
//
// μ and b may be mutated between solves via SetWeight and SetBliss; each
// solve is a pure function of the current fields. Instances are not safe
// for concurrent use.
type ProductionEconomy struct {
	goods   int
	pi      *mat.Dense
	gram    *mat.Dense // ΠᵗΠ
	bliss   *mat.VecDense
	costLin *mat.VecDense
	costSym *mat.Dense // H = ½(J + Jᵗ)
	weight  float64
}

// ProductionEquilibrium is the output of one production solve: the chosen
// quantities and the prices that support them.
type ProductionEquilibrium struct {
	Quantities []float64
	Prices     []float64
}

// SurplusResult holds the single-good welfare decomposition at the
// competitive equilibrium.
type SurplusResult struct {
	Quantity float64
	Price    float64
	Consumer float64
	Producer float64
}

// CurveSeries holds inverse demand and supply evaluated over a quantity
// grid, ready to hand to an external plotting surface.
type CurveSeries struct {
	Quantities []float64
	Demand     []float64
	Supply     []float64
}

// NewProductionEconomy constructs a production economy. pi must be an
// invertible n×n matrix; bliss and costLinear are n-vectors; costQuad is the
// n×n matrix J, used only through its symmetrization. weight is the planner
// weight μ; it is not validated here — solves reject μ ≤ 0.
func NewProductionEconomy(pi [][]float64, bliss, costLinear []float64, costQuad [][]float64, weight float64) (*ProductionEconomy, error) {
	piD, err := squareFromRows(pi)
	if err != nil {
		return nil, err
	}
	n, _ := piD.Dims()

	// Π⁻¹ is not used by the solves, but invertibility is part of the
	// model: it makes ΠᵗΠ positive definite.
	if _, err := invert(piD, ErrSingularSubstitution); err != nil {
		return nil, err
	}

	bv, err := vecOfLen(bliss, n, "bliss vector")
	if err != nil {
		return nil, err
	}
	hv, err := vecOfLen(costLinear, n, "linear cost vector")
	if err != nil {
		return nil, err
	}
	jD, err := squareFromRows(costQuad)
	if err != nil {
		return nil, err
	}
	if jn, _ := jD.Dims(); jn != n {
		return nil, fmt.Errorf("%w: cost matrix is %d×%d, want %d×%d",
			ErrDimensionMismatch, jn, jn, n, n)
	}

	var sym mat.Dense
	sym.Add(jD, jD.T())
	sym.Scale(0.5, &sym)

	return &ProductionEconomy{
		goods:   n,
		pi:      piD,
		gram:    gramian(piD),
		bliss:   bv,
		costLin: hv,
		costSym: &sym,
		weight:  weight,
	}, nil
}

// Goods returns the number of goods n.
func (p *ProductionEconomy) Goods() int { return p.goods }

// Weight returns the current planner weight μ.
func (p *ProductionEconomy) Weight() float64 { return p.weight }

// SetWeight replaces the planner weight μ for subsequent solves.
func (p *ProductionEconomy) SetWeight(weight float64) { p.weight = weight }

// SetBliss replaces the bliss point for subsequent solves.
func (p *ProductionEconomy) SetBliss(bliss []float64) error {
	bv, err := vecOfLen(bliss, p.goods, "bliss vector")
	if err != nil {
		return err
	}
	p.bliss = bv
	return nil
}

// Competitive solves the planner's program via its linear first-order
// condition:
//
//	c = (ΠᵗΠ + μH)⁻¹(Πᵗb − μh)
//	p = (1/μ)(Πᵗb − ΠᵗΠc)
//
// Fails with ErrNonSatiation when the chosen allocation reaches the bliss
// point in any component (Πc − b ≥ 0 there, so marginal utility would be
// nonpositive).
func (p *ProductionEconomy) Competitive() (*ProductionEquilibrium, error) {
	return p.solve(1)
}

// Monopoly solves the monopolist's first-order condition, which doubles
// the own-price-effect term:
//
//	q = (μH + 2ΠᵗΠ)⁻¹(Πᵗb − μh)
//
// with prices backed out the same way as Competitive.
func (p *ProductionEconomy) Monopoly() (*ProductionEquilibrium, error) {
	return p.solve(2)
}

// solve runs the shared FOC solve; gramScale is 1 for the competitive
// program and 2 for the monopolist.
func (p *ProductionEconomy) solve(gramScale float64) (*ProductionEquilibrium, error) {
	if p.weight <= 0 {
		return nil, fmt.Errorf("%w: μ = %g", ErrNonPositiveWeight, p.weight)
	}

	// rhs = Πᵗb − μh
	var rhs, scaledH mat.VecDense
	rhs.MulVec(p.pi.T(), p.bliss)
	scaledH.ScaleVec(p.weight, p.costLin)
	rhs.SubVec(&rhs, &scaledH)

	// lhs = gramScale·ΠᵗΠ + μH
	var lhs, scaledGram mat.Dense
	scaledGram.Scale(gramScale, p.gram)
	lhs.Scale(p.weight, p.costSym)
	lhs.Add(&lhs, &scaledGram)

	var qty mat.VecDense
	if err := qty.SolveVec(&lhs, &rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	// Validity region: marginal utility Πᵗ(b − Πc) must stay positive,
	// i.e. every component of Πc − b strictly negative.
	var image, slack mat.VecDense
	image.MulVec(p.pi, &qty)
	slack.SubVec(&image, p.bliss)
	for k := 0; k < slack.Len(); k++ {
		if slack.AtVec(k) >= 0 {
			return nil, fmt.Errorf("%w: allocation reaches bliss point in good %d",
				ErrNonSatiation, k)
		}
	}

	// p = (1/μ)(Πᵗb − ΠᵗΠc)
	var price, gramQty mat.VecDense
	price.MulVec(p.pi.T(), p.bliss)
	gramQty.MulVec(p.gram, &qty)
	price.SubVec(&price, &gramQty)
	price.ScaleVec(1/p.weight, &price)

	return &ProductionEquilibrium{
		Quantities: vecSlice(&qty),
		Prices:     vecSlice(&price),
	}, nil
}

// Surplus computes consumer and producer surplus at the competitive
// equilibrium of a single-good economy. Both integrals have closed-form
// quadratic antiderivatives because the inverse curves are linear:
//
//	demand:  p(x) = (Πb − Π²x)/μ
//	supply:  p(x) = h + Hx
//
// Consumer surplus is the area under demand up to the equilibrium quantity
// minus equilibrium expenditure; producer surplus is equilibrium revenue
// minus the area under supply. Returns ErrScalarOnly for n > 1 and
// propagates any competitive-solve failure.
func (p *ProductionEconomy) Surplus() (*SurplusResult, error) {
	if p.goods != 1 {
		return nil, fmt.Errorf("%w: economy has %d goods", ErrScalarOnly, p.goods)
	}

	eq, err := p.Competitive()
	if err != nil {
		return nil, err
	}
	c := eq.Quantities[0]
	price := eq.Prices[0]

	piS := p.pi.At(0, 0)
	b0 := p.bliss.AtVec(0)
	h0 := p.costLin.AtVec(0)
	eta := p.costSym.At(0, 0)

	demandArea := (piS*b0*c - piS*piS*c*c/2) / p.weight
	supplyArea := h0*c + eta*c*c/2

	return &SurplusResult{
		Quantity: c,
		Price:    price,
		Consumer: demandArea - price*c,
		Producer: price*c - supplyArea,
	}, nil
}

// Curves evaluates the single-good inverse demand and supply curves over a
// quantity grid for an external plotting surface. Values are reported as
// computed; clamping or styling is the renderer's concern.
func (p *ProductionEconomy) Curves(grid []float64) (*CurveSeries, error) {
	if p.goods != 1 {
		return nil, fmt.Errorf("%w: economy has %d goods", ErrScalarOnly, p.goods)
	}
	if p.weight <= 0 {
		return nil, fmt.Errorf("%w: μ = %g", ErrNonPositiveWeight, p.weight)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: empty quantity grid", ErrDimensionMismatch)
	}

	piS := p.pi.At(0, 0)
	b0 := p.bliss.AtVec(0)
	h0 := p.costLin.AtVec(0)
	eta := p.costSym.At(0, 0)

	series := &CurveSeries{
		Quantities: append([]float64(nil), grid...),
		Demand:     make([]float64, len(grid)),
		Supply:     make([]float64, len(grid)),
	}
	for k, x := range grid {
		series.Demand[k] = (piS*b0 - piS*piS*x) / p.weight
		series.Supply[k] = h0 + eta*x
	}
	return series, nil
}
