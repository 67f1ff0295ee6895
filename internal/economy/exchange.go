package economy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ExchangeEconomy is a pure-exchange economy of m agents trading n goods.
// All agents share the substitution matrix Π; each has its own bliss point
// and endowment. An optional wealth-transfer vector redistributes wealth
// across agents and must sum to zero.
//
// The solver is memoryless: Solve is a pure function of the constructed
// fields and may be called repeatedly. Instances are not safe for
// concurrent use; each belongs to a single logical caller.
type ExchangeEconomy struct {
	goods  int
	agents int

	pi      *mat.Dense
	piInv   *mat.Dense
	gram    *mat.Dense // ΠᵗΠ
	gramInv *mat.Dense // (ΠᵗΠ)⁻¹

	bliss  []*mat.VecDense
	endow  []*mat.VecDense
	wealth []float64

	margin float64
}

// ExchangeEquilibrium is the output of one exchange solve: prices normalized
// on good 0, one allocation per agent, and each agent's marginal utility of
// wealth.
type ExchangeEquilibrium struct {
	Prices            []float64
	Allocations       [][]float64
	WealthMultipliers []float64
}

// NewExchangeEconomy constructs an exchange economy with the default
// non-satiation margin. pi is the shared n×n substitution matrix; bliss and
// endow hold one n-vector per agent; wealth may be nil (no transfers) or a
// per-agent vector summing to zero.
func NewExchangeEconomy(pi, bliss, endow [][]float64, wealth []float64) (*ExchangeEconomy, error) {
	return NewExchangeEconomyMargin(pi, bliss, endow, wealth, DefaultSatiationMargin)
}

// NewExchangeEconomyMargin is NewExchangeEconomy with an explicit
// non-satiation margin.
func NewExchangeEconomyMargin(pi, bliss, endow [][]float64, wealth []float64, margin float64) (*ExchangeEconomy, error) {
	piD, err := squareFromRows(pi)
	if err != nil {
		return nil, err
	}
	n, _ := piD.Dims()

	agents := len(bliss)
	if agents == 0 {
		return nil, fmt.Errorf("%w: at least one agent required", ErrDimensionMismatch)
	}
	if len(endow) != agents {
		return nil, fmt.Errorf("%w: %d bliss vectors but %d endowments",
			ErrDimensionMismatch, agents, len(endow))
	}

	piInv, err := invert(piD, ErrSingularSubstitution)
	if err != nil {
		return nil, err
	}
	gram := gramian(piD)
	gramInv, err := invert(gram, ErrSingularSubstitution)
	if err != nil {
		return nil, err
	}

	e := &ExchangeEconomy{
		goods:   n,
		agents:  agents,
		pi:      piD,
		piInv:   piInv,
		gram:    gram,
		gramInv: gramInv,
		margin:  margin,
	}

	for i := 0; i < agents; i++ {
		bv, err := vecOfLen(bliss[i], n, fmt.Sprintf("bliss vector %d", i))
		if err != nil {
			return nil, err
		}
		ev, err := vecOfLen(endow[i], n, fmt.Sprintf("endowment vector %d", i))
		if err != nil {
			return nil, err
		}
		if err := checkSatiationMargin(piD, bv, ev, margin); err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		e.bliss = append(e.bliss, bv)
		e.endow = append(e.endow, ev)
	}

	if wealth == nil {
		e.wealth = make([]float64, agents)
	} else {
		if len(wealth) != agents {
			return nil, fmt.Errorf("%w: wealth vector has length %d, want %d",
				ErrDimensionMismatch, len(wealth), agents)
		}
		var sum float64
		for _, w := range wealth {
			sum += w
		}
		if sum > WealthTolerance || sum < -WealthTolerance {
			return nil, fmt.Errorf("%w: transfers sum to %g", ErrWealthNotClosed, sum)
		}
		e.wealth = append([]float64(nil), wealth...)
	}

	return e, nil
}

// Goods returns the number of goods n.
func (e *ExchangeEconomy) Goods() int { return e.goods }

// Agents returns the number of agents m.
func (e *ExchangeEconomy) Agents() int { return e.agents }

// Solve computes the competitive equilibrium in closed form.
//
// Market clearing applied to the representative-consumer aggregate
// (b = Σbᵢ, e = Σeᵢ, Σμᵢ = 1) pins the price direction:
//
//	p_raw = Πᵗb − ΠᵗΠe
//
// Prices are normalized so good 0 is the numeraire. Given p, each agent's
// demand is linear:
//
//	μᵢ = (−Wᵢ + pᵗ(Π⁻¹bᵢ − eᵢ)) / pᵗ(ΠᵗΠ)⁻¹p
//	cᵢ = Π⁻¹bᵢ − μᵢ(ΠᵗΠ)⁻¹p
//
// The shared inversions are computed once at construction. Returns
// ErrDegenerateNumeraire when p_raw[0] is numerically zero and a
// NoEquilibriumError when any allocation component is negative beyond
// AllocationTolerance.
func (e *ExchangeEconomy) Solve() (*ExchangeEquilibrium, error) {
	n := e.goods

	bAgg := mat.NewVecDense(n, nil)
	eAgg := mat.NewVecDense(n, nil)
	for i := 0; i < e.agents; i++ {
		bAgg.AddVec(bAgg, e.bliss[i])
		eAgg.AddVec(eAgg, e.endow[i])
	}

	// p_raw = Πᵗb − ΠᵗΠe
	var praw, gramE mat.VecDense
	praw.MulVec(e.pi.T(), bAgg)
	gramE.MulVec(e.gram, eAgg)
	praw.SubVec(&praw, &gramE)

	numeraire := praw.AtVec(0)
	if numeraire < NumeraireTolerance && numeraire > -NumeraireTolerance {
		return nil, fmt.Errorf("%w: p_raw[0] = %g", ErrDegenerateNumeraire, numeraire)
	}

	p := mat.NewVecDense(n, nil)
	p.ScaleVec(1/numeraire, &praw)

	// slope = (ΠᵗΠ)⁻¹p, shared by every agent's demand; A = pᵗ·slope > 0
	// since ΠᵗΠ is positive definite and p ≠ 0.
	var slope mat.VecDense
	slope.MulVec(e.gramInv, p)
	a := mat.Dot(p, &slope)

	eq := &ExchangeEquilibrium{
		Prices:            vecSlice(p),
		Allocations:       make([][]float64, e.agents),
		WealthMultipliers: make([]float64, e.agents),
	}

	for i := 0; i < e.agents; i++ {
		// base = Π⁻¹bᵢ
		var base, excess mat.VecDense
		base.MulVec(e.piInv, e.bliss[i])
		excess.SubVec(&base, e.endow[i])

		mu := (-e.wealth[i] + mat.Dot(p, &excess)) / a

		var alloc mat.VecDense
		alloc.AddScaledVec(&base, -mu, &slope)

		c := vecSlice(&alloc)
		for _, v := range c {
			if v < -AllocationTolerance {
				return nil, &NoEquilibriumError{Agent: i, Allocation: c}
			}
		}

		eq.WealthMultipliers[i] = mu
		eq.Allocations[i] = c
	}

	return eq, nil
}

// vecSlice copies a vector into a fresh slice.
func vecSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for k := range out {
		out[k] = v.AtVec(k)
	}
	return out
}
