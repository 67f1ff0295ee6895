// Package guard enforces problem-size limits on solve requests.
//
// Every equilibrium solve inverts n×n matrices, an O(n³) operation, and the
// exchange solver additionally loops over m agents. Caps on goods, agents,
// grid points, and stored scenarios keep a single request from monopolizing
// the instance.
package guard

import "errors"

var (
	// ErrGoodsLimitExceeded is returned when an economy declares more
	// goods than the configured maximum.
	ErrGoodsLimitExceeded = errors.New("guard: goods dimension exceeds limit")

	// ErrAgentsLimitExceeded is returned when an exchange economy declares
	// more agents than the configured maximum.
	ErrAgentsLimitExceeded = errors.New("guard: agent count exceeds limit")

	// ErrGridLimitExceeded is returned when a curve-sampling request asks
	// for more grid points than the configured maximum.
	ErrGridLimitExceeded = errors.New("guard: grid point count exceeds limit")

	// ErrScenarioLimitExceeded is returned when creating a scenario would
	// exceed the configured scenario cap.
	ErrScenarioLimitExceeded = errors.New("guard: stored scenario count exceeds limit")
)

// SizeLimiter enforces the instance's problem-size limits.
type SizeLimiter struct {
	// MaxGoods caps the goods dimension n of any economy.
	MaxGoods int

	// MaxAgents caps the agent count m of an exchange economy.
	MaxAgents int

	// MaxGridPoints caps the number of quantities in one curve sample.
	MaxGridPoints int

	// MaxScenarios caps the number of stored scenarios.
	MaxScenarios int
}

// NewSizeLimiter creates a limiter with the given caps. Non-positive caps
// are clamped to 1.
func NewSizeLimiter(maxGoods, maxAgents, maxGridPoints, maxScenarios int) *SizeLimiter {
	return &SizeLimiter{
		MaxGoods:      atLeastOne(maxGoods),
		MaxAgents:     atLeastOne(maxAgents),
		MaxGridPoints: atLeastOne(maxGridPoints),
		MaxScenarios:  atLeastOne(maxScenarios),
	}
}

// CheckProblem validates an economy's dimensions. agents is 1 for
// production economies.
func (l *SizeLimiter) CheckProblem(goods, agents int) error {
	if goods > l.MaxGoods {
		return ErrGoodsLimitExceeded
	}
	if agents > l.MaxAgents {
		return ErrAgentsLimitExceeded
	}
	return nil
}

// CheckGrid validates a curve-sampling point count.
func (l *SizeLimiter) CheckGrid(points int) error {
	if points > l.MaxGridPoints {
		return ErrGridLimitExceeded
	}
	return nil
}

// CheckScenarioCount validates that one more scenario fits under the cap,
// given the current stored count.
func (l *SizeLimiter) CheckScenarioCount(existing int) error {
	if existing+1 > l.MaxScenarios {
		return ErrScenarioLimitExceeded
	}
	return nil
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
