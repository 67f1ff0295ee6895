package guard

import "testing"

func TestCheckProblem_WithinLimits(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 500)
	if err := l.CheckProblem(10, 20); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckProblem_GoodsExceeded(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 500)
	if err := l.CheckProblem(51, 1); err != ErrGoodsLimitExceeded {
		t.Errorf("expected ErrGoodsLimitExceeded, got %v", err)
	}
}

func TestCheckProblem_AgentsExceeded(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 500)
	if err := l.CheckProblem(10, 101); err != ErrAgentsLimitExceeded {
		t.Errorf("expected ErrAgentsLimitExceeded, got %v", err)
	}
}

func TestCheckProblem_AtLimit(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 500)
	if err := l.CheckProblem(50, 100); err != nil {
		t.Errorf("limits are inclusive, got %v", err)
	}
}

func TestCheckGrid(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 500)
	if err := l.CheckGrid(10000); err != nil {
		t.Errorf("expected no error at limit, got %v", err)
	}
	if err := l.CheckGrid(10001); err != ErrGridLimitExceeded {
		t.Errorf("expected ErrGridLimitExceeded, got %v", err)
	}
}

func TestCheckScenarioCount(t *testing.T) {
	l := NewSizeLimiter(50, 100, 10000, 2)
	if err := l.CheckScenarioCount(1); err != nil {
		t.Errorf("expected room for a second scenario, got %v", err)
	}
	if err := l.CheckScenarioCount(2); err != ErrScenarioLimitExceeded {
		t.Errorf("expected ErrScenarioLimitExceeded, got %v", err)
	}
}

func TestNewSizeLimiter_ClampsNonPositive(t *testing.T) {
	l := NewSizeLimiter(0, -5, 0, 0)
	if l.MaxGoods != 1 || l.MaxAgents != 1 || l.MaxGridPoints != 1 || l.MaxScenarios != 1 {
		t.Errorf("non-positive caps should clamp to 1, got %+v", l)
	}
}
