package gridspec

import (
	"errors"
	"math"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	g, err := Parse("0:10:200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Start != 0 || g.Stop != 10 || g.Points != 200 {
		t.Errorf("parsed %+v, want {0 10 200}", g)
	}
}

func TestParse_FractionalAndNegativeBounds(t *testing.T) {
	g, err := Parse("-1.5:2.25:10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Start != -1.5 || g.Stop != 2.25 {
		t.Errorf("parsed bounds [%g, %g], want [-1.5, 2.25]", g.Start, g.Stop)
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"0:10",
		"0:10:200:5",
		"a:b:c",
		"0;10;200",
		"0:10:-5",
		"0:10:2.5",
	}
	for _, spec := range tests {
		if _, err := Parse(spec); !errors.Is(err, ErrInvalidSpec) {
			t.Errorf("Parse(%q): expected ErrInvalidSpec, got %v", spec, err)
		}
	}
}

func TestParse_EmptyRange(t *testing.T) {
	if _, err := Parse("5:5:10"); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("expected ErrEmptyRange for equal bounds, got %v", err)
	}
	if _, err := Parse("10:5:10"); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("expected ErrEmptyRange for inverted bounds, got %v", err)
	}
}

func TestParse_TooFewPoints(t *testing.T) {
	if _, err := Parse("0:10:1"); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestValues_InclusiveAndEvenlySpaced(t *testing.T) {
	g := &Grid{Start: 0, Stop: 10, Points: 5}
	vals := g.Values()

	want := []float64{0, 2.5, 5, 7.5, 10}
	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if math.Abs(vals[i]-want[i]) > 1e-12 {
			t.Errorf("values[%d] = %g, want %g", i, vals[i], want[i])
		}
	}
	if vals[len(vals)-1] != 10 {
		t.Errorf("final value = %g, want exactly 10", vals[len(vals)-1])
	}
}
