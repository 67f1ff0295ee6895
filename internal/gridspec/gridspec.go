// Package gridspec parses quantity-grid expressions used when sampling
// inverse demand and supply curves for an external plotting surface.
package gridspec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// specRegex matches: {start}:{stop}:{points}
// Example: 0:10:200 — 200 evenly spaced quantities from 0 to 10 inclusive.
var specRegex = regexp.MustCompile(
	`^(-?[0-9]+(?:\.[0-9]+)?):(-?[0-9]+(?:\.[0-9]+)?):([0-9]+)$`,
)

var (
	ErrInvalidSpec  = errors.New("gridspec: invalid grid expression")
	ErrEmptyRange   = errors.New("gridspec: stop must exceed start")
	ErrTooFewPoints = errors.New("gridspec: at least two points required")
)

// Grid represents a parsed sampling grid.
type Grid struct {
	Start  float64 `json:"start"`
	Stop   float64 `json:"stop"`
	Points int     `json:"points"`
}

// Parse parses and validates a grid expression string.
// Format: {start}:{stop}:{points}
func Parse(spec string) (*Grid, error) {
	matches := specRegex.FindStringSubmatch(spec)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected start:stop:points)", ErrInvalidSpec, spec)
	}

	start, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: start %s", ErrInvalidSpec, matches[1])
	}
	stop, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: stop %s", ErrInvalidSpec, matches[2])
	}
	points, err := strconv.Atoi(matches[3])
	if err != nil {
		return nil, fmt.Errorf("%w: points %s", ErrInvalidSpec, matches[3])
	}

	if stop <= start {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrEmptyRange, start, stop)
	}
	if points < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, points)
	}

	return &Grid{Start: start, Stop: stop, Points: points}, nil
}

// Values returns the grid as an inclusive, evenly spaced quantity slice.
// The final point is set to Stop exactly rather than accumulated.
func (g *Grid) Values() []float64 {
	step := (g.Stop - g.Start) / float64(g.Points-1)
	vals := make([]float64, g.Points)
	for i := range vals {
		vals[i] = g.Start + float64(i)*step
	}
	vals[g.Points-1] = g.Stop
	return vals
}
