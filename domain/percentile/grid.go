package percentile

import (
	"fmt"
	"math"

	"gormi/internal/errors"
)

// gridTolerance is the tolerance used when comparing percentile levels.
const gridTolerance = 1e-9

// Grid is an ordered set of probability levels, strictly increasing in (0,1).
type Grid []float64

// DefaultGrid returns {0.05, 0.10, ..., 0.95}.
func DefaultGrid() Grid {
	g, _ := StepGrid(0.05, 0.95, 0.05)
	return g
}

// NewGrid validates levels and returns them as a Grid.
func NewGrid(levels []float64) (Grid, error) {
	g := make(Grid, len(levels))
	copy(g, levels)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// EvenGrid returns n equally spaced levels centred in their bins:
// (i+0.5)/n for i in [0, n). EvenGrid(10) is 0.05, 0.15, ..., 0.95.
func EvenGrid(n int) (Grid, error) {
	if n <= 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("grid needs at least one level, got %d", n))
	}
	g := make(Grid, n)
	for i := range g {
		g[i] = roundLevel((float64(i) + 0.5) / float64(n))
	}
	return g, nil
}

// StepGrid returns start, start+step, ... up to and including stop.
func StepGrid(start, stop, step float64) (Grid, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, errors.InvalidInput(fmt.Sprintf("grid step must be positive, got %v", step))
	}
	if stop < start {
		return nil, errors.InvalidInput(fmt.Sprintf("grid stop %v is below start %v", stop, start))
	}
	n := int(math.Floor((stop-start)/step+gridTolerance)) + 1
	g := make(Grid, n)
	for i := range g {
		g[i] = roundLevel(start + float64(i)*step)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the grid is non-empty, inside (0,1) and strictly increasing.
func (g Grid) Validate() error {
	if len(g) == 0 {
		return errors.InvalidInput("percentile grid is empty")
	}
	for i, p := range g {
		if math.IsNaN(p) || p <= 0 || p >= 1 {
			return errors.InvalidInput(fmt.Sprintf("percentile level %v at index %d is outside (0,1)", p, i))
		}
		if i > 0 && p <= g[i-1] {
			return errors.InvalidInput(fmt.Sprintf("percentile levels must be strictly increasing (index %d: %v after %v)", i, p, g[i-1]))
		}
	}
	return nil
}

// Equal reports whether both grids have the same levels within tolerance.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if math.Abs(g[i]-other[i]) > gridTolerance {
			return false
		}
	}
	return true
}

// Clone returns a copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	copy(out, g)
	return out
}

// IndexOf returns the index of level p, or -1.
func (g Grid) IndexOf(p float64) int {
	for i, level := range g {
		if math.Abs(level-p) <= gridTolerance {
			return i
		}
	}
	return -1
}

// CheckSameGrid returns a SHAPE_MISMATCH error when the grids differ.
func CheckSameGrid(what string, a, b Grid) error {
	if a.Equal(b) {
		return nil
	}
	return errors.ShapeMismatch(fmt.Sprintf("%s: percentile grids differ (%d levels %v vs %d levels %v)", what, len(a), []float64(a), len(b), []float64(b)))
}

func roundLevel(p float64) float64 {
	return math.Round(p*1e12) / 1e12
}
