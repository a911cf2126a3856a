package percentile

import (
	"math"
	"sort"
)

// Quantile maps a probability to an RT by linear interpolation between the
// table's levels. Probabilities outside the grid return the boundary RT,
// and NaN is treated as below it.
func (t *Table) Quantile(p float64) float64 {
	n := len(t.values)
	if n == 1 || p <= t.grid[0] || math.IsNaN(p) {
		return t.values[0]
	}
	if p >= t.grid[n-1] {
		return t.values[n-1]
	}
	// first level strictly above p; p lies in [grid[i-1], grid[i])
	i := sort.Search(n, func(k int) bool { return t.grid[k] > p })
	lo, hi := t.grid[i-1], t.grid[i]
	frac := (p - lo) / (hi - lo)
	return t.values[i-1] + frac*(t.values[i]-t.values[i-1])
}

// Probability maps an RT to a probability by inverse interpolation. Where
// several levels share one RT the highest of them is returned, so the
// result reads as P(T <= rt). RTs outside the table return the boundary
// level, and NaN is treated as below it.
func (t *Table) Probability(rt float64) float64 {
	n := len(t.values)
	if n == 1 || rt < t.values[0] || math.IsNaN(rt) {
		return t.grid[0]
	}
	if rt >= t.values[n-1] {
		return t.grid[n-1]
	}
	// last index with values[i] <= rt
	i := sort.Search(n, func(k int) bool { return t.values[k] > rt }) - 1
	lo, hi := t.values[i], t.values[i+1]
	frac := (rt - lo) / (hi - lo)
	return t.grid[i] + frac*(t.grid[i+1]-t.grid[i])
}

// Degenerate reports whether the table has fewer than two levels or fewer
// than two distinct RTs. Both lookups still answer with boundary values,
// but RT→probability carries no information inside the range.
func (t *Table) Degenerate() bool {
	if len(t.values) < 2 {
		return true
	}
	return t.values[0] == t.values[len(t.values)-1]
}

// Quantiles evaluates Quantile at every level of g.
func (t *Table) Quantiles(g Grid) []float64 {
	out := make([]float64, len(g))
	for i, p := range g {
		out[i] = t.Quantile(p)
	}
	return out
}
