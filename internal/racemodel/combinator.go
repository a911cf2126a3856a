package racemodel

import (
	"fmt"
	"math"
	"sort"

	"gormi/domain/percentile"
	"gormi/internal/errors"
	"gormi/internal/estimator"
)

// Prediction is the race-model bound for two channels: the probability
// summation F_A(t) + F_B(t), clipped at 1, and its percentile table.
type Prediction struct {
	a, b   *percentile.Table
	ca, cb channelCDF
	table  *percentile.Table
}

// Predict combines two channel tables in quantile space. Each channel's CDF
// is read off its table: 0 below the fastest RT, interpolated between the
// levels, 1 from the slowest RT on. The summed CDF is inverted at each
// level of grid. An empty grid means the channels' own grid.
func Predict(a, b *percentile.Table, grid percentile.Grid) (*Prediction, error) {
	if a == nil || b == nil {
		return nil, errors.InvalidInput("race prediction needs two channel tables")
	}
	if err := percentile.CheckSameGrid("race prediction", a.Grid(), b.Grid()); err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		grid = a.Grid()
	}
	return predict(a, b, tableCDF(a), tableCDF(b), grid)
}

// PredictSamples is Predict with each channel's CDF built from its raw RTs
// instead of its table. The tables label the bound and are returned by
// Channels.
func PredictSamples(a, b *percentile.Table, rtsA, rtsB []float64, grid percentile.Grid) (*Prediction, error) {
	if a == nil || b == nil {
		return nil, errors.InvalidInput("race prediction needs two channel tables")
	}
	if len(rtsA) == 0 || len(rtsB) == 0 {
		return nil, errors.EmptySample("race prediction needs RTs for both channels")
	}
	if len(grid) == 0 {
		grid = a.Grid()
	}
	return predict(a, b, sampleCDF(rtsA), sampleCDF(rtsB), grid)
}

// PredictFromSamples estimates both channels on cfg's grid, then predicts
// from the raw RTs.
func PredictFromSamples(a, b []float64, cfg estimator.Config) (*Prediction, error) {
	ta, err := estimator.Estimate("A", a, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "channel A")
	}
	tb, err := estimator.Estimate("B", b, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "channel B")
	}
	return PredictSamples(ta, tb, a, b, cfg.Grid)
}

func predict(a, b *percentile.Table, ca, cb channelCDF, grid percentile.Grid) (*Prediction, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	knots := unionKnots(ca.rts, cb.rts)
	right := make([]float64, len(knots))
	left := make([]float64, len(knots))
	for i, rt := range knots {
		right[i] = ca.at(rt) + cb.at(rt)
		left[i] = ca.before(rt) + cb.before(rt)
	}

	values := make([]float64, len(grid))
	for i, p := range grid {
		values[i] = invert(knots, left, right, p)
	}

	label := fmt.Sprintf("race(%s,%s)", a.Label(), b.Label())
	if a.Label() == b.Label() {
		label = a.Label()
	}
	table, err := percentile.NewTable(label, grid, values,
		percentile.WithLowConfidence(a.LowConfidence() || b.LowConfidence()))
	if err != nil {
		return nil, errors.Wrap(err, "race prediction")
	}
	return &Prediction{a: a, b: b, ca: ca, cb: cb, table: table}, nil
}

// Table returns the bound as a percentile table.
func (p *Prediction) Table() *percentile.Table { return p.table }

// Channels returns the two channel tables the bound was built from.
func (p *Prediction) Channels() (a, b *percentile.Table) { return p.a, p.b }

// Degenerate reports whether either channel table is degenerate. The bound
// is still defined but rests on boundary values.
func (p *Prediction) Degenerate() bool { return p.a.Degenerate() || p.b.Degenerate() }

// Probability returns min(1, F_A(rt) + F_B(rt)).
func (p *Prediction) Probability(rt float64) float64 {
	return math.Min(1, p.ca.at(rt)+p.cb.at(rt))
}

// unionKnots merges and de-duplicates two ascending RT lists.
func unionKnots(a, b []float64) []float64 {
	all := make([]float64, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	sort.Float64s(all)
	out := all[:0]
	for i, v := range all {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// invert finds the smallest RT where the summed CDF reaches p. right and
// left hold the sum at each knot and its limit from the left. Between
// adjacent knots neither channel has a knot, so the sum runs linearly from
// right[j-1] to left[j] and interpolation is exact. A level crossed by a
// jump takes the knot where the jump happens.
func invert(knots, left, right []float64, p float64) float64 {
	j := sort.Search(len(right), func(k int) bool { return right[k] >= p })
	switch {
	case j == 0:
		return knots[0]
	case j == len(right):
		return knots[len(knots)-1]
	case left[j] < p:
		return knots[j]
	}
	lo, hi := right[j-1], left[j]
	return knots[j-1] + (p-lo)/(hi-lo)*(knots[j]-knots[j-1])
}
