package estimator

import (
	"math"
	"sort"
)

// Polygon is the cumulative frequency polygon of an RT sample. Unique RTs
// u_j carry the midpoints of successive max-rank plotting positions, and
// the CDF is linear between them: 0 below the fastest RT, 1 from the
// slowest RT on.
type Polygon struct {
	rts   []float64 // unique RTs, ascending
	probs []float64 // midpoint plotting positions at rts
}

// NewPolygon builds the polygon for a sample.
func NewPolygon(sample []float64) (*Polygon, error) {
	sorted, err := sortedSample("", sample)
	if err != nil {
		return nil, err
	}
	return newPolygonFromSorted(sorted), nil
}

func newPolygonFromSorted(sorted []float64) *Polygon {
	steps := stepsFromSorted(sorted)
	rts := make([]float64, len(steps))
	probs := make([]float64, len(steps))
	prev := 0.0
	for j, s := range steps {
		rts[j] = s.RT
		probs[j] = prev + (s.Level-prev)/2
		prev = s.Level
	}
	return &Polygon{rts: rts, probs: probs}
}

// Knots returns copies of the polygon's RTs and plotting positions.
func (p *Polygon) Knots() (rts, probs []float64) {
	rts = append([]float64(nil), p.rts...)
	probs = append([]float64(nil), p.probs...)
	return rts, probs
}

// Probability returns the polygon CDF at t.
func (p *Polygon) Probability(t float64) float64 {
	n := len(p.rts)
	if t < p.rts[0] {
		return 0
	}
	if t >= p.rts[n-1] {
		return 1
	}
	i := sort.Search(n, func(k int) bool { return p.rts[k] > t }) - 1
	frac := (t - p.rts[i]) / (p.rts[i+1] - p.rts[i])
	return p.probs[i] + frac*(p.probs[i+1]-p.probs[i])
}

// Quantile returns the RT at probability level q under the given boundary rule.
func (p *Polygon) Quantile(q float64, boundary Boundary) float64 {
	v, _ := p.quantile(q, boundary)
	return v
}

// quantile also reports whether q fell outside the knots' probability range.
func (p *Polygon) quantile(q float64, boundary Boundary) (float64, bool) {
	n := len(p.rts)
	if n == 1 {
		return p.rts[0], q != p.probs[0]
	}
	switch {
	case q < p.probs[0]:
		if boundary == BoundaryExtrapolate {
			return math.Max(0, p.along(0, q)), true
		}
		return p.rts[0], true
	case q > p.probs[n-1]:
		if boundary == BoundaryExtrapolate {
			return p.along(n-2, q), true
		}
		return p.rts[n-1], true
	}
	// first knot at or above q
	i := sort.Search(n, func(k int) bool { return p.probs[k] >= q })
	if i == 0 {
		return p.rts[0], false
	}
	return p.along(i-1, q), false
}

// along evaluates the line through knots i and i+1 at probability q.
func (p *Polygon) along(i int, q float64) float64 {
	dp := p.probs[i+1] - p.probs[i]
	return p.rts[i] + (q-p.probs[i])/dp*(p.rts[i+1]-p.rts[i])
}
