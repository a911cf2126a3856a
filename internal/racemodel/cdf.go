package racemodel

import (
	"math"
	"sort"

	"gormi/domain/percentile"
)

// channelCDF is a single channel's distribution function through a set of
// (rt, probability) knots. It is 0 below the fastest knot, interpolated
// between knots, and 1 from the slowest knot on.
type channelCDF struct {
	rts   []float64
	probs []float64
}

// tableCDF reads a channel's distribution off its percentile table.
func tableCDF(t *percentile.Table) channelCDF {
	return channelCDF{rts: t.Values(), probs: t.Grid()}
}

// sampleCDF places the k-th fastest RT of n at k/(n+1). Ties keep the
// highest rank. These positions add up across channels, so for a pure
// race the summed CDF of two samples does not run ahead of the redundant
// sample's own estimate.
func sampleCDF(rts []float64) channelCDF {
	sorted := append([]float64(nil), rts...)
	sort.Float64s(sorted)
	n := float64(len(sorted))
	c := channelCDF{}
	for i, rt := range sorted {
		p := float64(i+1) / (n + 1)
		if k := len(c.rts); k > 0 && c.rts[k-1] == rt {
			c.probs[k-1] = p
			continue
		}
		c.rts = append(c.rts, rt)
		c.probs = append(c.probs, p)
	}
	return c
}

// at returns P(T <= rt).
func (c channelCDF) at(rt float64) float64 {
	if math.IsNaN(rt) {
		return math.NaN()
	}
	n := len(c.rts)
	if n == 0 || rt < c.rts[0] {
		return 0
	}
	if rt >= c.rts[n-1] {
		return 1
	}
	// last knot <= rt
	i := sort.Search(n, func(k int) bool { return c.rts[k] > rt }) - 1
	return c.interpolate(i, rt)
}

// before returns P(T < rt), the limit of at from the left. The two differ
// only where the CDF jumps.
func (c channelCDF) before(rt float64) float64 {
	if math.IsNaN(rt) {
		return math.NaN()
	}
	n := len(c.rts)
	if n == 0 || rt <= c.rts[0] {
		return 0
	}
	if rt > c.rts[n-1] {
		return 1
	}
	// first knot >= rt
	i := sort.Search(n, func(k int) bool { return c.rts[k] >= rt })
	if c.rts[i] == rt {
		// end of the segment arriving at rt: the lowest level sharing it
		return c.probs[i]
	}
	return c.interpolate(i-1, rt)
}

func (c channelCDF) interpolate(i int, rt float64) float64 {
	lo, hi := c.rts[i], c.rts[i+1]
	frac := (rt - lo) / (hi - lo)
	return c.probs[i] + frac*(c.probs[i+1]-c.probs[i])
}
