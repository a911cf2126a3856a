package estimator

import (
	"fmt"
	"math"
	"sort"

	"gormi/domain/percentile"
	"gormi/internal/errors"
)

// Method selects how RT values are read off the sorted sample.
type Method string

const (
	// MethodLinear interpolates between order statistics at h = (n-1)p.
	MethodLinear Method = "linear"
	// MethodPolygon inverts the cumulative frequency polygon of Ulrich,
	// Miller & Schröter (2007), built on midpoint plotting positions.
	MethodPolygon Method = "polygon"
)

// Boundary decides what happens to levels outside the probability range
// the sample supports.
type Boundary string

const (
	// BoundaryClamp fills such levels with the boundary observation.
	BoundaryClamp Boundary = "clamp"
	// BoundaryExtrapolate continues the outermost segment linearly, never below 0 ms.
	BoundaryExtrapolate Boundary = "extrapolate"
)

// Config controls estimation.
type Config struct {
	Grid     percentile.Grid `json:"grid" yaml:"grid"`
	Method   Method          `json:"method" yaml:"method"`
	Boundary Boundary        `json:"boundary" yaml:"boundary"`
	// MinSamples is the sample size below which a table is flagged low
	// confidence. Zero means one observation per grid level.
	MinSamples int `json:"min_samples" yaml:"min_samples"`
}

// DefaultConfig returns the 0.05..0.95 grid with linear interpolation and clamping.
func DefaultConfig() Config {
	return Config{
		Grid:     percentile.DefaultGrid(),
		Method:   MethodLinear,
		Boundary: BoundaryClamp,
	}
}

// Validate checks the configuration, filling nothing in.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return errors.Wrap(err, "estimator grid")
	}
	switch c.Method {
	case MethodLinear, MethodPolygon:
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown estimation method %q", c.Method))
	}
	switch c.Boundary {
	case BoundaryClamp, BoundaryExtrapolate:
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown boundary rule %q", c.Boundary))
	}
	if c.MinSamples < 0 {
		return errors.InvalidInput(fmt.Sprintf("min samples must be >= 0, got %d", c.MinSamples))
	}
	return nil
}

func (c Config) minSamples() int {
	if c.MinSamples > 0 {
		return c.MinSamples
	}
	return len(c.Grid)
}

// Estimate builds a percentile table from a raw RT sample. An empty sample
// fails with EMPTY_SAMPLE; a small one still yields a value at every level
// and is flagged LowConfidence.
func Estimate(label string, sample []float64, cfg Config) (*percentile.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sorted, err := sortedSample(label, sample)
	if err != nil {
		return nil, err
	}

	var (
		values  []float64
		clamped bool
	)
	switch cfg.Method {
	case MethodPolygon:
		poly := newPolygonFromSorted(sorted)
		values = make([]float64, len(cfg.Grid))
		for i, p := range cfg.Grid {
			v, outside := poly.quantile(p, cfg.Boundary)
			values[i] = v
			clamped = clamped || outside
		}
	default:
		values = linearQuantiles(sorted, cfg.Grid)
	}

	low := len(sorted) < cfg.minSamples() || clamped
	return percentile.NewTable(label, cfg.Grid, values,
		percentile.WithSampleSize(len(sorted)),
		percentile.WithLowConfidence(low))
}

// LabeledSample is one RT sample with the label its table will carry.
type LabeledSample struct {
	Label string
	RTs   []float64
}

// EstimateAll estimates one table per sample on a shared grid, in input order.
func EstimateAll(samples []LabeledSample, cfg Config) ([]*percentile.Table, error) {
	tables := make([]*percentile.Table, len(samples))
	for i, s := range samples {
		t, err := Estimate(s.Label, s.RTs, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d (%q)", i, s.Label)
		}
		tables[i] = t
	}
	return tables, nil
}

// linearQuantiles reads each level at h = (n-1)p between order statistics.
// Every p in [0,1] falls inside the sample, so no boundary rule applies.
func linearQuantiles(sorted []float64, grid percentile.Grid) []float64 {
	n := len(sorted)
	out := make([]float64, len(grid))
	for i, p := range grid {
		if n == 1 {
			out[i] = sorted[0]
			continue
		}
		h := float64(n-1) * p
		lo := int(math.Floor(h))
		if lo >= n-1 {
			out[i] = sorted[n-1]
			continue
		}
		out[i] = sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
	}
	return out
}

// sortedSample validates and returns a sorted copy of the sample.
func sortedSample(label string, sample []float64) ([]float64, error) {
	if len(sample) == 0 {
		if label == "" {
			return nil, errors.EmptySample("cannot estimate percentiles from an empty RT sample")
		}
		return nil, errors.EmptySample(fmt.Sprintf("cannot estimate percentiles for %q from an empty RT sample", label))
	}
	sorted := make([]float64, len(sample))
	for i, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, errors.InvalidSample(fmt.Sprintf("RT %v at position %d is not a non-negative finite number", v, i))
		}
		sorted[i] = v
	}
	sort.Float64s(sorted)
	return sorted, nil
}
