package aggregate

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"gormi/domain/percentile"
	"gormi/internal/errors"
)

// Mode selects how values at one level are reduced across tables.
type Mode string

const (
	// ModeMean averages per level; the usual group CDF across subjects.
	ModeMean Mode = "mean"
	// ModeSum adds per level, for tables that hold raw counts.
	ModeSum Mode = "sum"
)

// ParseMode parses a mode name. An empty string is the default mean.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMean:
		return ModeMean, nil
	case ModeSum:
		return ModeSum, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown aggregate mode %q (want mean or sum)", s))
}

// Options configures Combine.
type Options struct {
	Mode Mode `json:"mode" yaml:"mode"`
	// Label names the result; empty keeps the label of a single input
	// or uses the mode name for several.
	Label string `json:"label" yaml:"label"`
}

// DefaultOptions returns mean aggregation without a label.
func DefaultOptions() Options {
	return Options{Mode: ModeMean}
}

// Combine reduces tables sharing one grid into a single table, level by level.
func Combine(tables []*percentile.Table, opts Options) (*percentile.Table, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	for i, t := range tables {
		if t == nil {
			return nil, errors.InvalidInput(fmt.Sprintf("table %d is nil", i))
		}
	}
	grid, err := percentile.Grids(tables)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate")
	}

	if len(tables) == 1 {
		only := tables[0]
		if opts.Label != "" {
			return only.WithLabel(opts.Label), nil
		}
		return only, nil
	}

	n := 0
	low := false
	for _, t := range tables {
		n += t.SampleSize()
		low = low || t.LowConfidence()
	}

	column := make(stats.Float64Data, len(tables))
	values := make([]float64, len(grid))
	for level := range grid {
		for j, t := range tables {
			_, column[j] = t.At(level)
		}
		v, err := reduce(column, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "aggregate level %v", grid[level])
		}
		values[level] = v
	}

	label := opts.Label
	if label == "" {
		label = string(mode)
	}
	return percentile.NewTable(label, grid, values,
		percentile.WithSampleSize(n), percentile.WithLowConfidence(low))
}

func reduce(column stats.Float64Data, mode Mode) (float64, error) {
	if mode == ModeSum {
		return column.Sum()
	}
	return column.Mean()
}
