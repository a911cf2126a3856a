package percentile

import (
	"encoding/json"
	"fmt"
	"math"

	"gormi/internal/errors"
)

// monotonicTolerance absorbs float noise from interpolation and averaging.
const monotonicTolerance = 1e-9

// Table is the canonical CDF representation: an ordered mapping from
// percentile level to RT. Tables are immutable; accessors return copies.
type Table struct {
	label         string
	grid          Grid
	values        []float64
	n             int
	lowConfidence bool
}

// Option sets optional table metadata at construction.
type Option func(*Table)

// WithSampleSize records how many observations the table was estimated from.
func WithSampleSize(n int) Option {
	return func(t *Table) { t.n = n }
}

// WithLowConfidence marks the table as estimated from too few observations
// for its grid, or with levels filled by a boundary rule.
func WithLowConfidence(low bool) Option {
	return func(t *Table) { t.lowConfidence = low }
}

// NewTable builds a table, checking that values match the grid and are
// finite, non-negative and non-decreasing.
func NewTable(label string, grid Grid, values []float64, opts ...Option) (*Table, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if len(values) != len(grid) {
		return nil, errors.ShapeMismatch(fmt.Sprintf("table %q has %d values for %d percentile levels", label, len(values), len(grid)))
	}
	vals := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.InvalidInput(fmt.Sprintf("table %q: value at level %v is not finite", label, grid[i]))
		}
		if v < 0 {
			return nil, errors.InvalidInput(fmt.Sprintf("table %q: negative RT %v at level %v", label, v, grid[i]))
		}
		if i > 0 && v < vals[i-1] {
			if vals[i-1]-v > monotonicTolerance*math.Max(1, math.Abs(v)) {
				return nil, errors.InvalidInput(fmt.Sprintf("table %q: RT decreases from %v to %v between levels %v and %v", label, vals[i-1], v, grid[i-1], grid[i]))
			}
			v = vals[i-1]
		}
		vals[i] = v
	}
	t := &Table{label: label, grid: grid.Clone(), values: vals}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Label returns the subject/condition label, possibly empty.
func (t *Table) Label() string { return t.label }

// Grid returns a copy of the percentile levels.
func (t *Table) Grid() Grid { return t.grid.Clone() }

// Values returns a copy of the RT values, one per level.
func (t *Table) Values() []float64 {
	out := make([]float64, len(t.values))
	copy(out, t.values)
	return out
}

// Len returns the number of levels.
func (t *Table) Len() int { return len(t.values) }

// At returns the level and RT at index i.
func (t *Table) At(i int) (level, rt float64) {
	return t.grid[i], t.values[i]
}

// Value returns the RT stored at an exact grid level.
func (t *Table) Value(level float64) (float64, bool) {
	i := t.grid.IndexOf(level)
	if i < 0 {
		return 0, false
	}
	return t.values[i], true
}

// SampleSize returns the number of observations behind the table, 0 if unknown.
func (t *Table) SampleSize() int { return t.n }

// LowConfidence reports whether the estimate is flagged as unreliable.
func (t *Table) LowConfidence() bool { return t.lowConfidence }

// WithLabel returns a copy of the table under a new label.
func (t *Table) WithLabel(label string) *Table {
	c := *t
	c.label = label
	return &c
}

type tableJSON struct {
	Label         string    `json:"label,omitempty"`
	N             int       `json:"n,omitempty"`
	LowConfidence bool      `json:"low_confidence,omitempty"`
	Levels        []float64 `json:"levels"`
	Values        []float64 `json:"values"`
}

// MarshalJSON encodes the table as parallel level/value arrays.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{
		Label:         t.label,
		N:             t.n,
		LowConfidence: t.lowConfidence,
		Levels:        t.grid,
		Values:        t.values,
	})
}

// UnmarshalJSON decodes and validates a table.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewTable(raw.Label, raw.Levels, raw.Values, WithSampleSize(raw.N), WithLowConfidence(raw.LowConfidence))
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// Grids returns the grid shared by all tables, or SHAPE_MISMATCH naming
// the first table that differs.
func Grids(tables []*Table) (Grid, error) {
	if len(tables) == 0 {
		return nil, errors.InvalidInput("no percentile tables supplied")
	}
	ref := tables[0].grid
	for i, t := range tables[1:] {
		if !t.grid.Equal(ref) {
			return nil, errors.ShapeMismatch(fmt.Sprintf("table %d (%q) has a different percentile grid than table 0 (%q)", i+1, t.label, tables[0].label))
		}
	}
	return ref.Clone(), nil
}
