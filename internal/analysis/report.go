package analysis

import (
	"time"

	"gormi/domain/core"
	"gormi/domain/percentile"
	"gormi/internal/compare"
	"gormi/internal/estimator"
	"gormi/internal/racemodel"
)

// SubjectResult holds one subject's tables, bound and violations.
type SubjectResult struct {
	Subject    string                       `json:"subject"`
	ChannelA   *percentile.Table            `json:"channel_a"`
	ChannelB   *percentile.Table            `json:"channel_b"`
	Redundant  *percentile.Table            `json:"redundant"`
	Bound      *percentile.Table            `json:"bound"`
	Summaries  map[string]estimator.Summary `json:"summaries"`
	Violations []racemodel.Violation        `json:"violations"`
	// LowConfidence is set when any of the three channel tables is.
	LowConfidence bool `json:"low_confidence"`
	// Degenerate is set when a single-channel table has one distinct RT.
	Degenerate bool `json:"degenerate,omitempty"`
}

// GroupResult is the aggregate over subjects.
type GroupResult struct {
	Redundant  *percentile.Table     `json:"redundant"`
	Bound      *percentile.Table     `json:"bound"`
	Violations []racemodel.Violation `json:"violations"`
}

// Report is the outcome of one analysis run.
type Report struct {
	ID         core.RunID      `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Condition  string          `json:"condition,omitempty"`
	Design     Design          `json:"design"`
	Grid       percentile.Grid `json:"grid"`
	Subjects   []SubjectResult `json:"subjects"`
	Group      GroupResult     `json:"group"`
	Comparison *compare.Result `json:"comparison,omitempty"`
}

// LowConfidenceCount returns how many subjects had low-confidence tables.
func (r *Report) LowConfidenceCount() int {
	n := 0
	for _, s := range r.Subjects {
		if s.LowConfidence {
			n++
		}
	}
	return n
}

// ViolatedLevels returns the levels where the group redundant CDF is faster
// than the bound and the comparison is significant at alpha.
func (r *Report) ViolatedLevels(alpha float64) []float64 {
	if r.Comparison == nil {
		return nil
	}
	significant := make(map[int]bool)
	for _, p := range r.Comparison.Significant(alpha) {
		significant[r.Grid.IndexOf(p)] = true
	}
	var out []float64
	for i, v := range r.Group.Violations {
		if v.Violated && significant[i] {
			out = append(out, v.Level)
		}
	}
	return out
}
