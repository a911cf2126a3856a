package compare

import (
	"fmt"
	"strings"

	"gormi/domain/percentile"
	"gormi/internal/errors"
)

// Test names one level-wise paired test.
type Test string

const (
	TestTTest    Test = "ttest"
	TestWilcoxon Test = "wilcoxon"
)

// Alternative is the direction of the alternative hypothesis for x − y.
type Alternative string

const (
	AlternativeTwoSided Alternative = "two-sided"
	// AlternativeLess tests x < y. With x the redundant tables and y the
	// race bounds this is the direction of a race model violation.
	AlternativeLess    Alternative = "less"
	AlternativeGreater Alternative = "greater"
)

// Config selects the tests and the alternative hypothesis.
type Config struct {
	Tests       []Test      `json:"tests" yaml:"tests"`
	Alternative Alternative `json:"alternative" yaml:"alternative"`
	// IgnoreLabels skips the check that paired tables carry the same label.
	IgnoreLabels bool `json:"ignore_labels" yaml:"ignore_labels"`
}

// DefaultConfig runs both tests two-sided.
func DefaultConfig() Config {
	return Config{
		Tests:       []Test{TestTTest, TestWilcoxon},
		Alternative: AlternativeTwoSided,
	}
}

// Validate checks test names and the alternative.
func (c Config) Validate() error {
	switch c.Alternative {
	case AlternativeTwoSided, AlternativeLess, AlternativeGreater:
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown alternative %q (want two-sided, less or greater)", c.Alternative))
	}
	if len(c.Tests) == 0 {
		return errors.InvalidInput("no statistical test selected")
	}
	for _, t := range c.Tests {
		if t != TestTTest && t != TestWilcoxon {
			return errors.InvalidInput(fmt.Sprintf("unknown test %q (want ttest or wilcoxon)", t))
		}
	}
	return nil
}

func (c Config) runs(t Test) bool {
	for _, want := range c.Tests {
		if want == t {
			return true
		}
	}
	return false
}

// ParseTests parses a comma separated list such as "ttest,wilcoxon".
func ParseTests(s string) []Test {
	var out []Test
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, Test(part))
		}
	}
	return out
}

// LevelResult holds the paired tests at one percentile level.
type LevelResult struct {
	Level          float64         `json:"level"`
	Pairs          int             `json:"pairs"`
	MeanDifference float64         `json:"mean_difference"`
	TTest          *TTestResult    `json:"ttest,omitempty"`
	Wilcoxon       *WilcoxonResult `json:"wilcoxon,omitempty"`
}

// Result is the level-by-level comparison of two groups of tables.
type Result struct {
	Levels      percentile.Grid `json:"levels"`
	Alternative Alternative     `json:"alternative"`
	Results     []LevelResult   `json:"results"`
}

// Significant returns the levels at which any selected test has p < alpha.
func (r *Result) Significant(alpha float64) []float64 {
	var out []float64
	for _, lr := range r.Results {
		if (lr.TTest != nil && lr.TTest.PValue < alpha) || (lr.Wilcoxon != nil && lr.Wilcoxon.PValue < alpha) {
			out = append(out, lr.Level)
		}
	}
	return out
}

// Compare tests x against y level by level. x[i] and y[i] are the same
// subject under two conditions, so both groups must be equally long,
// share one grid, and carry matching labels where both sides have one.
func Compare(x, y []*percentile.Table, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, errors.ShapeMismatch(fmt.Sprintf("compare: groups differ in size (%d vs %d)", len(x), len(y)))
	}
	if len(x) < 2 {
		return nil, errors.InsufficientSamples(fmt.Sprintf("compare: need at least 2 paired subjects, got %d", len(x)))
	}
	for i := range x {
		if x[i] == nil || y[i] == nil {
			return nil, errors.InvalidInput(fmt.Sprintf("compare: table for pair %d is nil", i))
		}
		if !cfg.IgnoreLabels && x[i].Label() != "" && y[i].Label() != "" && x[i].Label() != y[i].Label() {
			return nil, errors.ShapeMismatch(fmt.Sprintf("compare: pair %d is not aligned (%q vs %q)", i, x[i].Label(), y[i].Label()))
		}
	}
	all := make([]*percentile.Table, 0, 2*len(x))
	all = append(append(all, x...), y...)
	grid, err := percentile.Grids(all)
	if err != nil {
		return nil, errors.Wrap(err, "compare")
	}

	res := &Result{Levels: grid, Alternative: cfg.Alternative, Results: make([]LevelResult, len(grid))}
	xs := make([]float64, len(x))
	ys := make([]float64, len(y))
	for level, p := range grid {
		sum := 0.0
		for i := range x {
			_, xs[i] = x[i].At(level)
			_, ys[i] = y[i].At(level)
			sum += xs[i] - ys[i]
		}
		lr := LevelResult{Level: p, Pairs: len(x), MeanDifference: sum / float64(len(x))}

		if cfg.runs(TestTTest) {
			t, err := PairedTTest(xs, ys, cfg.Alternative)
			if err != nil {
				return nil, errors.Wrapf(err, "t-test at level %v", p)
			}
			lr.TTest = &t
		}
		if cfg.runs(TestWilcoxon) {
			w, err := WilcoxonSignedRank(xs, ys, cfg.Alternative)
			if err != nil {
				return nil, errors.Wrapf(err, "wilcoxon at level %v", p)
			}
			lr.Wilcoxon = &w
		}
		res.Results[level] = lr
	}
	return res, nil
}
