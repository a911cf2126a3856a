package compare

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"gormi/internal/errors"
)

// TTestResult is a paired t-test on x−y.
type TTestResult struct {
	Statistic float64 `json:"statistic"`
	DF        int     `json:"df"`
	PValue    float64 `json:"p_value"`
}

// PairedTTest tests whether the mean of x−y differs from zero.
// Identical samples give t = 0 and p = 1. Differences that are constant
// but non-zero have no variance and are reported as TEST_NOT_COMPUTABLE.
func PairedTTest(x, y []float64, alt Alternative) (TTestResult, error) {
	d, err := differences(x, y)
	if err != nil {
		return TTestResult{}, err
	}
	n := len(d)
	res := TTestResult{DF: n - 1}

	mean, sd := stat.MeanStdDev(d, nil)
	if sd == 0 {
		if mean == 0 {
			res.PValue = 1
			return res, nil
		}
		return res, errors.TestNotComputable(fmt.Sprintf("paired t-test: all %d differences equal %v, variance is zero", n, mean))
	}

	res.Statistic = mean / (sd / math.Sqrt(float64(n)))
	res.PValue = studentsTPValue(res.Statistic, res.DF, alt)
	if math.IsNaN(res.Statistic) || math.IsNaN(res.PValue) {
		return res, errors.TestNotComputable("paired t-test produced NaN")
	}
	return res, nil
}

// differences returns x[i]−y[i], requiring equal lengths and at least two pairs.
func differences(x, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, errors.ShapeMismatch(fmt.Sprintf("paired samples differ in length: %d vs %d", len(x), len(y)))
	}
	if len(x) < 2 {
		return nil, errors.InsufficientSamples(fmt.Sprintf("paired test needs at least 2 pairs, got %d", len(x)))
	}
	d := make([]float64, len(x))
	for i := range x {
		d[i] = x[i] - y[i]
		if math.IsNaN(d[i]) || math.IsInf(d[i], 0) {
			return nil, errors.InvalidInput(fmt.Sprintf("pair %d is not finite (%v, %v)", i, x[i], y[i]))
		}
	}
	return d, nil
}
