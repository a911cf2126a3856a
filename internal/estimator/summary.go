package estimator

import (
	"github.com/montanaflynn/stats"

	"gormi/internal/errors"
)

// Summary holds descriptive statistics of one RT sample.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Summarize computes descriptive statistics for a sample
func Summarize(sample []float64) (Summary, error) {
	summary := Summary{N: len(sample)}
	if len(sample) == 0 {
		return summary, errors.EmptySample("cannot summarize an empty RT sample")
	}

	data := stats.Float64Data(sample)

	mean, err := data.Mean()
	if err != nil {
		return summary, errors.Wrap(err, "mean")
	}

	// Sample (n-1) standard deviation; zero for a single observation
	stdDev := 0.0
	if len(sample) > 1 {
		stdDev, err = data.StandardDeviationSample()
		if err != nil {
			return summary, errors.Wrap(err, "standard deviation")
		}
	}

	min, err := data.Min()
	if err != nil {
		return summary, errors.Wrap(err, "min")
	}

	max, err := data.Max()
	if err != nil {
		return summary, errors.Wrap(err, "max")
	}

	median, err := data.Median()
	if err != nil {
		return summary, errors.Wrap(err, "median")
	}

	// Quartiles use the same order-statistic interpolation as Estimate;
	// stats.Percentile rejects low percentiles of very small samples.
	sorted, err := sortedSample("", sample)
	if err != nil {
		return summary, err
	}
	quartiles := linearQuantiles(sorted, []float64{0.25, 0.75})
	q25, q75 := quartiles[0], quartiles[1]

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75

	return summary, nil
}
