package compare

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// cdfSurvival is the part of a gonum distribution the p-value helpers need.
type cdfSurvival interface {
	CDF(x float64) float64
	Survival(x float64) float64
}

// tailPValue returns the p-value of statistic under dist for the alternative.
// Less puts the rejection region in the lower tail, greater in the upper.
func tailPValue(dist cdfSurvival, statistic float64, alt Alternative) float64 {
	var p float64
	switch alt {
	case AlternativeLess:
		p = dist.CDF(statistic)
	case AlternativeGreater:
		p = dist.Survival(statistic)
	default:
		p = 2 * dist.Survival(math.Abs(statistic))
	}
	return math.Min(1, p)
}

// studentsTPValue computes the p-value for a t statistic with df degrees of freedom.
func studentsTPValue(t float64, df int, alt Alternative) float64 {
	if df <= 0 {
		return 1.0
	}
	return tailPValue(distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}, t, alt)
}

// normalPValue computes the p-value for a standard normal z score.
func normalPValue(z float64, alt Alternative) float64 {
	return tailPValue(distuv.UnitNormal, z, alt)
}
