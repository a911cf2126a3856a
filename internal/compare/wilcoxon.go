package compare

import (
	"fmt"
	"math"
	"sort"

	"gormi/internal/errors"
)

// exactLimit is the largest number of non-zero pairs for which the exact
// null distribution of W+ is enumerated.
const exactLimit = 25

// WilcoxonResult is a Wilcoxon signed-rank test on x−y.
type WilcoxonResult struct {
	// Statistic is min(W+, W−) for two-sided tests and W+ otherwise.
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	// N counts the non-zero differences that were ranked.
	N     int  `json:"n"`
	Exact bool `json:"exact"`
}

// WilcoxonSignedRank runs the signed-rank test on paired samples. Zero
// differences are dropped and tied magnitudes share their average rank.
// Without ties and with at most 25 ranked pairs the p-value is exact,
// otherwise it comes from the tie-corrected normal approximation.
func WilcoxonSignedRank(x, y []float64, alt Alternative) (WilcoxonResult, error) {
	d, err := differences(x, y)
	if err != nil {
		return WilcoxonResult{}, err
	}

	nonzero := make([]float64, 0, len(d))
	for _, v := range d {
		if v != 0 {
			nonzero = append(nonzero, v)
		}
	}
	n := len(nonzero)
	if n == 0 {
		return WilcoxonResult{PValue: 1}, nil
	}

	ranks, tieTerm := signedRanks(nonzero)
	wPlus, wMinus := 0.0, 0.0
	for i, v := range nonzero {
		if v > 0 {
			wPlus += ranks[i]
		} else {
			wMinus += ranks[i]
		}
	}

	res := WilcoxonResult{N: n, Statistic: wPlus}
	if alt == AlternativeTwoSided {
		res.Statistic = math.Min(wPlus, wMinus)
	}

	if tieTerm == 0 && n <= exactLimit {
		res.Exact = true
		res.PValue = exactPValue(n, wPlus, alt)
		return res, nil
	}

	nf := float64(n)
	mean := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - tieTerm/48
	if variance <= 0 {
		return res, errors.TestNotComputable(fmt.Sprintf("wilcoxon: zero variance with %d tied differences", n))
	}
	z := (wPlus - mean) / math.Sqrt(variance)
	res.PValue = normalPValue(z, alt)
	if math.IsNaN(res.PValue) {
		return res, errors.TestNotComputable("wilcoxon produced NaN")
	}
	return res, nil
}

// signedRanks ranks |d| ascending with average ranks for ties. It also
// returns sum(t³−t) over tie groups for the variance correction.
func signedRanks(d []float64) ([]float64, float64) {
	idx := make([]int, len(d))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return math.Abs(d[idx[a]]) < math.Abs(d[idx[b]]) })

	ranks := make([]float64, len(d))
	tieTerm := 0.0
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && math.Abs(d[idx[j]]) == math.Abs(d[idx[i]]) {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		if t := float64(j - i); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j
	}
	return ranks, tieTerm
}

// exactPValue enumerates the null distribution of W+ for n untied ranks:
// each of the 2^n sign assignments is equally likely.
func exactPValue(n int, wPlus float64, alt Alternative) float64 {
	maxSum := n * (n + 1) / 2
	counts := make([]float64, maxSum+1)
	counts[0] = 1
	for r := 1; r <= n; r++ {
		for s := maxSum; s >= r; s-- {
			counts[s] += counts[s-r]
		}
	}
	total := math.Ldexp(1, n)

	w := int(math.Round(wPlus))
	atMost := func(k int) float64 {
		sum := 0.0
		for s := 0; s <= k && s <= maxSum; s++ {
			sum += counts[s]
		}
		return sum / total
	}

	var p float64
	switch alt {
	case AlternativeLess:
		p = atMost(w)
	case AlternativeGreater:
		p = 1 - atMost(w-1)
	default:
		// the distribution is symmetric, so the lower tail of min(W+, W−) doubles
		p = 2 * atMost(min(w, maxSum-w))
	}
	return math.Min(1, p)
}
