package estimator

// Step is one point of an empirical step function: the share of the
// sample at or below RT.
type Step struct {
	Level float64 `json:"level"`
	RT    float64 `json:"rt"`
}

// StepFunction returns the unique RTs of a sample, ascending, each indexed
// by its max-rank plotting position (ties take the highest rank).
func StepFunction(sample []float64) ([]Step, error) {
	sorted, err := sortedSample("", sample)
	if err != nil {
		return nil, err
	}
	return stepsFromSorted(sorted), nil
}

func stepsFromSorted(sorted []float64) []Step {
	n := float64(len(sorted))
	steps := make([]Step, 0, len(sorted))
	for i, v := range sorted {
		if i+1 < len(sorted) && sorted[i+1] == v {
			continue
		}
		steps = append(steps, Step{Level: float64(i+1) / n, RT: v})
	}
	return steps
}
