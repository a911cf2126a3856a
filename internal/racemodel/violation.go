package racemodel

import (
	"gormi/domain/percentile"
	"gormi/internal/errors"
)

// Violation compares the redundant-signal RT with the race bound at one level.
// A negative Difference means the redundant trials were faster than any
// race of independent channels allows.
type Violation struct {
	Level      float64 `json:"level"`
	Redundant  float64 `json:"redundant"`
	Bound      float64 `json:"bound"`
	Difference float64 `json:"difference"`
	Violated   bool    `json:"violated"`
}

// Violations lines the redundant table up against the bound level by level.
func Violations(redundant *percentile.Table, p *Prediction) ([]Violation, error) {
	if redundant == nil || p == nil {
		return nil, errors.InvalidInput("violations need a redundant table and a prediction")
	}
	return ViolationsAgainst(redundant, p.Table())
}

// ViolationsAgainst is Violations for a bound already reduced to a table,
// such as a group mean of per-subject bounds.
func ViolationsAgainst(redundant, bound *percentile.Table) ([]Violation, error) {
	if redundant == nil || bound == nil {
		return nil, errors.InvalidInput("violations need a redundant table and a bound table")
	}
	if err := percentile.CheckSameGrid("race model violations", redundant.Grid(), bound.Grid()); err != nil {
		return nil, err
	}
	return compareLevels(redundant, bound), nil
}

func compareLevels(redundant, bound *percentile.Table) []Violation {
	out := make([]Violation, redundant.Len())
	for i := range out {
		level, r := redundant.At(i)
		_, b := bound.At(i)
		d := r - b
		out[i] = Violation{Level: level, Redundant: r, Bound: b, Difference: d, Violated: d < 0}
	}
	return out
}
