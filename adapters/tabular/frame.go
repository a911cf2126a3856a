package tabular

import (
	"fmt"
	"slices"

	"gormi/domain/core"
	"gormi/internal/errors"
)

// Record is one trial: its composite key and RT.
type Record struct {
	Key core.GroupKey `json:"key"`
	RT  float64       `json:"rt"`
}

// Group is the RTs of every trial sharing one projected key, in row order.
type Group struct {
	Key core.GroupKey `json:"key"`
	RTs []float64     `json:"rts"`
}

// Frame is an immutable, row-ordered set of trials.
type Frame struct {
	records []Record
}

// NewFrame copies records into a frame.
func NewFrame(records []Record) *Frame {
	out := make([]Record, len(records))
	copy(out, records)
	return &Frame{records: out}
}

// Len returns the number of trials.
func (f *Frame) Len() int { return len(f.records) }

// Records returns a copy of the trials.
func (f *Frame) Records() []Record {
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

// Where keeps the trials whose key matches sel; empty parts of sel match anything.
func (f *Frame) Where(sel core.GroupKey) *Frame {
	out := make([]Record, 0, len(f.records))
	for _, r := range f.records {
		if r.Key.Matches(sel) {
			out = append(out, r)
		}
	}
	return &Frame{records: out}
}

// Subjects returns the distinct subjects in order of first appearance.
func (f *Frame) Subjects() []string { return f.distinct(core.LevelSubject) }

// Conditions returns the distinct conditions in order of first appearance.
func (f *Frame) Conditions() []string { return f.distinct(core.LevelCondition) }

// Channels returns the distinct channels in order of first appearance.
func (f *Frame) Channels() []string { return f.distinct(core.LevelChannel) }

func (f *Frame) distinct(level core.Level) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.records {
		v := r.Key.Get(level)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// GroupBy groups trials by any combination of key levels. Groups appear in
// order of first appearance; no levels puts every trial in one group.
func (f *Frame) GroupBy(levels ...core.Level) []Group {
	index := make(map[core.GroupKey]int)
	var groups []Group
	for _, r := range f.records {
		k := r.Key.Project(levels...)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].RTs = append(groups[i].RTs, r.RT)
	}
	return groups
}

// Sample returns the RTs of one subject and channel in row order. Trials
// from different conditions are never pooled: narrow the frame with Where
// first, or Sample fails with INVALID_INPUT.
func (f *Frame) Sample(subject, channel string) ([]float64, error) {
	var (
		out        []float64
		conditions []string
	)
	for _, r := range f.records {
		if r.Key.Subject != subject || r.Key.Channel != channel {
			continue
		}
		if !slices.Contains(conditions, r.Key.Condition) {
			conditions = append(conditions, r.Key.Condition)
		}
		out = append(out, r.RT)
	}
	if len(out) == 0 {
		return nil, errors.EmptySample(fmt.Sprintf("no trials for subject %q, channel %q", subject, channel))
	}
	if len(conditions) > 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("subject %q, channel %q has trials in conditions %v; select one condition",
			subject, channel, conditions))
	}
	return out, nil
}

// Samples returns one channel's RTs for each subject, index-aligned with
// subjects. A subject without trials is a SHAPE_MISMATCH since pairing
// across groups would no longer line up.
func (f *Frame) Samples(channel string, subjects []string) ([][]float64, error) {
	out := make([][]float64, len(subjects))
	for i, s := range subjects {
		rts, err := f.Sample(s, channel)
		if errors.GetCode(err) == errors.CodeEmptySample {
			return nil, errors.ShapeMismatch(fmt.Sprintf("subject %q has no %q trials", s, channel))
		}
		if err != nil {
			return nil, err
		}
		out[i] = rts
	}
	return out, nil
}
