package core

import (
	"strings"
)

// Level names one identifier column of a trial row.
type Level string

const (
	LevelSubject   Level = "subject"
	LevelCondition Level = "condition"
	LevelChannel   Level = "channel"
)

// AllLevels is the full composite key in its canonical order.
var AllLevels = []Level{LevelSubject, LevelCondition, LevelChannel}

// GroupKey is the composite subject × condition × channel key of a trial.
// A key produced by grouping on a subset of levels leaves the other parts empty.
type GroupKey struct {
	Subject   string `json:"subject,omitempty"`
	Condition string `json:"condition,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// Get returns the part of the key for one level.
func (k GroupKey) Get(level Level) string {
	switch level {
	case LevelSubject:
		return k.Subject
	case LevelCondition:
		return k.Condition
	case LevelChannel:
		return k.Channel
	}
	return ""
}

// Project keeps only the given levels and blanks the rest.
func (k GroupKey) Project(levels ...Level) GroupKey {
	var out GroupKey
	for _, level := range levels {
		switch level {
		case LevelSubject:
			out.Subject = k.Subject
		case LevelCondition:
			out.Condition = k.Condition
		case LevelChannel:
			out.Channel = k.Channel
		}
	}
	return out
}

// Matches reports whether every non-empty part of sel equals the same part of k.
func (k GroupKey) Matches(sel GroupKey) bool {
	if sel.Subject != "" && sel.Subject != k.Subject {
		return false
	}
	if sel.Condition != "" && sel.Condition != k.Condition {
		return false
	}
	if sel.Channel != "" && sel.Channel != k.Channel {
		return false
	}
	return true
}

// String joins the non-empty parts with an underscore, e.g. "s01_loud_AB".
func (k GroupKey) String() string {
	return k.Join("_")
}

// Join joins the non-empty parts with sep.
func (k GroupKey) Join(sep string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{k.Subject, k.Condition, k.Channel} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, sep)
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelSubject:
		return LevelSubject, true
	case LevelCondition:
		return LevelCondition, true
	case LevelChannel:
		return LevelChannel, true
	}
	return "", false
}
