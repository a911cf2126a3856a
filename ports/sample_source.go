package ports

// SampleSource supplies raw RT samples to the analysis pipeline. The
// subject order it reports is the pairing order used by the comparison,
// so implementations must keep it stable.
type SampleSource interface {
	// Subjects lists the subjects in their declared order
	Subjects() []string

	// Sample returns the RTs of one subject in one channel (e.g. "A", "B", "AB")
	Sample(subject, channel string) ([]float64, error)
}

// ConditionSource is a SampleSource that knows the conditions its trials
// were recorded under.
type ConditionSource interface {
	SampleSource

	// Conditions lists the distinct conditions in the source
	Conditions() []string
}
