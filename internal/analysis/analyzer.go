package analysis

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"gormi/domain/core"
	"gormi/domain/percentile"
	"gormi/internal/aggregate"
	"gormi/internal/compare"
	"gormi/internal/errors"
	"gormi/internal/estimator"
	"gormi/internal/racemodel"
	"gormi/ports"
)

// Design names the channels of a redundant-signals experiment.
type Design struct {
	ChannelA  string `json:"channel_a" yaml:"channel_a"`
	ChannelB  string `json:"channel_b" yaml:"channel_b"`
	Redundant string `json:"redundant" yaml:"redundant"`
}

// Config drives a full race model analysis.
type Config struct {
	Estimator estimator.Config  `json:"estimator" yaml:"estimator"`
	Aggregate aggregate.Options `json:"aggregate" yaml:"aggregate"`
	Compare   compare.Config    `json:"compare" yaml:"compare"`
	Design    Design            `json:"design" yaml:"design"`
	// Condition labels the report. A source that reports its conditions
	// must hold exactly this one; an empty Condition takes the source's.
	Condition   string `json:"condition" yaml:"condition"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig tests the redundant CDF for being faster than the bound.
func DefaultConfig() Config {
	cmp := compare.DefaultConfig()
	cmp.Alternative = compare.AlternativeLess
	return Config{
		Estimator:   estimator.DefaultConfig(),
		Aggregate:   aggregate.DefaultOptions(),
		Compare:     cmp,
		Design:      Design{ChannelA: "A", ChannelB: "B", Redundant: "AB"},
		Concurrency: 4,
	}
}

// Validate checks every nested configuration.
func (c Config) Validate() error {
	if err := c.Estimator.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := aggregate.ParseMode(string(c.Aggregate.Mode)); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := c.Compare.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	d := c.Design
	if d.ChannelA == "" || d.ChannelB == "" || d.Redundant == "" {
		return errors.ConfigInvalid("design needs channel A, channel B and redundant channel names")
	}
	if d.ChannelA == d.ChannelB || d.ChannelA == d.Redundant || d.ChannelB == d.Redundant {
		return errors.ConfigInvalid(fmt.Sprintf("design channels must differ: %+v", d))
	}
	if c.Concurrency < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	return nil
}

// Analyzer runs the race model test over every subject of a source.
type Analyzer struct {
	cfg    Config
	source ports.SampleSource
}

// NewAnalyzer validates cfg and binds it to a sample source.
func NewAnalyzer(cfg Config, source ports.SampleSource) (*Analyzer, error) {
	if source == nil {
		return nil, errors.InvalidInput("analyzer needs a sample source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, source: source}, nil
}

// Run estimates per-subject tables in parallel, then aggregates the
// redundant and bound tables and compares them level by level.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	subjects := a.source.Subjects()
	if len(subjects) == 0 {
		return nil, errors.InvalidInput("sample source has no subjects")
	}
	condition, err := a.condition()
	if err != nil {
		return nil, err
	}
	log.Printf("[Analyzer] Starting race model analysis for %d subjects (concurrency %d)", len(subjects), a.cfg.Concurrency)

	results := make([]SubjectResult, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, subject := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := a.analyzeSubject(subject)
			if err != nil {
				return errors.Wrapf(err, "subject %q", subject)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		ID:        core.NewRunID(),
		CreatedAt: time.Now().UTC(),
		Condition: condition,
		Design:    a.cfg.Design,
		Grid:      a.cfg.Estimator.Grid.Clone(),
		Subjects:  results,
	}

	group, err := a.aggregateGroup(results)
	if err != nil {
		return nil, err
	}
	report.Group = *group

	if len(results) < 2 {
		log.Printf("[Analyzer] Skipping level-wise comparison: %d subject(s), at least 2 are needed", len(results))
	} else {
		redundant := make([]*percentile.Table, len(results))
		bounds := make([]*percentile.Table, len(results))
		for i, r := range results {
			redundant[i], bounds[i] = r.Redundant, r.Bound
		}
		cmp, err := compare.Compare(redundant, bounds, a.cfg.Compare)
		if err != nil {
			return nil, errors.Wrap(err, "compare redundant tables with race bounds")
		}
		report.Comparison = cmp
	}

	log.Printf("[Analyzer] Analysis %s completed in %v (%d subjects, %d low-confidence)",
		report.ID, time.Since(start), len(results), report.LowConfidenceCount())
	return report, nil
}

// condition checks that the source holds a single condition and returns
// the label for the report.
func (a *Analyzer) condition() (string, error) {
	cs, ok := a.source.(ports.ConditionSource)
	if !ok {
		return a.cfg.Condition, nil
	}
	conditions := cs.Conditions()
	switch {
	case len(conditions) > 1:
		return "", errors.InvalidInput(fmt.Sprintf("sample source mixes conditions %v; analyze one condition at a time", conditions))
	case len(conditions) == 0:
		return a.cfg.Condition, nil
	case a.cfg.Condition == "":
		return conditions[0], nil
	case a.cfg.Condition != conditions[0]:
		return "", errors.InvalidInput(fmt.Sprintf("sample source holds condition %q, not %q", conditions[0], a.cfg.Condition))
	}
	return a.cfg.Condition, nil
}

func (a *Analyzer) analyzeSubject(subject string) (*SubjectResult, error) {
	d := a.cfg.Design
	res := &SubjectResult{Subject: subject, Summaries: make(map[string]estimator.Summary, 3)}

	tables := make(map[string]*percentile.Table, 3)
	samples := make(map[string][]float64, 3)
	for _, channel := range []string{d.ChannelA, d.ChannelB, d.Redundant} {
		rts, err := a.source.Sample(subject, channel)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %s", channel)
		}
		tbl, err := estimator.Estimate(subject, rts, a.cfg.Estimator)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %s", channel)
		}
		summary, err := estimator.Summarize(rts)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %s", channel)
		}
		tables[channel] = tbl
		samples[channel] = rts
		res.Summaries[channel] = summary
	}
	res.ChannelA, res.ChannelB, res.Redundant = tables[d.ChannelA], tables[d.ChannelB], tables[d.Redundant]

	pred, err := racemodel.PredictSamples(res.ChannelA, res.ChannelB,
		samples[d.ChannelA], samples[d.ChannelB], a.cfg.Estimator.Grid)
	if err != nil {
		return nil, err
	}
	res.Bound = pred.Table()
	if res.Degenerate = pred.Degenerate(); res.Degenerate {
		log.Printf("[Analyzer] Subject %s: a single-channel table has no spread, the bound rests on boundary values", subject)
	}

	if res.Violations, err = racemodel.Violations(res.Redundant, pred); err != nil {
		return nil, err
	}
	res.LowConfidence = res.ChannelA.LowConfidence() || res.ChannelB.LowConfidence() || res.Redundant.LowConfidence()
	if res.LowConfidence {
		log.Printf("[Analyzer] Subject %s: low-confidence percentiles (n = %d/%d/%d)", subject,
			res.ChannelA.SampleSize(), res.ChannelB.SampleSize(), res.Redundant.SampleSize())
	}
	return res, nil
}

func (a *Analyzer) aggregateGroup(results []SubjectResult) (*GroupResult, error) {
	redundant := make([]*percentile.Table, len(results))
	bounds := make([]*percentile.Table, len(results))
	for i, r := range results {
		redundant[i], bounds[i] = r.Redundant, r.Bound
	}

	opts := a.cfg.Aggregate
	opts.Label = a.cfg.Design.Redundant
	groupRedundant, err := aggregate.Combine(redundant, opts)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate redundant tables")
	}
	opts.Label = "bound"
	groupBound, err := aggregate.Combine(bounds, opts)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate race bounds")
	}
	violations, err := racemodel.ViolationsAgainst(groupRedundant, groupBound)
	if err != nil {
		return nil, err
	}
	return &GroupResult{Redundant: groupRedundant, Bound: groupBound, Violations: violations}, nil
}
