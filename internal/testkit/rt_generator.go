package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"gormi/adapters/tabular"
	"gormi/domain/core"
)

// RTConfig configures a synthetic redundant-signals experiment. Single-signal
// RTs are ex-Gaussian (normal plus exponential tail), the usual shape of
// simple RT distributions.
type RTConfig struct {
	Subjects int    `json:"subjects"`
	Trials   int    `json:"trials"` // per subject and channel
	Seed     uint64 `json:"seed"`

	MuA   float64 `json:"mu_a"`
	MuB   float64 `json:"mu_b"`
	Sigma float64 `json:"sigma"`
	Tau   float64 `json:"tau"`

	// SubjectSpread is the SD of a per-subject shift applied to all channels
	SubjectSpread float64 `json:"subject_spread"`

	// Coactivation makes redundant trials this many ms faster than the
	// winner of an independent race. Zero generates a pure race.
	Coactivation float64 `json:"coactivation"`

	Condition string `json:"condition"`
}

// DefaultRTConfig returns a pure race with 12 subjects and 100 trials per channel.
func DefaultRTConfig() RTConfig {
	return RTConfig{
		Subjects:      12,
		Trials:        100,
		Seed:          42,
		MuA:           320,
		MuB:           340,
		Sigma:         35,
		Tau:           70,
		SubjectSpread: 25,
		Condition:     "audiovisual",
	}
}

// Channel names written by the generator.
const (
	ChannelA         = "A"
	ChannelB         = "B"
	ChannelRedundant = "AB"
)

// RTDataset holds generated trials as table rows and as a frame.
type RTDataset struct {
	Headers  []string
	Rows     [][]string
	Subjects []string
	Records  []tabular.Record
}

// GenerateRT draws a synthetic data set. Trials are interleaved per
// subject in A, B, AB order.
func GenerateRT(cfg RTConfig) (*RTDataset, error) {
	if cfg.Subjects <= 0 {
		return nil, fmt.Errorf("subjects must be > 0")
	}
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("trials must be > 0")
	}
	if cfg.Sigma <= 0 || cfg.Tau <= 0 {
		return nil, fmt.Errorf("sigma and tau must be > 0")
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	shift := distuv.Normal{Mu: 0, Sigma: math.Max(cfg.SubjectSpread, 1e-9), Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Sigma, Src: src}
	tail := distuv.Exponential{Rate: 1 / cfg.Tau, Src: src}

	exGauss := func(mu float64) float64 {
		return mu + noise.Rand() + tail.Rand()
	}

	ds := &RTDataset{Headers: []string{"subject", "condition", "channel", "rt"}}
	for s := 0; s < cfg.Subjects; s++ {
		subject := fmt.Sprintf("s%02d", s+1)
		ds.Subjects = append(ds.Subjects, subject)
		offset := shift.Rand()

		for i := 0; i < cfg.Trials; i++ {
			a := exGauss(cfg.MuA + offset)
			b := exGauss(cfg.MuB + offset)
			// redundant trials race fresh draws from both channels
			ab := math.Min(exGauss(cfg.MuA+offset), exGauss(cfg.MuB+offset)) - cfg.Coactivation

			for _, trial := range []struct {
				channel string
				rt      float64
			}{{ChannelA, a}, {ChannelB, b}, {ChannelRedundant, ab}} {
				rt := math.Max(1, math.Round(trial.rt))
				ds.Records = append(ds.Records, tabular.Record{
					Key: core.GroupKey{Subject: subject, Condition: cfg.Condition, Channel: trial.channel},
					RT:  rt,
				})
				ds.Rows = append(ds.Rows, []string{subject, cfg.Condition, trial.channel, strconv.FormatFloat(rt, 'f', 0, 64)})
			}
		}
	}
	return ds, nil
}

// Frame returns the trials as a tabular frame.
func (ds *RTDataset) Frame() *tabular.Frame {
	return tabular.NewFrame(ds.Records)
}

// WriteCSV writes the data set with a header row.
func (ds *RTDataset) WriteCSV(path string) error {
	return tabular.WriteRowsCSV(path, ds.table())
}

// WriteXLSX writes the data set to a single "trials" sheet.
func (ds *RTDataset) WriteXLSX(path string) error {
	return tabular.WriteRowsXLSX(path, "trials", ds.table())
}

func (ds *RTDataset) table() [][]string {
	rows := make([][]string, 0, len(ds.Rows)+1)
	rows = append(rows, ds.Headers)
	return append(rows, ds.Rows...)
}
