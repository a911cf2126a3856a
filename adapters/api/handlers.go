package api

import (
	"fmt"
	"net/http"
	"sort"

	"gormi/adapters/report"
	"gormi/domain/percentile"
	"gormi/internal/aggregate"
	"gormi/internal/analysis"
	"gormi/internal/compare"
	"gormi/internal/errors"
	"gormi/internal/estimator"
	"gormi/internal/racemodel"
)

// EstimatorOptions overrides the server's estimator defaults per request.
type EstimatorOptions struct {
	Grid       []float64 `json:"grid,omitempty"`
	Method     string    `json:"method,omitempty"`
	Boundary   string    `json:"boundary,omitempty"`
	MinSamples int       `json:"min_samples,omitempty"`
}

func (s *Server) estimatorConfig(o EstimatorOptions) (estimator.Config, error) {
	cfg := s.cfg.Analysis.Estimator
	cfg.Grid = cfg.Grid.Clone()
	if len(o.Grid) > 0 {
		cfg.Grid = percentile.Grid(o.Grid)
	}
	if o.Method != "" {
		cfg.Method = estimator.Method(o.Method)
	}
	if o.Boundary != "" {
		cfg.Boundary = estimator.Boundary(o.Boundary)
	}
	if o.MinSamples > 0 {
		cfg.MinSamples = o.MinSamples
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return cfg, nil
}

type percentilesRequest struct {
	Label string    `json:"label"`
	RTs   []float64 `json:"rts"`
	EstimatorOptions
}

type percentilesResponse struct {
	Table   *percentile.Table `json:"table"`
	Summary estimator.Summary `json:"summary"`
}

func (s *Server) handlePercentiles(w http.ResponseWriter, r *http.Request) {
	var req percentilesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	cfg, err := s.estimatorConfig(req.EstimatorOptions)
	if err != nil {
		writeError(w, err)
		return
	}
	table, err := estimator.Estimate(req.Label, req.RTs, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := estimator.Summarize(req.RTs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, percentilesResponse{Table: table, Summary: summary})
}

// raceRequest takes each channel either as a table or as raw RTs.
type raceRequest struct {
	A            *percentile.Table `json:"a,omitempty"`
	B            *percentile.Table `json:"b,omitempty"`
	Redundant    *percentile.Table `json:"redundant,omitempty"`
	RTsA         []float64         `json:"rts_a,omitempty"`
	RTsB         []float64         `json:"rts_b,omitempty"`
	RTsRedundant []float64         `json:"rts_redundant,omitempty"`
	EstimatorOptions
}

type raceResponse struct {
	Bound      *percentile.Table     `json:"bound"`
	Redundant  *percentile.Table     `json:"redundant,omitempty"`
	Violations []racemodel.Violation `json:"violations,omitempty"`
	Degenerate bool                  `json:"degenerate,omitempty"`
}

func (s *Server) handleRace(w http.ResponseWriter, r *http.Request) {
	var req raceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	cfg, err := s.estimatorConfig(req.EstimatorOptions)
	if err != nil {
		writeError(w, err)
		return
	}

	channel := func(name string, tbl *percentile.Table, rts []float64, required bool) (*percentile.Table, error) {
		switch {
		case tbl != nil && rts != nil:
			return nil, errors.InvalidInput(fmt.Sprintf("channel %s: send a table or raw RTs, not both", name))
		case tbl != nil:
			return tbl, nil
		case rts != nil:
			return estimator.Estimate(name, rts, cfg)
		case required:
			return nil, errors.InvalidInput(fmt.Sprintf("channel %s is missing", name))
		}
		return nil, nil
	}

	a, err := channel("A", req.A, req.RTsA, true)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := channel("B", req.B, req.RTsB, true)
	if err != nil {
		writeError(w, err)
		return
	}
	redundant, err := channel("AB", req.Redundant, req.RTsRedundant, false)
	if err != nil {
		writeError(w, err)
		return
	}

	grid := cfg.Grid
	if len(req.Grid) == 0 && redundant != nil {
		grid = redundant.Grid()
	}
	var pred *racemodel.Prediction
	if req.RTsA != nil && req.RTsB != nil {
		pred, err = racemodel.PredictSamples(a, b, req.RTsA, req.RTsB, grid)
	} else {
		pred, err = racemodel.Predict(a, b, grid)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	resp := raceResponse{Bound: pred.Table(), Degenerate: pred.Degenerate()}
	if redundant != nil {
		if resp.Violations, err = racemodel.Violations(redundant, pred); err != nil {
			writeError(w, err)
			return
		}
		resp.Redundant = redundant
	}
	writeJSON(w, http.StatusOK, resp)
}

type aggregateRequest struct {
	Tables []*percentile.Table `json:"tables"`
	Mode   string              `json:"mode,omitempty"`
	Label  string              `json:"label,omitempty"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	opts := s.cfg.Analysis.Aggregate
	if req.Mode != "" {
		opts.Mode = aggregate.Mode(req.Mode)
	}
	opts.Label = req.Label
	table, err := aggregate.Combine(req.Tables, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type compareRequest struct {
	X            []*percentile.Table `json:"x"`
	Y            []*percentile.Table `json:"y"`
	Tests        []compare.Test      `json:"tests,omitempty"`
	Alternative  string              `json:"alternative,omitempty"`
	IgnoreLabels bool                `json:"ignore_labels,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	cfg := compare.DefaultConfig()
	if len(req.Tests) > 0 {
		cfg.Tests = req.Tests
	}
	if req.Alternative != "" {
		cfg.Alternative = compare.Alternative(req.Alternative)
	}
	cfg.IgnoreLabels = req.IgnoreLabels
	res, err := compare.Compare(req.X, req.Y, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// analyzeRequest carries raw RTs as subject -> channel -> RTs.
type analyzeRequest struct {
	Condition string                          `json:"condition,omitempty"`
	Subjects  map[string]map[string][]float64 `json:"subjects"`
}

// mapSource serves in-memory RTs to the analyzer.
type mapSource map[string]map[string][]float64

func (m mapSource) Subjects() []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (m mapSource) Sample(subject, channel string) ([]float64, error) {
	rts, ok := m[subject][channel]
	if !ok || len(rts) == 0 {
		return nil, errors.EmptySample(fmt.Sprintf("no RTs for subject %q channel %q", subject, channel))
	}
	return rts, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	cfg := s.cfg.Analysis
	cfg.Condition = req.Condition
	analyzer, err := analysis.NewAnalyzer(cfg, mapSource(req.Subjects))
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := analyzer.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, rep)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(report.Markdown(rep)))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(report.HTML(rep))
	default:
		writeError(w, errors.InvalidInput(fmt.Sprintf("unknown report format %q", format)))
	}
}
