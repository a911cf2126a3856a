package config

import (
	"os"
	"path/filepath"
	"testing"

	"gormi/domain/percentile"
	"gormi/internal/aggregate"
	"gormi/internal/compare"
	"gormi/internal/errors"
	"gormi/internal/estimator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gormi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Analysis.Estimator.Grid.Equal(percentile.DefaultGrid()))
	assert.Equal(t, estimator.MethodLinear, cfg.Analysis.Estimator.Method)
	assert.Equal(t, estimator.BoundaryClamp, cfg.Analysis.Estimator.Boundary)
	assert.Equal(t, aggregate.ModeMean, cfg.Analysis.Aggregate.Mode)
	assert.Equal(t, compare.AlternativeLess, cfg.Analysis.Compare.Alternative)
	assert.Equal(t, 4, cfg.Analysis.Concurrency)
	assert.Equal(t, "rt", cfg.Columns.RT)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
analysis:
  estimator:
    grid: [0.1, 0.3, 0.5, 0.7, 0.9]
    method: polygon
  compare:
    tests: [wilcoxon]
    alternative: two-sided
  design:
    channel_a: visual
    channel_b: auditory
    redundant: bimodal
  concurrency: 2
columns:
  rt: latency
server:
  port: "9090"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, percentile.Grid{0.1, 0.3, 0.5, 0.7, 0.9}, cfg.Analysis.Estimator.Grid)
	assert.Equal(t, estimator.MethodPolygon, cfg.Analysis.Estimator.Method)
	assert.Equal(t, estimator.BoundaryClamp, cfg.Analysis.Estimator.Boundary, "unset keys keep defaults")
	assert.Equal(t, []compare.Test{compare.TestWilcoxon}, cfg.Analysis.Compare.Tests)
	assert.Equal(t, compare.AlternativeTwoSided, cfg.Analysis.Compare.Alternative)
	assert.Equal(t, "bimodal", cfg.Analysis.Design.Redundant)
	assert.Equal(t, 2, cfg.Analysis.Concurrency)
	assert.Equal(t, "latency", cfg.Columns.RT)
	assert.Equal(t, "subject", cfg.Columns.Subject)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "analysis:\n  concurrency: 2\n")
	t.Setenv("GORMI_GRID", "even:10")
	t.Setenv("GORMI_METHOD", "polygon")
	t.Setenv("GORMI_BOUNDARY", "extrapolate")
	t.Setenv("GORMI_AGGREGATE_MODE", "sum")
	t.Setenv("GORMI_TESTS", "ttest")
	t.Setenv("GORMI_ALTERNATIVE", "greater")
	t.Setenv("GORMI_CONCURRENCY", "8")
	t.Setenv("PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	a := cfg.Analysis
	require.Len(t, a.Estimator.Grid, 10)
	assert.InDelta(t, 0.05, a.Estimator.Grid[0], 1e-12)
	assert.InDelta(t, 0.95, a.Estimator.Grid[9], 1e-12)
	assert.Equal(t, estimator.MethodPolygon, a.Estimator.Method)
	assert.Equal(t, estimator.BoundaryExtrapolate, a.Estimator.Boundary)
	assert.Equal(t, aggregate.ModeSum, a.Aggregate.Mode)
	assert.Equal(t, []compare.Test{compare.TestTTest}, a.Compare.Tests)
	assert.Equal(t, compare.AlternativeGreater, a.Compare.Alternative)
	assert.Equal(t, 8, a.Concurrency)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad grid", env: map[string]string{"GORMI_GRID": "0.5,0.2"}},
		{name: "grid not a number", env: map[string]string{"GORMI_GRID": "0.1,half"}},
		{name: "bad method", env: map[string]string{"GORMI_METHOD": "spline"}},
		{name: "bad mode", env: map[string]string{"GORMI_AGGREGATE_MODE": "median"}},
		{name: "bad test", env: map[string]string{"GORMI_TESTS": "anova"}},
		{name: "concurrency not a number", env: map[string]string{"GORMI_CONCURRENCY": "many"}},
		{name: "zero concurrency", env: map[string]string{"GORMI_CONCURRENCY": "0"}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "unknown key", file: "analysis:\n  speed: 3\n"},
		{name: "broken yaml", file: "analysis: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid(" 0.25, 0.5 ,0.75 ")
	require.NoError(t, err)
	assert.Equal(t, percentile.Grid{0.25, 0.5, 0.75}, g)

	g, err = ParseGrid("even:4")
	require.NoError(t, err)
	assert.Equal(t, percentile.Grid{0.125, 0.375, 0.625, 0.875}, g)

	_, err = ParseGrid("even:x")
	assert.Error(t, err)
	_, err = ParseGrid("")
	assert.Error(t, err)
}
