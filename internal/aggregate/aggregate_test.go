package aggregate

import (
	stderrors "errors"
	"testing"

	"gormi/domain/percentile"
	"gormi/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeLevels = percentile.Grid{0.25, 0.5, 0.75}

func table(t *testing.T, label string, values []float64, opts ...percentile.Option) *percentile.Table {
	t.Helper()
	tbl, err := percentile.NewTable(label, threeLevels, values, opts...)
	require.NoError(t, err)
	return tbl
}

func TestCombine_Mean(t *testing.T) {
	tables := []*percentile.Table{
		table(t, "s1", []float64{0.1, 0.2, 0.3}, percentile.WithSampleSize(10)),
		table(t, "s2", []float64{0.3, 0.4, 0.5}, percentile.WithSampleSize(12)),
		table(t, "s3", []float64{0.5, 0.6, 0.7}, percentile.WithSampleSize(8), percentile.WithLowConfidence(true)),
	}

	got, err := Combine(tables, DefaultOptions())
	require.NoError(t, err)

	expected := []float64{0.3, 0.4, 0.5}
	for i, v := range got.Values() {
		assert.InDelta(t, expected[i], v, 1e-12)
	}
	assert.Equal(t, "mean", got.Label())
	assert.Equal(t, 30, got.SampleSize())
	assert.True(t, got.LowConfidence())
	assert.True(t, got.Grid().Equal(threeLevels))
}

func TestCombine_Sum(t *testing.T) {
	tables := []*percentile.Table{
		table(t, "a", []float64{1, 2, 3}),
		table(t, "b", []float64{4, 5, 6}),
	}
	got, err := Combine(tables, Options{Mode: ModeSum, Label: "counts"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, got.Values())
	assert.Equal(t, "counts", got.Label())
	assert.False(t, got.LowConfidence())
}

func TestCombine_SingleTableIsIdentity(t *testing.T) {
	only := table(t, "s1", []float64{250, 300, 410}, percentile.WithSampleSize(40), percentile.WithLowConfidence(true))

	for _, mode := range []Mode{ModeMean, ModeSum} {
		got, err := Combine([]*percentile.Table{only}, Options{Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, only.Values(), got.Values())
		assert.Equal(t, only.Grid(), got.Grid())
		assert.Equal(t, "s1", got.Label())
		assert.Equal(t, 40, got.SampleSize())
		assert.True(t, got.LowConfidence())
	}

	relabeled, err := Combine([]*percentile.Table{only}, Options{Label: "group"})
	require.NoError(t, err)
	assert.Equal(t, "group", relabeled.Label())
	assert.Equal(t, "s1", only.Label())
}

func TestCombine_Errors(t *testing.T) {
	_, err := Combine(nil, DefaultOptions())
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	other, err := percentile.NewTable("x", percentile.Grid{0.2, 0.5, 0.8}, []float64{1, 2, 3})
	require.NoError(t, err)
	_, err = Combine([]*percentile.Table{table(t, "a", []float64{1, 2, 3}), other}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))

	_, err = Combine([]*percentile.Table{table(t, "a", []float64{1, 2, 3})}, Options{Mode: "median"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = Combine([]*percentile.Table{nil}, DefaultOptions())
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeMean, false},
		{"mean", ModeMean, false},
		{"sum", ModeSum, false},
		{"avg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
