package compare

import (
	stderrors "errors"
	"testing"

	"gormi/domain/percentile"
	"gormi/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairedTTest_KnownValue(t *testing.T) {
	x := []float64{2, 4, 6, 8, 10}
	y := []float64{1, 2, 3, 4, 5}

	res, err := PairedTTest(x, y, AlternativeTwoSided)
	require.NoError(t, err)
	assert.InDelta(t, 4.242641, res.Statistic, 1e-6)
	assert.Equal(t, 4, res.DF)
	assert.InDelta(t, 0.013236, res.PValue, 1e-5)

	greater, err := PairedTTest(x, y, AlternativeGreater)
	require.NoError(t, err)
	assert.InDelta(t, res.PValue/2, greater.PValue, 1e-12)

	less, err := PairedTTest(x, y, AlternativeLess)
	require.NoError(t, err)
	assert.InDelta(t, 1-res.PValue/2, less.PValue, 1e-12)
}

func TestPairedTTest_EdgeCases(t *testing.T) {
	same, err := PairedTTest([]float64{300, 310}, []float64{300, 310}, AlternativeTwoSided)
	require.NoError(t, err)
	assert.Equal(t, 0.0, same.Statistic)
	assert.Equal(t, 1.0, same.PValue)

	_, err = PairedTTest([]float64{2, 3}, []float64{1, 2}, AlternativeTwoSided)
	assert.True(t, stderrors.Is(err, errors.ErrTestNotComputable))

	_, err = PairedTTest([]float64{1}, []float64{2}, AlternativeTwoSided)
	assert.True(t, stderrors.Is(err, errors.ErrInsufficientSamples))

	_, err = PairedTTest([]float64{1, 2, 3}, []float64{2, 3}, AlternativeTwoSided)
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))
}

func TestWilcoxon_Exact(t *testing.T) {
	tests := []struct {
		name      string
		d         []float64
		alt       Alternative
		statistic float64
		p         float64
	}{
		{"all positive two-sided", []float64{1, 2, 3, 4, 5}, AlternativeTwoSided, 0, 0.0625},
		{"all positive greater", []float64{1, 2, 3, 4, 5}, AlternativeGreater, 15, 1.0 / 32},
		{"all positive less", []float64{1, 2, 3, 4, 5}, AlternativeLess, 15, 1},
		{"mixed less", []float64{-1, -2, -3, 4, -5}, AlternativeLess, 4, 7.0 / 32},
		{"mixed two-sided", []float64{-1, -2, -3, 4, -5}, AlternativeTwoSided, 4, 14.0 / 32},
		{"two pairs", []float64{1, 2}, AlternativeTwoSided, 0, 0.5},
		{"zeros dropped", []float64{0, 1, 0, 2}, AlternativeTwoSided, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := make([]float64, len(tt.d))
			x := make([]float64, len(tt.d))
			for i, d := range tt.d {
				y[i] = 100
				x[i] = 100 + d
			}
			res, err := WilcoxonSignedRank(x, y, tt.alt)
			require.NoError(t, err)
			assert.True(t, res.Exact)
			assert.Equal(t, tt.statistic, res.Statistic)
			assert.InDelta(t, tt.p, res.PValue, 1e-12)
		})
	}
}

func TestWilcoxon_TiesUseNormalApproximation(t *testing.T) {
	x := []float64{11, 11, 12, 7}
	y := []float64{10, 10, 10, 10}

	res, err := WilcoxonSignedRank(x, y, AlternativeTwoSided)
	require.NoError(t, err)
	assert.False(t, res.Exact)
	assert.Equal(t, 4, res.N)
	assert.Equal(t, 4.0, res.Statistic)
	// W+ = 6, mean 5, tie-corrected variance 7.375
	assert.InDelta(t, 0.7127, res.PValue, 1e-3)
}

func TestWilcoxon_LargeSampleApproximation(t *testing.T) {
	n := 40
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		y[i] = 300
		x[i] = 300 - float64(i+1)
	}
	res, err := WilcoxonSignedRank(x, y, AlternativeLess)
	require.NoError(t, err)
	assert.False(t, res.Exact)
	assert.Equal(t, 0.0, res.Statistic)
	assert.Less(t, res.PValue, 1e-6)
}

func TestWilcoxon_NoDifferences(t *testing.T) {
	res, err := WilcoxonSignedRank([]float64{1, 2, 3}, []float64{1, 2, 3}, AlternativeTwoSided)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, 0, res.N)
}

var grid = percentile.Grid{0.1, 0.3, 0.5}

func subjectTable(t *testing.T, label string, shift float64) *percentile.Table {
	t.Helper()
	tbl, err := percentile.NewTable(label, grid, []float64{300 + shift, 340 + shift, 390 + shift})
	require.NoError(t, err)
	return tbl
}

func TestCompare_IdenticalSubjects(t *testing.T) {
	x := []*percentile.Table{subjectTable(t, "s1", 0), subjectTable(t, "s2", 12)}
	y := []*percentile.Table{subjectTable(t, "s1", 0), subjectTable(t, "s2", 12)}

	res, err := Compare(x, y, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Results, len(grid))
	for _, lr := range res.Results {
		require.NotNil(t, lr.TTest)
		require.NotNil(t, lr.Wilcoxon)
		assert.Greater(t, lr.TTest.PValue, 0.5)
		assert.Greater(t, lr.Wilcoxon.PValue, 0.5)
		assert.Equal(t, 2, lr.Pairs)
		assert.Equal(t, 0.0, lr.MeanDifference)
	}
	assert.Empty(t, res.Significant(0.05))
}

func TestCompare_DetectsFasterGroup(t *testing.T) {
	labels := []string{"s1", "s2", "s3", "s4", "s5"}
	var x, y []*percentile.Table
	for i, l := range labels {
		y = append(y, subjectTable(t, l, float64(10*i)))
		x = append(x, subjectTable(t, l, float64(10*i)-float64(i+1)))
	}

	cfg := DefaultConfig()
	cfg.Alternative = AlternativeLess
	res, err := Compare(x, y, cfg)
	require.NoError(t, err)

	for _, lr := range res.Results {
		assert.InDelta(t, -3, lr.MeanDifference, 1e-9)
		assert.InDelta(t, -4.242641, lr.TTest.Statistic, 1e-6)
		assert.InDelta(t, 0.013236/2, lr.TTest.PValue, 1e-5)
		assert.Equal(t, 0.0, lr.Wilcoxon.Statistic)
		assert.InDelta(t, 1.0/32, lr.Wilcoxon.PValue, 1e-12)
	}
	assert.Equal(t, []float64(grid), res.Significant(0.05))
	assert.Equal(t, AlternativeLess, res.Alternative)
}

func TestCompare_SelectedTestsOnly(t *testing.T) {
	x := []*percentile.Table{subjectTable(t, "", 0), subjectTable(t, "", 5)}
	y := []*percentile.Table{subjectTable(t, "", 1), subjectTable(t, "", 3)}

	res, err := Compare(x, y, Config{Tests: []Test{TestWilcoxon}, Alternative: AlternativeTwoSided})
	require.NoError(t, err)
	for _, lr := range res.Results {
		assert.Nil(t, lr.TTest)
		assert.NotNil(t, lr.Wilcoxon)
	}
}

func TestCompare_Errors(t *testing.T) {
	one := []*percentile.Table{subjectTable(t, "s1", 0)}
	_, err := Compare(one, one, DefaultConfig())
	assert.True(t, stderrors.Is(err, errors.ErrInsufficientSamples))

	two := []*percentile.Table{subjectTable(t, "s1", 0), subjectTable(t, "s2", 0)}
	_, err = Compare(two, one, DefaultConfig())
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))

	swapped := []*percentile.Table{subjectTable(t, "s2", 0), subjectTable(t, "s1", 0)}
	_, err = Compare(two, swapped, DefaultConfig())
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))
	cfg := DefaultConfig()
	cfg.IgnoreLabels = true
	_, err = Compare(two, swapped, cfg)
	assert.NoError(t, err)

	other, err := percentile.NewTable("s2", percentile.Grid{0.2, 0.4, 0.6}, []float64{1, 2, 3})
	require.NoError(t, err)
	_, err = Compare(two, []*percentile.Table{subjectTable(t, "s1", 0), other}, DefaultConfig())
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))

	// a constant non-zero shift has no variance for the t-test
	shifted := []*percentile.Table{subjectTable(t, "s1", 5), subjectTable(t, "s2", 5)}
	_, err = Compare(shifted, two, DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, errors.CodeTestNotComputable, errors.GetCode(err))
	assert.Contains(t, err.Error(), "level 0.1")

	_, err = Compare(two, two, Config{Tests: []Test{"anova"}, Alternative: AlternativeTwoSided})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	_, err = Compare(two, two, Config{Tests: []Test{TestTTest}, Alternative: "sideways"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestParseTests(t *testing.T) {
	assert.Equal(t, []Test{TestTTest, TestWilcoxon}, ParseTests(" TTest, wilcoxon ,"))
	assert.Empty(t, ParseTests(""))
}
