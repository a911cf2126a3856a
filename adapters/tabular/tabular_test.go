package tabular

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"gormi/domain/core"
	"gormi/domain/percentile"
	"gormi/internal/errors"
	"gormi/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ConditionSource = (*Frame)(nil)

var trialRows = [][]string{
	{"Subject", "Condition", "Channel", "RT"},
	{"s02", "loud", "A", "310"},
	{"s01", "loud", "A", "300"},
	{"s01", "loud", "AB", "250"},
	{"s02", "soft", "B", "420"},
	{"s01", "soft", "A", "330"},
	{"s02", "loud", "A", "305"},
	{"s01", "loud", "A", "not-a-number"},
	{"s01", "loud", "B", "-5"},
	{"s02", "loud", "AB", ""},
}

func TestFrameFromRows(t *testing.T) {
	frame, err := FrameFromRows(trialRows, DefaultColumns())
	require.NoError(t, err)

	// three unusable RT cells are dropped
	assert.Equal(t, 6, frame.Len())
	assert.Equal(t, []string{"s02", "s01"}, frame.Subjects())
	assert.Equal(t, []string{"loud", "soft"}, frame.Conditions())
	assert.Equal(t, []string{"A", "AB", "B"}, frame.Channels())
}

func TestFrameFromRows_CustomColumns(t *testing.T) {
	rows := [][]string{
		{"participant", "modality", "latency_ms"},
		{"p1", "visual", "512.5"},
	}
	frame, err := FrameFromRows(rows, Columns{Subject: "participant", Channel: "modality", RT: "Latency_MS"})
	require.NoError(t, err)
	require.Equal(t, 1, frame.Len())
	rec := frame.Records()[0]
	assert.Equal(t, core.GroupKey{Subject: "p1", Channel: "visual"}, rec.Key)
	assert.Equal(t, 512.5, rec.RT)

	_, err = FrameFromRows(rows, DefaultColumns())
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = FrameFromRows(rows[:1], DefaultColumns())
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestFrame_GroupBy(t *testing.T) {
	frame, err := FrameFromRows(trialRows, DefaultColumns())
	require.NoError(t, err)

	groups := frame.GroupBy(core.LevelSubject, core.LevelChannel)
	require.Len(t, groups, 4)
	assert.Equal(t, core.GroupKey{Subject: "s02", Channel: "A"}, groups[0].Key)
	assert.Equal(t, []float64{310, 305}, groups[0].RTs)
	assert.Equal(t, core.GroupKey{Subject: "s01", Channel: "A"}, groups[1].Key)
	assert.Equal(t, []float64{300, 330}, groups[1].RTs)
	assert.Equal(t, "s01_AB", groups[2].Key.String())
	assert.Equal(t, "s02_B", groups[3].Key.String())

	full := frame.GroupBy(core.AllLevels...)
	assert.Len(t, full, 5)

	all := frame.GroupBy()
	require.Len(t, all, 1)
	assert.Len(t, all[0].RTs, 6)
}

func TestFrame_WhereAndSamples(t *testing.T) {
	frame, err := FrameFromRows(trialRows, DefaultColumns())
	require.NoError(t, err)

	loud := frame.Where(core.GroupKey{Condition: "loud"})
	assert.Equal(t, 4, loud.Len())
	assert.Equal(t, 6, frame.Len(), "Where must not modify the receiver")

	rts, err := loud.Sample("s02", "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{310, 305}, rts)

	_, err = loud.Sample("s02", "B")
	assert.True(t, stderrors.Is(err, errors.ErrEmptySample))

	// order follows the caller's subject list, not the file
	samples, err := loud.Samples("A", []string{"s01", "s02"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{300}, {310, 305}}, samples)

	_, err = loud.Samples("AB", []string{"s01", "s02"})
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))
}

func TestFrame_SampleKeepsConditionsApart(t *testing.T) {
	frame := NewFrame([]Record{
		{Key: core.GroupKey{Subject: "s1", Condition: "loud", Channel: "A"}, RT: 200},
		{Key: core.GroupKey{Subject: "s1", Condition: "quiet", Channel: "A"}, RT: 900},
		{Key: core.GroupKey{Subject: "s1", Condition: "quiet", Channel: "B"}, RT: 450},
	})

	_, err := frame.Sample("s1", "A")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "[loud quiet]")

	_, err = frame.Samples("A", []string{"s1"})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	rts, err := frame.Sample("s1", "B")
	require.NoError(t, err)
	assert.Equal(t, []float64{450}, rts)

	rts, err = frame.Where(core.GroupKey{Condition: "quiet"}).Sample("s1", "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{900}, rts)
}

func TestReader_CSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trials.csv")
	xlsxPath := filepath.Join(dir, "trials.xlsx")
	require.NoError(t, WriteRowsCSV(csvPath, trialRows))
	require.NoError(t, WriteRowsXLSX(xlsxPath, "trials", trialRows))

	for _, path := range []string{csvPath, xlsxPath} {
		frame, err := NewReader(path, Columns{}).Read()
		require.NoError(t, err, path)
		assert.Equal(t, 6, frame.Len(), path)
		assert.Equal(t, []string{"s02", "s01"}, frame.Subjects(), path)
	}

	frame, err := NewReader(xlsxPath, DefaultColumns()).WithSheet("trials").Read()
	require.NoError(t, err)
	assert.Equal(t, 6, frame.Len())

	_, err = NewReader(xlsxPath, DefaultColumns()).WithSheet("missing").Read()
	assert.Error(t, err)

	_, err = NewReader(filepath.Join(dir, "absent.csv"), DefaultColumns()).Read()
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func percentileTables(t *testing.T) []*percentile.Table {
	t.Helper()
	grid := percentile.Grid{0.1, 0.5, 0.9}
	a, err := percentile.NewTable("s01", grid, []float64{245, 312.5, 605}, percentile.WithSampleSize(10))
	require.NoError(t, err)
	b, err := percentile.NewTable("s02", grid, []float64{237.2, 241.35, 272}, percentile.WithSampleSize(3), percentile.WithLowConfidence(true))
	require.NoError(t, err)
	return []*percentile.Table{a, b}
}

func TestPercentileRows(t *testing.T) {
	rows, err := PercentileRows(percentileTables(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "n", "low_confidence", "0.1", "0.5", "0.9"}, rows[0])
	assert.Equal(t, []string{"s01", "10", "false", "245", "312.5", "605"}, rows[1])
	assert.Equal(t, []string{"s02", "3", "true", "237.2", "241.35", "272"}, rows[2])

	mixed := percentileTables(t)
	other, err := percentile.NewTable("x", percentile.Grid{0.2, 0.5, 0.9}, []float64{1, 2, 3})
	require.NoError(t, err)
	_, err = PercentileRows(append(mixed, other))
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))
}

func TestPercentiles_RoundTrip(t *testing.T) {
	tables := percentileTables(t)
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WritePercentilesCSV(&buf, tables))
	csvPath := filepath.Join(dir, "percentiles.csv")
	require.NoError(t, os.WriteFile(csvPath, buf.Bytes(), 0o644))

	xlsxPath := filepath.Join(dir, "percentiles.xlsx")
	require.NoError(t, WritePercentilesXLSX(xlsxPath, tables))

	for _, path := range []string{csvPath, xlsxPath} {
		got, err := ReadPercentiles(path)
		require.NoError(t, err, path)
		require.Len(t, got, 2)
		for i := range tables {
			assert.Equal(t, tables[i].Label(), got[i].Label())
			assert.Equal(t, tables[i].Values(), got[i].Values())
			assert.True(t, tables[i].Grid().Equal(got[i].Grid()))
			assert.Equal(t, tables[i].SampleSize(), got[i].SampleSize())
			assert.Equal(t, tables[i].LowConfidence(), got[i].LowConfidence())
		}
	}
}

func TestParsePercentileRows_Errors(t *testing.T) {
	_, err := ParsePercentileRows([][]string{{"label", "n", "low_confidence"}, {"a", "1", "false"}})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = ParsePercentileRows([][]string{{"label", "n", "low_confidence", "0.5"}, {"a", "1", "false"}})
	assert.True(t, stderrors.Is(err, errors.ErrShapeMismatch))

	_, err = ParsePercentileRows([][]string{{"label", "n", "low_confidence", "0.5", "0.4"}, {"a", "1", "false", "1", "2"}})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	_, err = ParsePercentileRows([][]string{{"label", "n", "low_confidence", "0.4", "0.5"}, {"a", "1", "false", "3", "2"}})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}
