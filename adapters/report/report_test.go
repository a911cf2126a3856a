package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"gormi/adapters/tabular"
	"gormi/internal/analysis"
	"gormi/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func runReport(t *testing.T, subjects int) *analysis.Report {
	t.Helper()
	gen := testkit.DefaultRTConfig()
	gen.Subjects = subjects
	gen.Trials = 60
	gen.Coactivation = 30
	ds, err := testkit.GenerateRT(gen)
	require.NoError(t, err)

	cfg := analysis.DefaultConfig()
	cfg.Condition = gen.Condition
	a, err := analysis.NewAnalyzer(cfg, ds.Frame())
	require.NoError(t, err)
	r, err := a.Run(context.Background())
	require.NoError(t, err)
	return r
}

func TestMarkdown(t *testing.T) {
	r := runReport(t, 4)
	md := Markdown(r)

	assert.Contains(t, md, "# Race model inequality: "+r.ID.String())
	assert.Contains(t, md, "- Condition: audiovisual")
	assert.Contains(t, md, "- Channels: A + B vs AB")
	assert.Contains(t, md, "## Group")
	assert.Contains(t, md, "| 0.05 |")
	assert.Contains(t, md, "| 0.95 |")
	assert.Contains(t, md, "Alternative: less")
	for _, s := range []string{"s01", "s02", "s03", "s04"} {
		assert.Contains(t, md, "| "+s+" | 60 | 60 | 60 |")
	}
	// header, separator and one row per level
	groupRows := strings.Count(md[strings.Index(md, "## Group"):strings.Index(md, "## Subjects")], "\n|")
	assert.Equal(t, len(r.Grid)+2, groupRows)
}

func TestMarkdown_SingleSubject(t *testing.T) {
	md := Markdown(runReport(t, 1))
	assert.Contains(t, md, "Level-wise tests were skipped")
}

func TestHTML(t *testing.T) {
	r := runReport(t, 3)
	page := string(HTML(r))
	assert.Contains(t, page, "<title>Race model inequality ")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2")
	assert.Contains(t, page, "s03")
}

func TestWriteWorkbook(t *testing.T) {
	r := runReport(t, 3)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteWorkbook(r, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"redundant", "bound", "violations", "comparison", "summary"}, f.GetSheetList())

	comparison, err := f.GetRows("comparison")
	require.NoError(t, err)
	assert.Len(t, comparison, len(r.Grid)+1)
	assert.Equal(t, "level", comparison[0][0])

	violations, err := f.GetRows("violations")
	require.NoError(t, err)
	assert.Len(t, violations, 1+(len(r.Subjects)+1)*len(r.Grid))

	summary, err := f.GetRows("summary")
	require.NoError(t, err)
	assert.Len(t, summary, 1+3*len(r.Subjects))

	// the first sheet reads back as percentile tables
	tables, err := tabular.ReadPercentiles(path)
	require.NoError(t, err)
	require.Len(t, tables, len(r.Subjects)+1)
	assert.Equal(t, "s01", tables[0].Label())
	assert.Equal(t, "group", tables[len(tables)-1].Label())
	assert.Equal(t, r.Group.Redundant.Values(), tables[len(tables)-1].Values())
}
