package report

import (
	"log"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gormi/adapters/tabular"
	"gormi/domain/percentile"
	"gormi/internal/analysis"
	"gormi/internal/errors"
	"gormi/internal/racemodel"
)

// WriteWorkbook writes a report to an XLSX file with the sheets redundant,
// bound, violations, comparison and summary.
func WriteWorkbook(r *analysis.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "redundant"); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	redundant := make([]*percentile.Table, 0, len(r.Subjects)+1)
	bounds := make([]*percentile.Table, 0, len(r.Subjects)+1)
	for _, s := range r.Subjects {
		redundant = append(redundant, s.Redundant)
		bounds = append(bounds, s.Bound.WithLabel(s.Subject))
	}
	redundant = append(redundant, r.Group.Redundant.WithLabel("group"))
	bounds = append(bounds, r.Group.Bound.WithLabel("group"))

	sheets := []struct {
		name string
		rows func() ([][]string, error)
	}{
		{"redundant", func() ([][]string, error) { return tabular.PercentileRows(redundant) }},
		{"bound", func() ([][]string, error) { return tabular.PercentileRows(bounds) }},
		{"violations", func() ([][]string, error) { return violationRows(r), nil }},
		{"comparison", func() ([][]string, error) { return comparisonRows(r), nil }},
		{"summary", func() ([][]string, error) { return summaryRows(r), nil }},
	}
	for _, sh := range sheets {
		rows, err := sh.rows()
		if err != nil {
			return errors.Wrapf(err, "build sheet %s", sh.name)
		}
		if err := tabular.SetSheetRows(f, sh.name, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save report workbook")
	}
	log.Printf("[Report] Workbook written to %s", path)
	return nil
}

func violationRows(r *analysis.Report) [][]string {
	rows := [][]string{{"subject", "level", "redundant", "bound", "difference", "violated"}}
	add := func(subject string, vs []racemodel.Violation) {
		for _, v := range vs {
			rows = append(rows, []string{subject, num(v.Level), num(v.Redundant), num(v.Bound), num(v.Difference), strconv.FormatBool(v.Violated)})
		}
	}
	for _, s := range r.Subjects {
		add(s.Subject, s.Violations)
	}
	add("group", r.Group.Violations)
	return rows
}

func comparisonRows(r *analysis.Report) [][]string {
	rows := [][]string{{"level", "pairs", "mean_difference", "t", "df", "p_t", "w", "p_w", "w_exact"}}
	if r.Comparison == nil {
		return rows
	}
	for _, lr := range r.Comparison.Results {
		row := []string{num(lr.Level), strconv.Itoa(lr.Pairs), num(lr.MeanDifference), "", "", "", "", "", ""}
		if lr.TTest != nil {
			row[3], row[4], row[5] = num(lr.TTest.Statistic), strconv.Itoa(lr.TTest.DF), num(lr.TTest.PValue)
		}
		if lr.Wilcoxon != nil {
			row[6], row[7], row[8] = num(lr.Wilcoxon.Statistic), num(lr.Wilcoxon.PValue), strconv.FormatBool(lr.Wilcoxon.Exact)
		}
		rows = append(rows, row)
	}
	return rows
}

func summaryRows(r *analysis.Report) [][]string {
	rows := [][]string{{"subject", "channel", "n", "mean", "sd", "min", "q25", "median", "q75", "max"}}
	d := r.Design
	for _, s := range r.Subjects {
		for _, ch := range []string{d.ChannelA, d.ChannelB, d.Redundant} {
			sm, ok := s.Summaries[ch]
			if !ok {
				continue
			}
			rows = append(rows, []string{s.Subject, ch, strconv.Itoa(sm.N), num(sm.Mean), num(sm.StdDev),
				num(sm.Min), num(sm.Q25), num(sm.Median), num(sm.Q75), num(sm.Max)})
		}
	}
	return rows
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
