package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gormi/domain/percentile"
	"gormi/internal/errors"
)

const fixedPercentileColumns = 3 // label, n, low_confidence

// PercentileRows lays tables out subject by percentile: a header of
// label, n, low_confidence and one column per level, then one row per table.
func PercentileRows(tables []*percentile.Table) ([][]string, error) {
	grid, err := percentile.Grids(tables)
	if err != nil {
		return nil, err
	}
	header := []string{"label", "n", "low_confidence"}
	for _, p := range grid {
		header = append(header, formatFloat(p))
	}
	rows := [][]string{header}
	for _, t := range tables {
		row := []string{t.Label(), strconv.Itoa(t.SampleSize()), strconv.FormatBool(t.LowConfidence())}
		for _, v := range t.Values() {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WritePercentilesCSV writes PercentileRows as CSV.
func WritePercentilesCSV(w io.Writer, tables []*percentile.Table) error {
	rows, err := PercentileRows(tables)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write percentile CSV")
	}
	return nil
}

// WritePercentilesXLSX writes PercentileRows to a workbook with a single
// "percentiles" sheet.
func WritePercentilesXLSX(path string, tables []*percentile.Table) error {
	rows, err := PercentileRows(tables)
	if err != nil {
		return err
	}
	return WriteRowsXLSX(path, "percentiles", rows)
}

// ReadPercentiles loads tables written by WritePercentilesCSV or
// WritePercentilesXLSX.
func ReadPercentiles(path string) ([]*percentile.Table, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "open percentile file")
		}
		defer f.Close()
		rows, err = csv.NewReader(f).ReadAll()
	} else {
		rows, err = NewReader(path, Columns{}).readExcelRows()
	}
	if err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "read percentile file")
	}
	return ParsePercentileRows(rows)
}

// ParsePercentileRows is the inverse of PercentileRows.
func ParsePercentileRows(rows [][]string) ([]*percentile.Table, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("percentile table needs a header and at least one row")
	}
	header := rows[0]
	if len(header) <= fixedPercentileColumns {
		return nil, errors.InvalidInput(fmt.Sprintf("percentile header has no level columns: %v", header))
	}
	levels := make([]float64, 0, len(header)-fixedPercentileColumns)
	for _, h := range header[fixedPercentileColumns:] {
		p, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("percentile header %q is not a level", h))
		}
		levels = append(levels, p)
	}
	grid, err := percentile.NewGrid(levels)
	if err != nil {
		return nil, err
	}

	tables := make([]*percentile.Table, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, errors.ShapeMismatch(fmt.Sprintf("percentile row %d has %d cells, header has %d", i+1, len(row), len(header)))
		}
		n, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("percentile row %d: n %q is not an integer", i+1, row[1]))
		}
		low, err := strconv.ParseBool(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("percentile row %d: low_confidence %q is not a boolean", i+1, row[2]))
		}
		values := make([]float64, len(levels))
		for j, cell := range row[fixedPercentileColumns:] {
			if values[j], err = strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("percentile row %d: value %q is not a number", i+1, cell))
			}
		}
		t, err := percentile.NewTable(row[0], grid, values, percentile.WithSampleSize(n), percentile.WithLowConfidence(low))
		if err != nil {
			return nil, errors.Wrapf(err, "percentile row %d", i+1)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
