package tabular

import (
	"encoding/csv"
	"os"

	"github.com/xuri/excelize/v2"

	"gormi/internal/errors"
)

// WriteRowsCSV writes rows, header first, to a CSV file.
func WriteRowsCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create CSV file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write CSV file")
	}
	return nil
}

// WriteRowsXLSX writes rows to a new workbook holding a single sheet.
func WriteRowsXLSX(path, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	if err := SetSheetRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save workbook")
	}
	return nil
}

// SetSheetRows fills sheet from A1, creating the sheet if needed.
func SetSheetRows(f *excelize.File, sheet string, rows [][]string) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "create sheet %q", sheet)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return errors.Wrap(err, "cell name")
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return errors.Wrapf(err, "write %s!%s", sheet, cell)
			}
		}
	}
	return nil
}
