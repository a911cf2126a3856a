package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gormi/domain/core"
	"gormi/internal/errors"
)

// Columns names the identifier and RT columns of a trial table.
type Columns struct {
	Subject   string `json:"subject" yaml:"subject"`
	Condition string `json:"condition" yaml:"condition"`
	Channel   string `json:"channel" yaml:"channel"`
	RT        string `json:"rt" yaml:"rt"`
}

// DefaultColumns returns subject, condition, channel and rt.
func DefaultColumns() Columns {
	return Columns{Subject: "subject", Condition: "condition", Channel: "channel", RT: "rt"}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Subject == "" {
		c.Subject = d.Subject
	}
	if c.Condition == "" {
		c.Condition = d.Condition
	}
	if c.Channel == "" {
		c.Channel = d.Channel
	}
	if c.RT == "" {
		c.RT = d.RT
	}
	return c
}

// Reader loads trial rows from CSV or Excel files
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	columns  Columns
}

// NewReader creates a reader; the file type follows the extension.
func NewReader(filePath string, columns Columns) *Reader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType, columns: columns.withDefaults()}
}

// WithSheet selects a worksheet by name instead of the first one.
func (r *Reader) WithSheet(sheet string) *Reader {
	c := *r
	c.sheet = sheet
	return &c
}

// Read loads the file into a Frame.
func (r *Reader) Read() (*Frame, error) {
	log.Printf("[TabularReader] Reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	return FrameFromRows(rows, r.columns)
}

func (r *Reader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "open Excel file")
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("Excel file has no worksheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(errors.WithCode(errors.CodeInvalidInput, err), "read sheet %q", sheet)
	}
	log.Printf("[TabularReader] Sheet %q read in %.2fms (%d rows)", sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "open CSV file")
	}
	defer file.Close()

	start := time.Now()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "read CSV file")
	}
	log.Printf("[TabularReader] CSV file read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// FrameFromRows converts a header row plus data rows into a Frame. The RT
// column is required; a missing identifier column leaves that key part
// empty. Rows whose RT does not parse as a non-negative number are skipped.
func FrameFromRows(rows [][]string, columns Columns) (*Frame, error) {
	columns = columns.withDefaults()
	if len(rows) < 2 {
		return nil, errors.InvalidInput("table must have a header row and at least one data row")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(name string) int {
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	subjectCol, conditionCol, channelCol, rtCol := col(columns.Subject), col(columns.Condition), col(columns.Channel), col(columns.RT)
	if rtCol < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("RT column %q not found in header %v", columns.RT, rows[0]))
	}

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Record, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		rt, err := strconv.ParseFloat(cell(row, rtCol), 64)
		if err != nil || rt < 0 || math.IsNaN(rt) || math.IsInf(rt, 0) {
			skipped++
			continue
		}
		records = append(records, Record{
			Key: core.GroupKey{
				Subject:   cell(row, subjectCol),
				Condition: cell(row, conditionCol),
				Channel:   cell(row, channelCol),
			},
			RT: rt,
		})
	}
	if skipped > 0 {
		log.Printf("[TabularReader] Skipped %d rows without a usable RT", skipped)
	}
	log.Printf("[TabularReader] Loaded %d trials", len(records))

	return NewFrame(records), nil
}
