package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"phackdemo/adapters/stats/pseudo"
	"phackdemo/domain/trial"
	"phackdemo/internal"

	"github.com/xuri/excelize/v2"
)

// Fixture files hold one observation per row in long format:
//
//	comparison | group | value
//	1          | A     | 42.1
const (
	fixtureSheet      = "Sheet1"
	fixtureComparison = "comparison"
	fixtureGroup      = "group"
	fixtureValue      = "value"
)

// BatchReader loads a batch fixture from an Excel or CSV file
type BatchReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewBatchReader creates a reader; the file type follows the extension.
// A nil logger uses the default one.
func NewBatchReader(filePath string, logger *internal.Logger) *BatchReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchReader{filePath: filePath, fileType: fileType, logger: logger.With("BatchReader")}
}

// ReadBatch reads the fixture and scores every comparison in it
func (r *BatchReader) ReadBatch() (trial.Batch, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return trial.Batch{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return trial.Batch{}, err
	}
	if len(rows) < 2 {
		return trial.Batch{}, fmt.Errorf("fixture must have a header row and at least one data row")
	}

	r.logger.Info("read %d rows from %s", len(rows)-1, r.filePath)
	return buildBatch(rows)
}

func (r *BatchReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(fixtureSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fixtureSheet, err)
	}
	return rows, nil
}

func (r *BatchReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func buildBatch(rows [][]string) (trial.Batch, error) {
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{fixtureComparison, fixtureGroup, fixtureValue} {
		if _, ok := cols[want]; !ok {
			return trial.Batch{}, fmt.Errorf("fixture is missing the %q column", want)
		}
	}

	type pair struct{ a, b trial.Sample }
	groups := map[int]*pair{}
	for line, row := range rows[1:] {
		cell := func(name string) string {
			if i := cols[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		id, err := strconv.Atoi(cell(fixtureComparison))
		if err != nil {
			return trial.Batch{}, fmt.Errorf("row %d: invalid comparison id: %w", line+2, err)
		}
		value, err := strconv.ParseFloat(cell(fixtureValue), 64)
		if err != nil {
			return trial.Batch{}, fmt.Errorf("row %d: invalid value: %w", line+2, err)
		}

		p, ok := groups[id]
		if !ok {
			p = &pair{}
			groups[id] = p
		}
		switch strings.ToUpper(cell(fixtureGroup)) {
		case "A":
			p.a = append(p.a, value)
		case "B":
			p.b = append(p.b, value)
		default:
			return trial.Batch{}, fmt.Errorf("row %d: group must be A or B", line+2)
		}
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	comparisons := make([]trial.Comparison, 0, len(ids))
	for _, id := range ids {
		c, err := pseudo.ComparisonFromSamples(id, groups[id].a, groups[id].b)
		if err != nil {
			return trial.Batch{}, fmt.Errorf("comparison %d: %w", id, err)
		}
		if len(comparisons) > 0 && c.SampleSize() != comparisons[0].SampleSize() {
			return trial.Batch{}, fmt.Errorf("comparison %d: sample size %d differs from %d",
				id, c.SampleSize(), comparisons[0].SampleSize())
		}
		comparisons = append(comparisons, c)
	}
	return trial.NewBatch(comparisons), nil
}
