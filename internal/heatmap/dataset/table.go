package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/smallbiznis/rateboard/internal/heatmap/grid"
)

const (
	ColumnReportDate = "report_date"
	ColumnStayDate   = "stay_date"
)

var (
	ErrMissingColumn = errors.New("missing_column")
	ErrUnknownColumn = errors.New("unknown_column")
	ErrNotNumeric    = errors.New("column_not_numeric")
)

// missingTokens are cell spellings exported by spreadsheet and dataframe
// tools for an absent value. They count as blank cells.
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"-nan": {},
	"na":   {},
	"n/a":  {},
	"#n/a": {},
	"<na>": {},
	"null": {},
	"none": {},
	"nat":  {},
}

func isMissing(raw string) bool {
	_, ok := missingTokens[strings.ToLower(raw)]
	return ok
}

type value struct {
	v       float64
	present bool
}

// Table is a column-oriented copy of one heatmap CSV.
type Table struct {
	reportDates    []time.Time
	stayDates      []time.Time
	values         map[string][]value
	numericColumns []string
	skippedRows    int
}

func (t *Table) Len() int { return len(t.reportDates) }

// NumericColumns lists columns whose every non-empty value parses as a number.
func (t *Table) NumericColumns() []string { return t.numericColumns }

// SkippedRows counts rows dropped for unreadable dates.
func (t *Table) SkippedRows() int { return t.skippedRows }

func (t *Table) HasNumericColumn(name string) bool {
	return lo.Contains(t.numericColumns, name)
}

// Observations projects a numeric column onto the date axes, skipping blank cells.
func (t *Table) Observations(column string) ([]grid.Observation, error) {
	col, ok := t.values[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if !t.HasNumericColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, column)
	}

	out := make([]grid.Observation, 0, len(col))
	for i, v := range col {
		if !v.present {
			continue
		}
		out = append(out, grid.Observation{
			ReportDate: t.reportDates[i],
			StayDate:   t.stayDates[i],
			Value:      v.v,
		})
	}
	return out, nil
}

// ReadTable parses a CSV with a header row. Header names are trimmed,
// lowercased and have spaces replaced with underscores.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := lo.Map(header, func(h string, _ int) string { return normalizeHeader(h) })

	reportIdx := lo.IndexOf(columns, ColumnReportDate)
	stayIdx := lo.IndexOf(columns, ColumnStayDate)
	if reportIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnReportDate)
	}
	if stayIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnStayDate)
	}

	t := &Table{values: make(map[string][]value)}
	numeric := make(map[string]bool)
	for i, name := range columns {
		if i == reportIdx || i == stayIdx || name == "" {
			continue
		}
		t.values[name] = nil
		numeric[name] = true
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		reportDate, errReport := grid.ParseDate(field(record, reportIdx))
		stayDate, errStay := grid.ParseDate(field(record, stayIdx))
		if errReport != nil || errStay != nil {
			t.skippedRows++
			continue
		}
		t.reportDates = append(t.reportDates, reportDate)
		t.stayDates = append(t.stayDates, stayDate)

		for i, name := range columns {
			if _, tracked := t.values[name]; !tracked {
				continue
			}
			raw := strings.TrimSpace(field(record, i))
			v := value{}
			if !isMissing(raw) {
				parsed, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					numeric[name] = false
				} else if !math.IsNaN(parsed) {
					v = value{v: parsed, present: true}
				}
			}
			t.values[name] = append(t.values[name], v)
		}
	}

	for name, ok := range numeric {
		if ok {
			t.numericColumns = append(t.numericColumns, name)
		}
	}
	sort.Strings(t.numericColumns)
	return t, nil
}

// LoadTable reads a CSV file from disk.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}
