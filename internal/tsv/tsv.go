package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/haunted-dates/internal/logger"
	"github.com/pfrederiksen/haunted-dates/internal/record"
)

// Column names the pipeline relies on.
const (
	ColumnID          = "id"
	ColumnDescription = "description"
)

// ResultHeader is the header of a results file.
var ResultHeader = []string{"id", "description", "extracted_date", "source", "confidence"}

// ErrNoTextColumn is returned when no column can serve as the description.
var ErrNoTextColumn = errors.New("no suitable text column found for descriptions")

// Table is a tab-separated file held in memory. Every row has exactly
// len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row i in the named column, or "".
func (t *Table) Value(i int, name string) string {
	c := t.Column(name)
	if c < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][c]
}

// Read loads a tab-separated file whose first line is the header.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	logger.Info("Loaded dataset", logger.Fields{"path": path, "rows": len(t.Rows)})
	return t, nil
}

// Parse reads a table from r. Short rows are padded and long rows are
// truncated to the header width.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	lines, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("missing header line")
	}

	header := lines[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &Table{Header: header, Rows: make([][]string, 0, len(lines)-1)}
	for _, line := range lines[1:] {
		row := make([]string, len(header))
		copy(row, line)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Records converts the table into records. A missing id column is replaced
// by the row index; a missing description column by the text column with
// the longest average value. Rows repeating an earlier id are dropped.
func (t *Table) Records() ([]record.Record, error) {
	idCol := t.Column(ColumnID)
	descCol := t.Column(ColumnDescription)
	if descCol < 0 {
		descCol = t.longestTextColumn(idCol)
		if descCol < 0 {
			return nil, ErrNoTextColumn
		}
		logger.Info("Using substitute description column", logger.Fields{"column": t.Header[descCol]})
	}

	seen := make(map[string]bool, len(t.Rows))
	records := make([]record.Record, 0, len(t.Rows))
	duplicates := 0
	for i, row := range t.Rows {
		id := strconv.Itoa(i)
		if idCol >= 0 {
			id = strings.TrimSpace(row[idCol])
		}

		fields := make(map[string]string, len(t.Header))
		for c, h := range t.Header {
			fields[h] = row[c]
		}
		rec := record.New(id, row[descCol], fields)
		if seen[rec.ID] {
			duplicates++
			continue
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}

	if duplicates > 0 {
		logger.Info("Removed duplicate IDs", logger.Fields{"count": duplicates})
	}
	return records, nil
}

// longestTextColumn picks the non-numeric column with the longest average
// value, skipping skip.
func (t *Table) longestTextColumn(skip int) int {
	best, bestAvg := -1, -1.0
	for c := range t.Header {
		if c == skip || t.numericColumn(c) {
			continue
		}
		total := 0
		for _, row := range t.Rows {
			total += len(row[c])
		}
		avg := 0.0
		if len(t.Rows) > 0 {
			avg = float64(total) / float64(len(t.Rows))
		}
		if avg > bestAvg {
			best, bestAvg = c, avg
		}
	}
	return best
}

func (t *Table) numericColumn(c int) bool {
	if len(t.Rows) == 0 {
		return false
	}
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[c])
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// Write stores the table at path.
func (t *Table) Write(path string) error {
	return writeFile(path, t.Header, t.Rows)
}

// WriteRows stores result rows at path under ResultHeader.
func WriteRows(path string, rows []record.Row) error {
	lines := make([][]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, []string{r.ID, r.Description, r.ExtractedDate, r.Source, r.Confidence})
	}
	return writeFile(path, ResultHeader, lines)
}

func writeFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// BackupPath returns a timestamped sibling of path:
// <base>_YYYYMMDD_HHMMSS.tsv.
func BackupPath(path string, now time.Time) string {
	return trimExt(path) + "_" + now.Format("20060102_150405") + ".tsv"
}

// MergedPath returns the default merged-output path for a results path.
func MergedPath(path string) string {
	return trimExt(path) + "_merged.tsv"
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
