package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyInput is returned when the input has no header row.
var ErrEmptyInput = errors.New("input: file is empty")

// MissingColumnsError is returned when required columns are absent from the header.
type MissingColumnsError struct {
	Missing []string
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("input: missing required columns %q (found %q)", e.Missing, e.Found)
}

// Options configures table parsing.
type Options struct {
	URLColumn  string
	DateColumn string
	Delimiter  rune
}

// DefaultOptions returns the column names and delimiter used by deal sheets.
func DefaultOptions() Options {
	return Options{
		URLColumn:  "URL",
		DateColumn: "Deal Date",
		Delimiter:  ';',
	}
}

// Row is one input record.
type Row struct {
	// Line is the 1-based line number in the source file.
	Line          int
	URL           string
	ReferenceDate string
}

// Table is a parsed input file.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ReadFile opens path and parses it with Read.
func ReadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read parses a delimited table and extracts the URL and reference date
// columns. Rows shorter than the header yield empty values for missing cells.
func Read(r io.Reader, opts Options) (*Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}

	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("input: read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.TrimSpace(h)
	}
	if len(columns) == 1 && columns[0] == "" {
		return nil, ErrEmptyInput
	}

	urlIdx := indexOf(columns, opts.URLColumn)
	dateIdx := indexOf(columns, opts.DateColumn)
	var missing []string
	if urlIdx < 0 {
		missing = append(missing, opts.URLColumn)
	}
	if dateIdx < 0 {
		missing = append(missing, opts.DateColumn)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Found: columns}
	}

	t := &Table{Columns: columns}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, Row{
			Line:          line,
			URL:           strings.TrimSpace(field(record, urlIdx)),
			ReferenceDate: strings.TrimSpace(field(record, dateIdx)),
		})
	}

	return t, nil
}

func indexOf(columns []string, name string) int {
	name = strings.TrimSpace(name)
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
