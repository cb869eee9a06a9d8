// Package table persists sweep results as a flat CSV table and reads them
// back through a schema-aware, name-keyed column accessor.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Persisted column names, in schema order.
const (
	ColQP         = "qp"
	ColElapsed    = "elapsed_sec"
	ColFPS        = "fps"
	ColSizeBytes  = "size_bytes"
	ColSizeMB     = "size_mb"
	ColReturnCode = "return_code"
)

// ErrInputMissing is returned when the table to read does not exist.
var ErrInputMissing = errors.New("results table missing")

// Columns returns the persisted header in schema order.
func Columns() []string {
	return []string{
		ColQP, ColElapsed, ColFPS, ColSizeBytes, ColSizeMB, ColReturnCode,
	}
}

// NumericColumns returns the columns the report coerces to numbers.
func NumericColumns() []string {
	return Columns()
}

// Write writes the header followed by rows as CSV.
func Write(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFile writes the table to path, creating its directory.
func WriteFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create table dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table %s: %w", path, err)
	}

	if err := Write(f, rows); err != nil {
		f.Close()

		return fmt.Errorf("write table %s: %w", path, err)
	}

	return f.Close()
}

// Table is a parsed results table. Cells are kept as text; numeric
// access goes through Numeric.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// ReadFile reads the table at path. A missing file yields ErrInputMissing.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}

		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}

	return t, nil
}

// Read parses CSV from r. The first record is the header; short rows are
// padded so every row spans the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, errors.New("table has no header")
	}

	t := &Table{
		Header: make([]string, len(records[0])),
		Rows:   make([][]string, 0, len(records)-1),
		index:  make(map[string]int, len(records[0])),
	}

	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		t.Header[i] = name

		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}

	for _, rec := range records[1:] {
		row := make([]string, len(t.Header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[name]

	return i, ok
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]

	return ok
}

// Numeric returns the named column coerced to numbers. Cells that do not
// parse, including empty ones, are nil. It reports false if the column
// does not exist.
func (t *Table) Numeric(name string) ([]*float64, bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}

	out := make([]*float64, len(t.Rows))

	for i, row := range t.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		out[i] = &v
	}

	return out, true
}

// Count returns how many cells of the named column hold a number.
func (t *Table) Count(name string) int {
	vals, _ := t.Numeric(name)

	n := 0
	for _, v := range vals {
		if v != nil {
			n++
		}
	}

	return n
}
