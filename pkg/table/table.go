// Package table implements the small column-ordered string table shared by
// the design, tornado and volumetrics packages, with CSV, XLSX and terminal
// renderings.
package table

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/f9-o/fmutools/pkg/errs"
)

// Table is a header plus rows of string cells. Every row has exactly
// len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// AppendRow adds a row, rejecting one whose width differs from the header.
func (t *Table) AppendRow(cells ...string) error {
	if len(cells) != len(t.Columns) {
		return errs.Newf(errs.ErrTableFormat, "table.append",
			"row has %d cells, header has %d", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, slices.Clone(cells))
	return nil
}

// Index returns the position of col, or -1 when the table has no such column.
func (t *Table) Index(col string) int {
	return slices.Index(t.Columns, col)
}

// Has reports whether every named column exists.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// Column returns a copy of all values in col.
func (t *Table) Column(col string) ([]string, error) {
	idx := t.Index(col)
	if idx < 0 {
		return nil, errs.Newf(errs.ErrTableColumn, "table.column", "no column %q", col).
			WithAdvice("available columns: " + strings.Join(t.Columns, ", "))
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats returns col parsed as float64 values.
func (t *Table) Floats(col string) ([]float64, error) {
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, err := ParseFloat(v)
		if err != nil {
			return nil, errs.Newf(errs.ErrTableFormat, "table.floats",
				"row %d: %v", i, err).WithResource(col)
		}
		out[i] = f
	}
	return out, nil
}

// Get returns the cell at row i in col, or "" when col does not exist.
func (t *Table) Get(i int, col string) string {
	idx := t.Index(col)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][idx]
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	return out
}

// Select returns a new table restricted to cols, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, errs.Newf(errs.ErrTableColumn, "table.select", "no column %q", c)
		}
	}
	out := New(cols...)
	for _, row := range t.Rows {
		sel := make([]string, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		out.Rows = append(out.Rows, sel)
	}
	return out, nil
}

// validate checks that every row matches the header width.
func (t *Table) validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return errs.Newf(errs.ErrTableFormat, "table.validate", "duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return errs.Newf(errs.ErrTableFormat, "table.validate",
				"row %d has %d cells, header has %d", i+1, len(row), len(t.Columns))
		}
	}
	return nil
}

// ParseFloat parses a numeric cell, accepting surrounding whitespace.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// finite parses s as a number that is neither NaN nor infinite.
func finite(s string) (float64, bool) {
	f, err := ParseFloat(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatFloat renders f in plain decimal notation with the fewest digits
// that round-trip.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
