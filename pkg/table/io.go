package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/fileutil"
)

// Sheet is a named table written to one workbook sheet.
type Sheet struct {
	Name  string
	Table *Table
}

// ReadCSV reads a comma-separated table whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errs.New(errs.ErrTableRead, "table.read_csv", err)
	}
	if len(records) == 0 {
		return nil, errs.Newf(errs.ErrTableRead, "table.read_csv", "empty input")
	}

	t := New(trimAll(records[0])...)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, trimAll(rec))
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.ErrTableRead, "table.read_csv", err).WithResource(path)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(path)
		}
		return nil, err
	}
	return t, nil
}

// WriteCSV writes the header and rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSVFile atomically writes the table to path.
func (t *Table) WriteCSVFile(path string) error {
	if err := fileutil.WriteAtomic(path, t.WriteCSV); err != nil {
		return errs.New(errs.ErrTableWrite, "table.write_csv", err).WithResource(path)
	}
	return nil
}

// ReadXLSXSheet reads one sheet of a workbook, or the first sheet when sheet
// is empty. The first non-empty row is the header; blank rows are dropped and
// short rows are padded.
func ReadXLSXSheet(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrTableRead, "table.read_xlsx", err).WithResource(path)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := SheetRows(f, sheet)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrTableRead, "table.read_xlsx")
	}
	return FromRecords(rows)
}

// SheetRows returns the raw string rows of sheet in an open workbook.
func SheetRows(f *excelize.File, sheet string) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, errs.Newf(errs.ErrExcelSheet, "table.sheet_rows", "no sheet %q", sheet).
			WithAdvice("available sheets: " + strings.Join(f.GetSheetList(), ", "))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errs.New(errs.ErrExcelSheet, "table.sheet_rows", err).WithResource(sheet)
	}
	return rows, nil
}

// FromRecords builds a table from raw records, taking the first non-blank
// record as the header.
func FromRecords(records [][]string) (*Table, error) {
	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errs.Newf(errs.ErrTableRead, "table.from_records", "no header row")
	}

	header := trimAll(records[start])
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	t := New(header...)
	for _, rec := range records[start+1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteXLSX atomically writes each sheet into a new workbook at path.
func WriteXLSX(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errs.Newf(errs.ErrTableWrite, "table.write_xlsx", "no sheets to write")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return errs.New(errs.ErrTableWrite, "table.write_xlsx", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return errs.New(errs.ErrTableWrite, "table.write_xlsx", err).WithResource(sh.Name)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}

	if err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return errs.New(errs.ErrTableWrite, "table.write_xlsx", err).WithResource(path)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	write := func(rowIdx int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		vals := make([]any, len(cells))
		for i, c := range cells {
			if v, ok := finite(c); ok {
				vals[i] = v
			} else {
				vals[i] = c
			}
		}
		return f.SetSheetRow(sh.Name, cell, &vals)
	}

	if err := write(1, sh.Table.Columns); err != nil {
		return errs.New(errs.ErrTableWrite, "table.write_sheet", err).WithResource(sh.Name)
	}
	for i, row := range sh.Table.Rows {
		if err := write(i+2, row); err != nil {
			return errs.New(errs.ErrTableWrite, "table.write_sheet", err).WithResource(sh.Name)
		}
	}
	return nil
}

// ReadFile reads a CSV or XLSX table depending on the file extension. sheet is
// only used for workbooks; empty means the first sheet.
func ReadFile(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx", ".xlsm":
		return ReadXLSXSheet(path, sheet)
	default:
		return nil, errs.New(errs.ErrTableRead, "table.read_file",
			errors.New("unsupported file extension")).
			WithResource(path).
			WithAdvice("use a .csv or .xlsx file")
	}
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// String renders the table as CSV, which is convenient in test failures.
func (t *Table) String() string {
	var b strings.Builder
	if err := t.WriteCSV(&b); err != nil {
		return fmt.Sprintf("<table: %v>", err)
	}
	return b.String()
}
