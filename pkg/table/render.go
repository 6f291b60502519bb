package table

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	pretty "github.com/jedib0t/go-pretty/v6/table"

	"github.com/f9-o/fmutools/pkg/errs"
)

// Output formats accepted by Render.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Formats lists every format Render understands.
var Formats = []string{FormatTable, FormatMarkdown, FormatCSV, FormatJSON}

// Render writes the table to w in the requested format.
func (t *Table) Render(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return t.renderJSON(w)
	case FormatCSV:
		return t.WriteCSV(w)
	case FormatMarkdown, "md":
		return t.renderPretty(w, true)
	case FormatTable, "":
		return t.renderPretty(w, false)
	default:
		return errs.Newf(errs.ErrTableFormat, "table.render", "unknown format %q", format)
	}
}

func (t *Table) renderPretty(w io.Writer, markdown bool) error {
	if len(t.Rows) == 0 && !markdown {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	tw := pretty.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(pretty.StyleLight)

	header := make(pretty.Row, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, r := range t.Rows {
		row := make(pretty.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		tw.AppendRow(row)
	}

	if markdown {
		tw.RenderMarkdown()
	} else {
		tw.Render()
	}
	return nil
}

// renderJSON writes an array of objects. A column is numeric only when every
// non-empty cell in it is a finite number; empty cells of numeric columns
// become null.
func (t *Table) renderJSON(w io.Writer) error {
	numeric := make([]bool, len(t.Columns))
	for i := range t.Columns {
		numeric[i] = t.numericColumn(i)
	}

	records := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			switch {
			case !numeric[i]:
				rec[col] = r[i]
			case strings.TrimSpace(r[i]) == "":
				rec[col] = nil
			default:
				rec[col], _ = finite(r[i])
			}
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func (t *Table) numericColumn(i int) bool {
	seen := false
	for _, r := range t.Rows {
		if strings.TrimSpace(r[i]) == "" {
			continue
		}
		if _, ok := finite(r[i]); !ok {
			return false
		}
		seen = true
	}
	return seen
}
