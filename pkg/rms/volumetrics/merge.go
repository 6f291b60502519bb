package volumetrics

import (
	"slices"
	"strings"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// Phases is the order in which Merge reads phase reports.
var Phases = []Phase{PhaseOil, PhaseGas, PhaseTotal}

// Merge parses one report per phase and joins them on their identifier
// columns. Rows missing from a phase have empty volume cells.
func Merge(paths map[Phase]string, opts Options) (*table.Table, error) {
	const op = "volumetrics.merge"
	if len(paths) == 0 {
		return nil, errs.Newf(errs.ErrVolMerge, op, "no reports to merge")
	}
	for p := range paths {
		if !slices.Contains(Phases, p) {
			return nil, errs.Newf(errs.ErrVolMerge, op, "unknown phase %q", p)
		}
	}

	var merged *table.Table
	var idCols []string
	index := map[string]int{}

	for _, phase := range Phases {
		path, ok := paths[phase]
		if !ok {
			continue
		}
		o := opts
		o.Phase = phase
		t, err := Txt2Table(path, o)
		if err != nil {
			return nil, err
		}

		ids := identifiers(t, o)
		if merged == nil {
			idCols = ids
			merged = table.New(ids...)
		} else if !slices.Equal(ids, idCols) {
			return nil, errs.Newf(errs.ErrVolMerge, op, "%s report has identifiers %v, expected %v",
				strings.ToLower(string(phase)), ids, idCols).WithResource(path)
		}

		var volCols []string
		for _, c := range t.Columns {
			if !slices.Contains(idCols, c) {
				if merged.Index(c) >= 0 {
					return nil, errs.Newf(errs.ErrVolMerge, op, "column %q appears in more than one report", c).
						WithResource(path)
				}
				volCols = append(volCols, c)
			}
		}
		width := len(merged.Columns)
		merged.Columns = append(merged.Columns, volCols...)
		for i := range merged.Rows {
			merged.Rows[i] = append(merged.Rows[i], make([]string, len(volCols))...)
		}

		for i := range t.Rows {
			key := make([]string, len(idCols))
			for j, c := range idCols {
				key[j] = t.Get(i, c)
			}
			k := strings.Join(key, "\x00")
			ri, ok := index[k]
			if !ok {
				row := make([]string, len(merged.Columns))
				copy(row, key)
				merged.Rows = append(merged.Rows, row)
				ri = len(merged.Rows) - 1
				index[k] = ri
			}
			for j, c := range volCols {
				merged.Rows[ri][width+j] = t.Get(i, c)
			}
		}
	}
	return merged, nil
}

func identifiers(t *table.Table, opts Options) []string {
	var ids []string
	for _, id := range IdentifierColumns {
		if c := opts.identifier(id); t.Index(c) >= 0 {
			ids = append(ids, c)
		}
	}
	return ids
}
