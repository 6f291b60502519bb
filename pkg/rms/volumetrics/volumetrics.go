// Package volumetrics reads volumetric reports exported from RMS as text.
package volumetrics

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// Phase selects the suffix of volume columns.
type Phase string

const (
	PhaseOil   Phase = "OIL"
	PhaseGas   Phase = "GAS"
	PhaseTotal Phase = "TOTAL"
)

// Identifier columns, in the order they appear in merged tables.
const (
	ColZone    = "ZONE"
	ColRegion  = "REGION"
	ColFacies  = "FACIES"
	ColLicense = "LICENSE"
)

// IdentifierColumns lists the non-volume columns.
var IdentifierColumns = []string{ColZone, ColRegion, ColFacies, ColLicense}

var identifierNames = map[string]string{
	"Zone":               ColZone,
	"Region index":       ColRegion,
	"Facies":             ColFacies,
	"License boundaries": ColLicense,
}

var volumeNames = map[string]string{
	"Bulk":         "BULK",
	"Net":          "NET",
	"Hcpv":         "HCPV",
	"Pore":         "PORV",
	"Stoiip":       "STOIIP",
	"Giip":         "GIIP",
	"Assoc.Gas":    "ASSOCIATEDGAS",
	"Assoc.Liquid": "ASSOCIATEDOIL",
}

var fieldSep = regexp.MustCompile(`\s{2,}`)

// Options controls parsing.
type Options struct {
	// Phase suffixes volume columns. Empty guesses it from the file name.
	Phase Phase
	// ColumnRenamer maps report headers to column names. Volume columns still
	// get the phase suffix.
	ColumnRenamer map[string]string
	ZoneRenamer   map[string]string
	RegionRenamer map[string]string

	Logger *slog.Logger
}

// GuessPhase returns the phase named in a report file name.
func GuessPhase(path string) Phase {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "oil"):
		return PhaseOil
	case strings.Contains(base, "gas"):
		return PhaseGas
	default:
		return PhaseTotal
	}
}

// Txt2Table parses the report at path.
func Txt2Table(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.ErrVolHeader, "volumetrics.txt2table", err).WithResource(path)
	}
	defer f.Close()

	if opts.Phase == "" {
		opts.Phase = GuessPhase(path)
	}
	t, err := Parse(f, opts)
	if err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(path)
		}
		return nil, err
	}
	return t, nil
}

// Parse reads a report from r. An empty phase means total.
func Parse(r io.Reader, opts Options) (*table.Table, error) {
	const op = "volumetrics.parse"
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Phase == "" {
		opts.Phase = PhaseTotal
	}

	sc := bufio.NewScanner(r)
	var t *table.Table
	var idents []int
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())

		if t == nil {
			fields := fieldSep.Split(raw, -1)
			if _, ok := identifierNames[fields[0]]; !ok {
				continue
			}
			t, idents = header(fields, opts)
			continue
		}

		if raw == "" {
			if t.Len() > 0 {
				break
			}
			continue
		}
		if strings.Trim(raw, "-= ") == "" {
			continue
		}
		fields := fieldSep.Split(raw, -1)
		if fields[0] == "Totals" {
			continue
		}
		if len(fields) != len(t.Columns) {
			return nil, errs.Newf(errs.ErrVolRow, op, "line %d has %d fields, header has %d",
				line, len(fields), len(t.Columns))
		}
		for i, v := range fields {
			if slices.Contains(idents, i) {
				continue
			}
			if _, err := table.ParseFloat(v); err != nil {
				return nil, errs.Newf(errs.ErrVolRow, op, "line %d: %s: %v", line, t.Columns[i], err)
			}
		}
		rename(t, fields, opts)
		t.Rows = append(t.Rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(errs.ErrVolRow, op, err)
	}
	if t == nil {
		return nil, errs.Newf(errs.ErrVolHeader, op, "no header line found").
			WithAdvice("the header starts with Zone, Region index, Facies or License boundaries")
	}
	log.Debug("volumetrics parsed", "phase", opts.Phase, "rows", t.Len(), "columns", len(t.Columns))
	return t, nil
}

// header builds the output columns and returns the positions of identifier
// columns.
func header(fields []string, opts Options) (*table.Table, []int) {
	cols := make([]string, len(fields))
	var idents []int
	for i, f := range fields {
		if id, ok := identifierNames[f]; ok {
			cols[i] = opts.identifier(id)
			idents = append(idents, i)
			continue
		}
		base, ok := volumeNames[f]
		if !ok {
			base = strings.ToUpper(strings.ReplaceAll(f, " ", "_"))
		}
		if r, ok := opts.ColumnRenamer[f]; ok {
			base = r
		}
		cols[i] = base + "_" + string(opts.Phase)
	}
	return table.New(cols...), idents
}

// identifier returns the output name of the identifier column id after
// ColumnRenamer is applied to its report header.
func (o Options) identifier(id string) string {
	for raw, canonical := range identifierNames {
		if canonical != id {
			continue
		}
		if r, ok := o.ColumnRenamer[raw]; ok {
			return r
		}
	}
	return id
}

func rename(t *table.Table, fields []string, opts Options) {
	if zi := t.Index(opts.identifier(ColZone)); zi >= 0 {
		if v, ok := opts.ZoneRenamer[fields[zi]]; ok {
			fields[zi] = v
		}
	}
	if ri := t.Index(opts.identifier(ColRegion)); ri >= 0 {
		if v, ok := opts.RegionRenamer[fields[ri]]; ok {
			fields[ri] = v
		}
	}
}
