package design

import (
	"slices"
	"strconv"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// Sensitivity types in a design summary.
const (
	SensTypeMC     = "mc"
	SensTypeScalar = "scalar"
)

// SummaryColumns is the header of a design summary table.
var SummaryColumns = []string{
	"sensno", "sensname", "senstype",
	"casename1", "startreal1", "endreal1",
	"casename2", "startreal2", "endreal2",
}

// SensCase is one SENSCASE of a summarized sensitivity.
type SensCase struct {
	Name      string `json:"name"`
	StartReal int    `json:"startreal"`
	EndReal   int    `json:"endreal"`
	Reals     []int  `json:"reals"`
}

// SensSummary describes one sensitivity of a design matrix.
type SensSummary struct {
	SensNo   int        `json:"sensno"`
	SensName string     `json:"sensname"`
	SensType string     `json:"senstype"`
	Cases    []SensCase `json:"cases"`
}

// HasReal reports whether real belongs to any case of the sensitivity.
func (s SensSummary) HasReal(real int) bool {
	for _, c := range s.Cases {
		if slices.Contains(c.Reals, real) {
			return true
		}
	}
	return false
}

// SummarizeDesign groups the rows of a design matrix by sensitivity and case.
func SummarizeDesign(t *table.Table) ([]SensSummary, error) {
	const op = "design.summarize"
	if !t.Has(ColReal, ColSensName, ColSensCase) {
		return nil, errs.Newf(errs.ErrDesignSummary, op, "design needs columns %s, %s and %s",
			ColReal, ColSensName, ColSensCase)
	}
	ri, ni, ci := t.Index(ColReal), t.Index(ColSensName), t.Index(ColSensCase)

	var out []SensSummary
	pos := map[string]int{}
	for i, row := range t.Rows {
		real, err := strconv.Atoi(row[ri])
		if err != nil {
			f, ferr := table.ParseFloat(row[ri])
			if ferr != nil || f != float64(int(f)) {
				return nil, errs.Newf(errs.ErrDesignSummary, op, "row %d: REAL %q is not an integer", i+1, row[ri])
			}
			real = int(f)
		}
		name, cname := row[ni], row[ci]
		if name == "" {
			return nil, errs.Newf(errs.ErrDesignSummary, op, "row %d: empty SENSNAME", i+1)
		}

		si, ok := pos[name]
		if !ok {
			si = len(out)
			pos[name] = si
			out = append(out, SensSummary{SensNo: si, SensName: name})
		}
		s := &out[si]

		cidx := slices.IndexFunc(s.Cases, func(c SensCase) bool { return c.Name == cname })
		if cidx < 0 {
			if len(s.Cases) == 2 {
				return nil, errs.Newf(errs.ErrDesignSummary, op,
					"sensitivity %q has more than two cases", name).
					WithAdvice("a one-by-one sensitivity has at most two cases")
			}
			s.Cases = append(s.Cases, SensCase{Name: cname, StartReal: real, EndReal: real})
			cidx = len(s.Cases) - 1
		}
		c := &s.Cases[cidx]
		c.Reals = append(c.Reals, real)
		c.StartReal = min(c.StartReal, real)
		c.EndReal = max(c.EndReal, real)
	}

	for i := range out {
		out[i].SensType = SensTypeScalar
		if len(out[i].Cases) == 1 && out[i].Cases[0].Name == CaseMonteCarlo {
			out[i].SensType = SensTypeMC
		}
	}
	return out, nil
}

// SummarizeDesignFile reads a design matrix from a CSV or XLSX file and
// summarizes it. An empty sheet selects DesignSheet01 when present.
func SummarizeDesignFile(path, sheet string) ([]SensSummary, error) {
	t, err := readDesignTable(path, sheet)
	if err != nil {
		return nil, err
	}
	s, err := SummarizeDesign(t)
	if err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(path)
		}
		return nil, err
	}
	return s, nil
}

func readDesignTable(path, sheet string) (*table.Table, error) {
	if sheet == "" {
		t, err := table.ReadFile(path, DesignSheet)
		if err == nil || !errs.IsCode(err, errs.ErrExcelSheet) {
			return t, err
		}
	}
	return table.ReadFile(path, sheet)
}

// SummaryTable renders summaries with SummaryColumns. Cells of a missing
// second case are empty.
func SummaryTable(sums []SensSummary) *table.Table {
	t := table.New(SummaryColumns...)
	for _, s := range sums {
		row := []string{strconv.Itoa(s.SensNo), s.SensName, s.SensType}
		for i := 0; i < 2; i++ {
			if i < len(s.Cases) {
				c := s.Cases[i]
				row = append(row, c.Name, strconv.Itoa(c.StartReal), strconv.Itoa(c.EndReal))
			} else {
				row = append(row, "", "", "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ReadSummaryTable parses a table written by SummaryTable. Realizations of
// each case are taken as the contiguous range from start to end.
func ReadSummaryTable(t *table.Table) ([]SensSummary, error) {
	const op = "design.read_summary"
	if !t.Has(SummaryColumns[:6]...) {
		return nil, errs.Newf(errs.ErrDesignSummary, op, "summary table needs columns %v", SummaryColumns)
	}

	atoi := func(i int, col string) (int, error) {
		v := t.Get(i, col)
		n, err := strconv.Atoi(v)
		if err != nil {
			f, ferr := table.ParseFloat(v)
			if ferr != nil {
				return 0, errs.Newf(errs.ErrDesignSummary, op, "row %d: %s %q is not an integer", i+1, col, v)
			}
			n = int(f)
		}
		return n, nil
	}

	out := make([]SensSummary, 0, t.Len())
	for i := range t.Rows {
		no, err := atoi(i, "sensno")
		if err != nil {
			return nil, err
		}
		s := SensSummary{SensNo: no, SensName: t.Get(i, "sensname"), SensType: t.Get(i, "senstype")}
		if s.SensType != SensTypeMC && s.SensType != SensTypeScalar {
			return nil, errs.Newf(errs.ErrDesignSummary, op, "row %d: unknown senstype %q", i+1, s.SensType)
		}
		for _, n := range []string{"1", "2"} {
			name := t.Get(i, "casename"+n)
			if name == "" {
				continue
			}
			start, err := atoi(i, "startreal"+n)
			if err != nil {
				return nil, err
			}
			end, err := atoi(i, "endreal"+n)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, errs.Newf(errs.ErrDesignSummary, op, "row %d: endreal%s before startreal%s", i+1, n, n)
			}
			c := SensCase{Name: name, StartReal: start, EndReal: end}
			for r := start; r <= end; r++ {
				c.Reals = append(c.Reals, r)
			}
			s.Cases = append(s.Cases, c)
		}
		if len(s.Cases) == 0 {
			return nil, errs.Newf(errs.ErrDesignSummary, op, "row %d: sensitivity %q has no cases", i+1, s.SensName)
		}
		out = append(out, s)
	}
	return out, nil
}
