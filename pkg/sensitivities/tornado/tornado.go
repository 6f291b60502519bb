// Package tornado turns one-by-one sensitivity results into tornado plot
// input: per-sensitivity low and high deviations from a reference average.
package tornado

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
	"github.com/f9-o/fmutools/pkg/table"
)

// Scales for Options.Scale.
const (
	ScalePercentage = "percentage"
	ScaleAbsolute   = "absolute"
)

// SelectAll is the selection value that disables filtering on a selector.
const SelectAll = "Total"

// DefaultReference is the sensitivity used as reference unless overridden.
const DefaultReference = "rms_seed"

// Labels written for Monte Carlo sensitivities.
const (
	LabelP90 = "p90"
	LabelP10 = "p10"
)

// Columns is the header of Result.Table.
var Columns = []string{
	"sensname", "low", "high", "leftlabel", "rightlabel",
	"true_low", "true_high", "low_reals", "high_reals",
}

// Options controls CalcTornadoInput.
type Options struct {
	Response  string
	Selectors []string
	// Selection holds the accepted values for each selector, in selector
	// order. A list containing SelectAll accepts every value.
	Selection [][]string
	Reference string
	Scale     string
	CutBySeed bool
	SortSens  bool

	Logger *slog.Logger
}

// DefaultOptions returns options for response with rms_seed as reference,
// percentage scale and sorted sensitivities.
func DefaultOptions(response string) Options {
	return Options{
		Response:  response,
		Reference: DefaultReference,
		Scale:     ScalePercentage,
		SortSens:  true,
	}
}

// Row is one bar of a tornado plot.
type Row struct {
	SensName   string  `json:"sensname"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	LeftLabel  string  `json:"leftlabel"`
	RightLabel string  `json:"rightlabel"`
	TrueLow    float64 `json:"true_low"`
	TrueHigh   float64 `json:"true_high"`
	LowReals   []int   `json:"low_reals"`
	HighReals  []int   `json:"high_reals"`
}

// Span is the width of the bar.
func (r Row) Span() float64 { return math.Abs(r.High - r.Low) }

// Result is the tornado input for one response and selection.
type Result struct {
	Response string  `json:"response"`
	Scale    string  `json:"scale"`
	RefValue float64 `json:"reference_value"`
	Rows     []Row   `json:"rows"`
}

// Table renders the rows with Columns. Realization lists are comma-joined.
func (r *Result) Table() *table.Table {
	t := table.New(Columns...)
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.SensName,
			table.FormatFloat(row.Low),
			table.FormatFloat(row.High),
			row.LeftLabel,
			row.RightLabel,
			table.FormatFloat(row.TrueLow),
			table.FormatFloat(row.TrueHigh),
			joinInts(row.LowReals),
			joinInts(row.HighReals),
		})
	}
	return t
}

// CalcTornadoInput computes tornado rows for opts.Response from results, a
// table with a REAL column, the response column and one column per selector.
func CalcTornadoInput(summary []design.SensSummary, results *table.Table, opts Options) (*Result, error) {
	const op = "tornado.calc"
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Reference == "" {
		opts.Reference = DefaultReference
	}
	if opts.Scale == "" {
		opts.Scale = ScalePercentage
	}
	if opts.Scale != ScalePercentage && opts.Scale != ScaleAbsolute {
		return nil, errs.Newf(errs.ErrTornadoInput, op, "unknown scale %q", opts.Scale).
			WithAdvice("use percentage or absolute")
	}

	values, err := responseByReal(results, opts)
	if err != nil {
		return nil, err
	}

	refIdx := slices.IndexFunc(summary, func(s design.SensSummary) bool { return s.SensName == opts.Reference })
	if refIdx < 0 || len(summary[refIdx].Cases) == 0 {
		return nil, errs.Newf(errs.ErrTornadoReference, op, "reference sensitivity %q is not in the design", opts.Reference).
			WithResource(opts.Reference)
	}
	refVals, _ := collect(values, summary[refIdx].Cases[0].Reals)
	if len(refVals) == 0 {
		return nil, errs.Newf(errs.ErrTornadoReference, op, "no results for reference sensitivity %q", opts.Reference).
			WithResource(opts.Reference)
	}
	ref := mean(refVals)

	res := &Result{Response: opts.Response, Scale: opts.Scale, RefValue: ref}
	for _, s := range summary {
		row, ok := sensRow(s, values, ref)
		if !ok {
			log.Warn("sensitivity has no realizations in the results, skipping",
				"sensname", s.SensName, "response", opts.Response)
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	if opts.Scale == ScalePercentage {
		if ref == 0 {
			return nil, errs.Newf(errs.ErrTornadoReference, op, "reference average is zero, cannot scale to percent").
				WithAdvice("use --scale absolute")
		}
		for i := range res.Rows {
			res.Rows[i].Low *= 100 / ref
			res.Rows[i].High *= 100 / ref
		}
	}

	if opts.CutBySeed {
		res.Rows = cutBySeed(res.Rows, opts.Reference)
	}
	if opts.SortSens {
		slices.SortStableFunc(res.Rows, func(a, b Row) int {
			return cmp.Compare(b.Span(), a.Span())
		})
	}
	return res, nil
}

// responseByReal filters the results by the selection and sums the response
// per realization.
func responseByReal(results *table.Table, opts Options) (map[int]float64, error) {
	const op = "tornado.filter"
	if opts.Response == "" {
		return nil, errs.Newf(errs.ErrTornadoInput, op, "no response given")
	}
	if len(opts.Selectors) != len(opts.Selection) {
		return nil, errs.Newf(errs.ErrTornadoInput, op,
			"%d selectors but %d selections", len(opts.Selectors), len(opts.Selection))
	}
	for _, c := range append([]string{design.ColReal, opts.Response}, opts.Selectors...) {
		if results.Index(c) < 0 {
			return nil, errs.Newf(errs.ErrTornadoInput, op, "results have no column %q", c).
				WithAdvice("available columns: " + strings.Join(results.Columns, ", "))
		}
	}

	type filter struct {
		idx    int
		accept map[string]bool
	}
	var filters []filter
	for i, sel := range opts.Selectors {
		if slices.Contains(opts.Selection[i], SelectAll) {
			continue
		}
		f := filter{idx: results.Index(sel), accept: map[string]bool{}}
		for _, v := range opts.Selection[i] {
			f.accept[strings.TrimSpace(v)] = true
		}
		filters = append(filters, f)
	}

	ri, vi := results.Index(design.ColReal), results.Index(opts.Response)
	out := map[int]float64{}
rows:
	for i, row := range results.Rows {
		for _, f := range filters {
			if !f.accept[strings.TrimSpace(row[f.idx])] {
				continue rows
			}
		}
		real, err := parseReal(row[ri])
		if err != nil {
			return nil, errs.Newf(errs.ErrTornadoInput, op, "row %d: %v", i+1, err)
		}
		v, err := table.ParseFloat(row[vi])
		if err != nil {
			return nil, errs.Newf(errs.ErrTornadoInput, op, "row %d: %v", i+1, err).WithResource(opts.Response)
		}
		out[real] += v
	}
	return out, nil
}

func sensRow(s design.SensSummary, values map[int]float64, ref float64) (Row, bool) {
	row := Row{SensName: s.SensName}

	if s.SensType == design.SensTypeMC && len(s.Cases) > 0 {
		vals, reals := collect(values, s.Cases[0].Reals)
		if len(vals) == 0 {
			return row, false
		}
		sorted := slices.Clone(vals)
		slices.Sort(sorted)
		p90, p10 := percentile(sorted, 10), percentile(sorted, 90)

		row.Low, row.High = p90-ref, p10-ref
		row.TrueLow, row.TrueHigh = p90, p10
		row.LeftLabel, row.RightLabel = LabelP90, LabelP10
		for i, v := range vals {
			if v <= p90 {
				row.LowReals = append(row.LowReals, reals[i])
			}
			if v >= p10 {
				row.HighReals = append(row.HighReals, reals[i])
			}
		}
		return row, true
	}

	type side struct {
		label string
		avg   float64
		reals []int
	}
	var sides []side
	for _, c := range s.Cases {
		vals, reals := collect(values, c.Reals)
		if len(vals) == 0 {
			continue
		}
		sides = append(sides, side{label: c.Name, avg: mean(vals), reals: reals})
	}
	if len(sides) == 0 {
		return row, false
	}

	low := sides[0]
	high := side{avg: ref}
	if len(sides) > 1 {
		high = sides[1]
	}
	if low.avg-ref > high.avg-ref {
		low, high = high, low
	}
	row.Low, row.High = low.avg-ref, high.avg-ref
	row.TrueLow, row.TrueHigh = low.avg, high.avg
	row.LeftLabel, row.RightLabel = low.label, high.label
	row.LowReals, row.HighReals = low.reals, high.reals
	return row, true
}

// cutBySeed drops rows whose bar lies within the reference bar.
func cutBySeed(rows []Row, reference string) []Row {
	i := slices.IndexFunc(rows, func(r Row) bool { return r.SensName == reference })
	if i < 0 {
		return rows
	}
	lo, hi := rows[i].Low, rows[i].High
	return slices.DeleteFunc(rows, func(r Row) bool {
		return r.SensName != reference && r.Low >= lo && r.High <= hi
	})
}

// collect returns the values of reals present in values, with the matching
// realization numbers.
func collect(values map[int]float64, reals []int) ([]float64, []int) {
	var vals []float64
	var found []int
	for _, r := range reals {
		if v, ok := values[r]; ok {
			vals = append(vals, v)
			found = append(found, r)
		}
	}
	return vals, found
}

func mean(v []float64) float64 { return stat.Mean(v, nil) }

// percentile uses linear interpolation between closest ranks of the sorted
// sample: rank = p/100 * (n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := min(lo+1, n-1)
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func parseReal(s string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n, nil
	}
	f, err := table.ParseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errs.Newf(errs.ErrTornadoInput, "tornado.parse_real", "REAL %q is not an integer", s)
	}
	return int(f), nil
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}
