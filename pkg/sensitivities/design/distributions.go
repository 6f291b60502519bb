package design

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// Distribution names.
const (
	DistNormal     = "normal"
	DistLogNormal  = "lognormal"
	DistUniform    = "uniform"
	DistLogUniform = "loguniform"
	DistTriangular = "triangular"
	DistPert       = "pert"
	DistConst      = "const"
	DistDiscrete   = "discrete"
)

// Value is a sampled cell. Text is set for non-numeric outcomes of const and
// discrete distributions.
type Value struct {
	Num  float64
	Text string
}

// String renders the value as a design matrix cell.
func (v Value) String() string {
	if v.Text != "" {
		return v.Text
	}
	return table.FormatFloat(v.Num)
}

// Round rounds a numeric value to the given number of decimals.
func (v Value) Round(decimals int) Value {
	if v.Text != "" {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return Value{Num: math.Round(v.Num*p) / p}
}

// Distribution maps a probability in (0, 1) to a sampled value.
type Distribution interface {
	Quantile(p float64) Value
}

type numericDist struct {
	quantile func(p float64) float64
}

func (d numericDist) Quantile(p float64) Value { return Value{Num: d.quantile(p)} }

type constDist struct{ v Value }

func (d constDist) Quantile(float64) Value { return d.v }

type discreteDist struct {
	outcomes []Value
	cum      []float64
}

func (d discreteDist) Quantile(p float64) Value {
	i, _ := slices.BinarySearch(d.cum, p)
	if i >= len(d.outcomes) {
		i = len(d.outcomes) - 1
	}
	return d.outcomes[i]
}

// NewDistribution builds the named distribution from its textual parameters.
func NewDistribution(name string, params []string) (Distribution, error) {
	op := "design.distribution." + name
	name = strings.ToLower(strings.TrimSpace(name))

	nums := func(min, max int) ([]float64, error) {
		if len(params) < min || len(params) > max {
			if min == max {
				return nil, errs.Newf(errs.ErrDistParams, op, "expects %d parameters, got %d", min, len(params))
			}
			return nil, errs.Newf(errs.ErrDistParams, op, "expects %d to %d parameters, got %d", min, max, len(params))
		}
		out := make([]float64, len(params))
		for i, p := range params {
			f, err := table.ParseFloat(p)
			if err != nil {
				return nil, errs.New(errs.ErrDistParams, op, err)
			}
			out[i] = f
		}
		return out, nil
	}

	switch name {
	case DistNormal:
		v, err := nums(2, 4)
		if err != nil {
			return nil, err
		}
		return newNormal(op, v)

	case DistLogNormal:
		v, err := nums(2, 2)
		if err != nil {
			return nil, err
		}
		if v[1] <= 0 {
			return nil, errs.Newf(errs.ErrDistParams, op, "sigma must be positive, got %g", v[1])
		}
		d := distuv.LogNormal{Mu: v[0], Sigma: v[1]}
		return numericDist{quantile: d.Quantile}, nil

	case DistUniform:
		v, err := nums(2, 2)
		if err != nil {
			return nil, err
		}
		if v[0] > v[1] {
			return nil, errs.Newf(errs.ErrDistParams, op, "min %g exceeds max %g", v[0], v[1])
		}
		if v[0] == v[1] {
			return constDist{v: Value{Num: v[0]}}, nil
		}
		d := distuv.Uniform{Min: v[0], Max: v[1]}
		return numericDist{quantile: d.Quantile}, nil

	case DistLogUniform:
		v, err := nums(2, 2)
		if err != nil {
			return nil, err
		}
		if v[0] <= 0 || v[0] > v[1] {
			return nil, errs.Newf(errs.ErrDistParams, op, "needs 0 < min <= max, got %g, %g", v[0], v[1])
		}
		if v[0] == v[1] {
			return constDist{v: Value{Num: v[0]}}, nil
		}
		d := distuv.Uniform{Min: math.Log(v[0]), Max: math.Log(v[1])}
		return numericDist{quantile: func(p float64) float64 { return math.Exp(d.Quantile(p)) }}, nil

	case DistTriangular:
		v, err := nums(3, 3)
		if err != nil {
			return nil, err
		}
		low, mode, high := v[0], v[1], v[2]
		if err := checkMode(op, low, mode, high); err != nil {
			return nil, err
		}
		if low == high {
			return constDist{v: Value{Num: low}}, nil
		}
		d := distuv.NewTriangle(low, high, mode, nil)
		return numericDist{quantile: d.Quantile}, nil

	case DistPert:
		v, err := nums(3, 4)
		if err != nil {
			return nil, err
		}
		low, mode, high := v[0], v[1], v[2]
		scale := 4.0
		if len(v) == 4 {
			scale = v[3]
		}
		if err := checkMode(op, low, mode, high); err != nil {
			return nil, err
		}
		if scale <= 0 {
			return nil, errs.Newf(errs.ErrDistParams, op, "scale must be positive, got %g", scale)
		}
		if low == high {
			return constDist{v: Value{Num: low}}, nil
		}
		span := high - low
		beta := distuv.Beta{
			Alpha: 1 + scale*(mode-low)/span,
			Beta:  1 + scale*(high-mode)/span,
		}
		return numericDist{quantile: func(p float64) float64 { return low + span*beta.Quantile(p) }}, nil

	case DistConst:
		if len(params) != 1 {
			return nil, errs.Newf(errs.ErrDistParams, op, "expects 1 parameter, got %d", len(params))
		}
		return constDist{v: parseValue(params[0])}, nil

	case DistDiscrete:
		return newDiscrete(op, params)

	default:
		return nil, errs.Newf(errs.ErrDistUnknown, "design.distribution", "unknown distribution %q", name).
			WithAdvice("use one of normal, lognormal, uniform, loguniform, triangular, pert, const, discrete")
	}
}

func newNormal(op string, v []float64) (Distribution, error) {
	mean, sd := v[0], v[1]
	if sd < 0 {
		return nil, errs.Newf(errs.ErrDistParams, op, "sd must not be negative, got %g", sd)
	}
	if len(v) == 3 {
		return nil, errs.Newf(errs.ErrDistParams, op, "truncation needs both min and max")
	}
	if len(v) == 4 && v[2] >= v[3] {
		return nil, errs.Newf(errs.ErrDistParams, op, "truncation min %g must be below max %g", v[2], v[3])
	}
	if sd == 0 {
		if len(v) == 4 && (mean < v[2] || mean > v[3]) {
			return nil, errs.Newf(errs.ErrDistParams, op, "mean %g lies outside truncation interval [%g, %g]", mean, v[2], v[3])
		}
		return constDist{v: Value{Num: mean}}, nil
	}
	d := distuv.Normal{Mu: mean, Sigma: sd}
	if len(v) == 2 {
		return numericDist{quantile: d.Quantile}, nil
	}

	low, high := v[2], v[3]
	plo, phi := d.CDF(low), d.CDF(high)
	if phi-plo <= 0 {
		return nil, errs.Newf(errs.ErrDistParams, op, "truncation interval [%g, %g] has no probability mass", low, high)
	}
	return numericDist{quantile: func(p float64) float64 {
		return d.Quantile(plo + p*(phi-plo))
	}}, nil
}

func newDiscrete(op string, params []string) (Distribution, error) {
	if len(params) < 1 || len(params) > 2 {
		return nil, errs.Newf(errs.ErrDistParams, op, "expects outcomes and optional weights, got %d parameters", len(params))
	}
	raw := splitList(params[0])
	if len(raw) == 0 {
		return nil, errs.Newf(errs.ErrDistParams, op, "no outcomes")
	}

	weights := make([]float64, len(raw))
	if len(params) == 2 {
		ws := splitList(params[1])
		if len(ws) != len(raw) {
			return nil, errs.Newf(errs.ErrDistParams, op, "%d outcomes but %d weights", len(raw), len(ws))
		}
		for i, w := range ws {
			f, err := table.ParseFloat(w)
			if err != nil || f < 0 {
				return nil, errs.Newf(errs.ErrDistParams, op, "invalid weight %q", w)
			}
			weights[i] = f
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, errs.Newf(errs.ErrDistParams, op, "weights sum to zero")
	}

	d := discreteDist{outcomes: make([]Value, len(raw)), cum: make([]float64, len(raw))}
	acc := 0.0
	for i, o := range raw {
		d.outcomes[i] = parseValue(o)
		acc += weights[i] / total
		d.cum[i] = acc
	}
	d.cum[len(d.cum)-1] = 1
	return d, nil
}

func checkMode(op string, low, mode, high float64) error {
	if low > high {
		return errs.Newf(errs.ErrDistParams, op, "min %g exceeds max %g", low, high)
	}
	if mode < low || mode > high {
		return errs.Newf(errs.ErrDistParams, op, "mode %g outside [%g, %g]", mode, low, high)
	}
	return nil
}

// parseValue keeps numbers numeric and everything else as text.
func parseValue(s string) Value {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{Num: f}
	}
	return Value{Text: s}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
