package design

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/f9-o/fmutools/pkg/errs"
)

// minEigenvalue is the floor applied when repairing a correlation matrix that
// is not positive definite.
const minEigenvalue = 1e-8

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// sampler draws Latin hypercube samples from a seeded generator.
type sampler struct {
	rng *rand.Rand
	log *slog.Logger
}

func newSampler(seed *int64, log *slog.Logger) *sampler {
	var s uint64
	if seed != nil {
		s = uint64(*seed)
	} else {
		s = rand.Uint64()
	}
	return &sampler{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)), log: log}
}

// lhs returns n stratified uniforms in (0, 1), one per stratum, shuffled.
func (s *sampler) lhs(n int) []float64 {
	u := make([]float64, n)
	for i := range u {
		u[i] = (float64(i) + s.uniform()) / float64(n)
	}
	s.rng.Shuffle(n, func(i, j int) { u[i], u[j] = u[j], u[i] })
	return u
}

// uniform returns a draw in the open interval (0, 1).
func (s *sampler) uniform() float64 {
	for {
		if u := s.rng.Float64(); u > 0 {
			return u
		}
	}
}

// sample draws n values for each parameter. Parameters named in corr are
// drawn jointly so their normal scores carry the requested correlation.
func (s *sampler) sample(op string, params []ParamDist, corr *Correlation, n int) ([][]Value, error) {
	dists := make([]Distribution, len(params))
	for i, p := range params {
		d, err := NewDistribution(p.Dist, p.Params)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrDistParams, op+"."+p.Name)
		}
		dists[i] = d
	}

	uniforms := make([][]float64, len(params))
	if corr != nil {
		correlated, err := s.correlatedUniforms(op, params, corr, n)
		if err != nil {
			return nil, err
		}
		for i := range params {
			uniforms[i] = correlated[params[i].Name]
		}
	}
	for i := range params {
		if uniforms[i] == nil {
			uniforms[i] = s.lhs(n)
		}
	}

	out := make([][]Value, n)
	for k := 0; k < n; k++ {
		out[k] = make([]Value, len(params))
		for i, p := range params {
			v := dists[i].Quantile(uniforms[i][k])
			if p.Decimals != nil {
				v = v.Round(*p.Decimals)
			}
			out[k][i] = v
		}
	}
	return out, nil
}

// correlatedUniforms maps Latin hypercube normal scores through the Cholesky
// factor of the correlation matrix and back to uniforms.
func (s *sampler) correlatedUniforms(op string, params []ParamDist, corr *Correlation, n int) (map[string][]float64, error) {
	m, err := s.correlationMatrix(op, params, corr)
	if err != nil {
		return nil, err
	}
	k := len(corr.Parameters)

	var chol mat.Cholesky
	if ok := chol.Factorize(m); !ok {
		return nil, errs.Newf(errs.ErrCorrelation, op, "correlation matrix could not be factorized")
	}
	var lower mat.TriDense
	chol.LTo(&lower)

	scores := mat.NewDense(n, k, nil)
	for j := 0; j < k; j++ {
		u := s.lhs(n)
		for i := 0; i < n; i++ {
			scores.Set(i, j, stdNormal.Quantile(u[i]))
		}
	}

	var z mat.Dense
	z.Mul(scores, lower.T())

	out := make(map[string][]float64, k)
	for j, name := range corr.Parameters {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = clampOpen(stdNormal.CDF(z.At(i, j)))
		}
		out[name] = col
	}
	return out, nil
}

// correlationMatrix validates corr against params and returns a symmetric
// positive definite matrix, repairing it when necessary.
func (s *sampler) correlationMatrix(op string, params []ParamDist, corr *Correlation) (*mat.SymDense, error) {
	op += ".correlations"
	k := len(corr.Parameters)
	if k == 0 {
		return nil, errs.Newf(errs.ErrCorrelation, op, "no parameters")
	}
	if len(corr.Matrix) != k {
		return nil, errs.Newf(errs.ErrCorrelation, op, "matrix has %d rows for %d parameters", len(corr.Matrix), k)
	}

	seen := map[string]bool{}
	for _, name := range corr.Parameters {
		if seen[name] {
			return nil, errs.Newf(errs.ErrCorrelation, op, "parameter %q listed twice", name)
		}
		seen[name] = true
		if !slices.ContainsFunc(params, func(p ParamDist) bool { return p.Name == name }) {
			return nil, errs.Newf(errs.ErrCorrelation, op, "parameter %q is not part of the sensitivity", name)
		}
	}

	m := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		if len(corr.Matrix[i]) != k && len(corr.Matrix[i]) != i+1 {
			return nil, errs.Newf(errs.ErrCorrelation, op, "row %d has %d entries, want %d", i, len(corr.Matrix[i]), k)
		}
	}
	at := func(i, j int) float64 {
		if j < len(corr.Matrix[i]) {
			return corr.Matrix[i][j]
		}
		return 0
	}
	// a full matrix is symmetric or has one triangle left at zero
	lowerZero, upperZero := true, true
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			lowerZero = lowerZero && at(i, j) == 0
			upperZero = upperZero && at(j, i) == 0
		}
	}
	for i := 0; i < k; i++ {
		if d := at(i, i); d != 1 {
			return nil, errs.Newf(errs.ErrCorrelation, op, "diagonal entry %d is %g, want 1", i, d)
		}
		m.SetSym(i, i, 1)
		for j := 0; j < i; j++ {
			lo, up := at(i, j), at(j, i)
			v := lo
			switch {
			case lo == up, upperZero:
			case lowerZero:
				v = up
			default:
				return nil, errs.Newf(errs.ErrCorrelation, op,
					"entries (%d,%d)=%g and (%d,%d)=%g disagree", i, j, lo, j, i, up)
			}
			if v < -1 || v > 1 {
				return nil, errs.Newf(errs.ErrCorrelation, op, "entry (%d,%d)=%g outside [-1, 1]", i, j, v)
			}
			m.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(m) {
		return m, nil
	}

	s.log.Warn("correlation matrix is not positive definite, using nearest valid matrix",
		"op", op, "parameters", corr.Parameters)
	fixed, err := nearestCorrelation(m)
	if err != nil {
		return nil, errs.New(errs.ErrCorrelation, op, err)
	}
	return fixed, nil
}

// nearestCorrelation clips negative eigenvalues and rescales to a unit
// diagonal.
func nearestCorrelation(m *mat.SymDense) (*mat.SymDense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, fmt.Errorf("eigen decomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	k := len(vals)
	for i, v := range vals {
		vals[i] = math.Max(v, minEigenvalue)
	}

	var scaled mat.Dense
	scaled.Apply(func(_, j int, v float64) float64 { return v * vals[j] }, &vecs)
	var full mat.Dense
	full.Mul(&scaled, vecs.T())

	out := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			v := full.At(i, j) / math.Sqrt(full.At(i, i)*full.At(j, j))
			out.SetSym(i, j, v)
		}
	}
	return out, nil
}

// clampOpen keeps a probability strictly inside (0, 1) so quantiles stay
// finite.
func clampOpen(p float64) float64 {
	const eps = 1e-12
	return math.Min(math.Max(p, eps), 1-eps)
}
