package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f9-o/fmutools/pkg/errs"
)

func TestNewDistribution_Quantiles(t *testing.T) {
	tests := []struct {
		name   string
		dist   string
		params []string
		p      float64
		want   float64
	}{
		{"uniform median", "uniform", []string{"0", "10"}, 0.5, 5},
		{"uniform low", "uniform", []string{"2", "4"}, 0.25, 2.5},
		{"normal median", "normal", []string{"3", "2"}, 0.5, 3},
		{"truncated normal median", "normal", []string{"0", "1", "-1", "1"}, 0.5, 0},
		{"loguniform median", "loguniform", []string{"1", "100"}, 0.5, 10},
		{"triangular symmetric", "triangular", []string{"0", "5", "10"}, 0.5, 5},
		{"pert symmetric", "pert", []string{"10", "15", "20"}, 0.5, 15},
		{"degenerate uniform", "uniform", []string{"7", "7"}, 0.9, 7},
		{"zero sd normal", "normal", []string{"4", "0"}, 0.1, 4},
		{"zero sd normal within bounds", "normal", []string{"4", "0", "3", "5"}, 0.9, 4},
		{"const", "const", []string{"1.5"}, 0.3, 1.5},
		{"case insensitive", " Uniform ", []string{"0", "1"}, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDistribution(tt.dist, tt.params)
			require.NoError(t, err)
			v := d.Quantile(tt.p)
			assert.Empty(t, v.Text)
			assert.InDelta(t, tt.want, v.Num, 1e-6)
		})
	}
}

func TestNewDistribution_TruncatedNormalStaysInBounds(t *testing.T) {
	d, err := NewDistribution("normal", []string{"0", "10", "-1", "2"})
	require.NoError(t, err)

	for _, p := range []float64{1e-9, 0.01, 0.5, 0.99, 1 - 1e-9} {
		v := d.Quantile(p).Num
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 2.0)
	}
}

func TestNewDistribution_Discrete(t *testing.T) {
	d, err := NewDistribution("discrete", []string{"low, mid, high"})
	require.NoError(t, err)
	assert.Equal(t, "low", d.Quantile(0.2).String())
	assert.Equal(t, "mid", d.Quantile(0.5).String())
	assert.Equal(t, "high", d.Quantile(0.9).String())

	weighted, err := NewDistribution("discrete", []string{"1,2", "0.9,0.1"})
	require.NoError(t, err)
	assert.Equal(t, "1", weighted.Quantile(0.85).String())
	assert.Equal(t, "2", weighted.Quantile(0.95).String())
}

func TestNewDistribution_ConstText(t *testing.T) {
	d, err := NewDistribution("const", []string{"FAULT_A"})
	require.NoError(t, err)
	assert.Equal(t, "FAULT_A", d.Quantile(0.5).String())
}

func TestNewDistribution_Errors(t *testing.T) {
	tests := []struct {
		name   string
		dist   string
		params []string
		code   errs.ErrorCode
	}{
		{"unknown", "gamma", []string{"1", "2"}, errs.ErrDistUnknown},
		{"too few", "uniform", []string{"1"}, errs.ErrDistParams},
		{"not numeric", "uniform", []string{"a", "2"}, errs.ErrDistParams},
		{"min above max", "uniform", []string{"3", "2"}, errs.ErrDistParams},
		{"negative sd", "normal", []string{"0", "-1"}, errs.ErrDistParams},
		{"half truncation", "normal", []string{"0", "1", "-1"}, errs.ErrDistParams},
		{"zero sd mean outside bounds", "normal", []string{"10", "0", "0", "5"}, errs.ErrDistParams},
		{"zero sd inverted bounds", "normal", []string{"4", "0", "5", "3"}, errs.ErrDistParams},
		{"mode outside", "triangular", []string{"0", "11", "10"}, errs.ErrDistParams},
		{"loguniform nonpositive", "loguniform", []string{"0", "10"}, errs.ErrDistParams},
		{"weight mismatch", "discrete", []string{"a,b", "1"}, errs.ErrDistParams},
		{"const arity", "const", []string{"1", "2"}, errs.ErrDistParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDistribution(tt.dist, tt.params)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValueRound(t *testing.T) {
	assert.Equal(t, "1.23", Value{Num: 1.2345}.Round(2).String())
	assert.Equal(t, "2", Value{Num: 1.5}.Round(0).String())
	assert.Equal(t, "abc", Value{Text: "abc"}.Round(2).String())
}
