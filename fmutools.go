// Package fmutools is the top-level entry point to the fmutools library. It
// re-exports the design matrix, tornado and webviz helpers from
// pkg/sensitivities and the RMS volumetrics reader from pkg/rms, so callers
// only need this one import for the common workflow:
//
//	m := fmutools.NewDesignMatrix()
//	err := m.Generate(ctx, input)
//	summary, err := fmutools.SummarizeDesign(m.Table())
//	res, err := fmutools.CalcTornadoInput(summary, results, tornado.DefaultOptions("STOIIP_OIL"))
package fmutools

import (
	"github.com/f9-o/fmutools/pkg/rms/volumetrics"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
	"github.com/f9-o/fmutools/pkg/sensitivities/webviz"
	"github.com/f9-o/fmutools/pkg/table"
)

// DesignMatrix generates one-by-one design matrices.
type DesignMatrix = design.Matrix

// NewDesignMatrix returns an empty design matrix.
func NewDesignMatrix(opts ...design.Option) *DesignMatrix {
	return design.NewMatrix(opts...)
}

// VolumetricsFuncs groups the RMS volumetrics readers.
type VolumetricsFuncs struct {
	Txt2Table func(path string, opts volumetrics.Options) (*table.Table, error)
	Merge     func(paths map[volumetrics.Phase]string, opts volumetrics.Options) (*table.Table, error)
}

// Volumetrics exposes pkg/rms/volumetrics.
var Volumetrics = VolumetricsFuncs{
	Txt2Table: volumetrics.Txt2Table,
	Merge:     volumetrics.Merge,
}

var (
	// SummarizeDesign groups a design matrix by sensitivity and case.
	SummarizeDesign = design.SummarizeDesign

	// CalcTornadoInput computes tornado plot input from results.
	CalcTornadoInput = tornado.CalcTornadoInput

	// FindCombinations returns the cartesian product of selector values.
	FindCombinations = tornado.FindCombinations

	// AddWebvizTornadoPlots appends a tornado page to a webviz config.
	AddWebvizTornadoPlots = webviz.AddWebvizTornadoPlots

	// Excel2DictDesign reads a design input workbook.
	Excel2DictDesign = design.Excel2DictDesign
)
