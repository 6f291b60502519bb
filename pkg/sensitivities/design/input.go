// Package design generates one-by-one sensitivity design matrices and
// summarizes existing ones.
//
// A design is described by an Input, loaded from YAML with LoadInput or from
// an Excel workbook with Excel2DictDesign. Matrix.Generate turns it into
// realization rows (REAL, SENSNAME, SENSCASE, RMS_SEED and one column per
// parameter) that can be written as XLSX or CSV.
package design

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/fileutil"
)

// Sensitivity types.
const (
	TypeSeed       = "seed"
	TypeScenario   = "scenario"
	TypeDist       = "dist"
	TypeRef        = "ref"
	TypeBackground = "background"
	TypeExtern     = "extern"
)

// DesignTypeOneByOne is the only supported design type.
const DesignTypeOneByOne = "onebyone"

// Seed modes for Input.Seeds. Any other value is a path to a seed file.
const (
	SeedsDefault = "default"
	SeedsNone    = "none"
)

// Input is the full description of a design, the "design dict".
type Input struct {
	DesignType       string        `yaml:"designtype"`
	Repeats          int           `yaml:"repeats"`
	Seeds            string        `yaml:"seeds,omitempty"`
	DistributionSeed *int64        `yaml:"distribution_seed,omitempty"`
	StartRealNum     int           `yaml:"startrealnum,omitempty"`
	Background       *Background   `yaml:"background,omitempty"`
	DefaultValues    []ParamValue  `yaml:"defaultvalues"`
	Sensitivities    []Sensitivity `yaml:"sensitivities"`

	// BaseDir resolves relative seed and extern file paths.
	BaseDir string `yaml:"-"`
}

// Sensitivity is one named block of realizations in a one-by-one design.
type Sensitivity struct {
	Name         string       `yaml:"name"`
	Type         string       `yaml:"type"`
	NumReal      int          `yaml:"numreal,omitempty"`
	Parameters   []ParamDist  `yaml:"parameters,omitempty"`
	Cases        []Case       `yaml:"cases,omitempty"`
	ExternFile   string       `yaml:"extern_file,omitempty"`
	Correlations *Correlation `yaml:"correlations,omitempty"`
}

// ParamDist assigns a distribution to a parameter.
type ParamDist struct {
	Name     string   `yaml:"name"`
	Dist     string   `yaml:"dist,omitempty"`
	Params   []string `yaml:"params,omitempty"`
	Decimals *int     `yaml:"decimals,omitempty"`
}

// ParamValue is a fixed parameter value.
type ParamValue struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Case is one scenario of a scenario sensitivity.
type Case struct {
	Name   string       `yaml:"name"`
	Values []ParamValue `yaml:"values"`
}

// Background describes values used for parameters a sensitivity does not set.
// Either Parameters (sampled) or ExternFile (read) is used.
type Background struct {
	Parameters   []ParamDist  `yaml:"parameters,omitempty"`
	ExternFile   string       `yaml:"extern_file,omitempty"`
	Correlations *Correlation `yaml:"correlations,omitempty"`
}

// Correlation is a correlation matrix between named parameters. A matrix
// given as a lower triangle is mirrored.
type Correlation struct {
	Parameters []string    `yaml:"parameters"`
	Matrix     [][]float64 `yaml:"matrix"`
}

// LoadInput reads a YAML design input. Relative file references resolve
// against the input file's directory.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrDesignInput, "design.load_input", err).WithResource(path)
	}

	var in Input
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return nil, errs.New(errs.ErrDesignInput, "design.load_input", err).WithResource(path)
	}
	in.BaseDir = filepath.Dir(path)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// WriteYAML atomically writes the input as YAML.
func (in *Input) WriteYAML(path string) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return errs.New(errs.ErrDesignInput, "design.write_yaml", err)
	}
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Validate checks the structural rules of the input before generation.
func (in *Input) Validate() error {
	const op = "design.validate"

	if !strings.EqualFold(in.DesignType, DesignTypeOneByOne) {
		return errs.Newf(errs.ErrDesignInput, op, "unsupported designtype %q", in.DesignType).
			WithAdvice("only designtype 'onebyone' is supported")
	}
	if in.Repeats <= 0 {
		return errs.Newf(errs.ErrDesignInput, op, "repeats must be positive, got %d", in.Repeats)
	}
	if in.StartRealNum < 0 {
		return errs.Newf(errs.ErrDesignInput, op, "startrealnum must not be negative")
	}
	if len(in.Sensitivities) == 0 {
		return errs.Newf(errs.ErrDesignInput, op, "no sensitivities defined")
	}

	seen := map[string]bool{}
	for _, dv := range in.DefaultValues {
		if dv.Name == "" {
			return errs.Newf(errs.ErrDesignDefaults, op, "default value with empty name")
		}
		if seen[dv.Name] {
			return errs.Newf(errs.ErrDesignDefaults, op, "duplicate default value for %q", dv.Name)
		}
		seen[dv.Name] = true
	}

	names := map[string]bool{}
	for _, s := range in.Sensitivities {
		if s.Name == "" {
			return errs.Newf(errs.ErrDesignInput, op, "sensitivity with empty name")
		}
		if names[s.Name] {
			return errs.Newf(errs.ErrDesignInput, op, "duplicate sensitivity name %q", s.Name)
		}
		names[s.Name] = true
		if err := s.validate(in); err != nil {
			return err
		}
	}

	if in.Background != nil {
		bg := in.Background
		if len(bg.Parameters) == 0 && bg.ExternFile == "" {
			return errs.Newf(errs.ErrDesignInput, op, "background needs parameters or extern_file")
		}
		if len(bg.Parameters) > 0 && bg.ExternFile != "" {
			return errs.Newf(errs.ErrDesignInput, op, "background has both parameters and extern_file")
		}
		for _, p := range bg.Parameters {
			if _, err := NewDistribution(p.Dist, p.Params); err != nil {
				return errs.Wrap(err, errs.ErrDistParams, op+".background."+p.Name)
			}
		}
	}
	return nil
}

func (s *Sensitivity) validate(in *Input) error {
	op := "design.validate." + s.Name

	if s.NumReal < 0 {
		return errs.Newf(errs.ErrDesignInput, op, "numreal must not be negative")
	}

	switch strings.ToLower(s.Type) {
	case TypeSeed, TypeRef:
	case TypeBackground:
		if in.Background == nil {
			return errs.Newf(errs.ErrDesignInput, op, "background sensitivity without a background definition")
		}
	case TypeScenario:
		if len(s.Cases) == 0 || len(s.Cases) > 2 {
			return errs.Newf(errs.ErrDesignInput, op, "scenario needs one or two cases, got %d", len(s.Cases))
		}
		for _, c := range s.Cases {
			if c.Name == "" {
				return errs.Newf(errs.ErrDesignInput, op, "scenario case with empty name")
			}
			if len(c.Values) == 0 {
				return errs.Newf(errs.ErrDesignInput, op, "scenario case %q sets no parameters", c.Name)
			}
		}
		if len(s.Cases) == 2 && s.Cases[0].Name == s.Cases[1].Name {
			return errs.Newf(errs.ErrDesignInput, op, "scenario cases share the name %q", s.Cases[0].Name)
		}
	case TypeDist:
		if len(s.Parameters) == 0 {
			return errs.Newf(errs.ErrDesignInput, op, "dist sensitivity has no parameters")
		}
		for _, p := range s.Parameters {
			if _, err := NewDistribution(p.Dist, p.Params); err != nil {
				return errs.Wrap(err, errs.ErrDistParams, op+"."+p.Name)
			}
		}
	case TypeExtern:
		if s.ExternFile == "" {
			return errs.Newf(errs.ErrDesignInput, op, "extern sensitivity has no extern_file")
		}
	default:
		return errs.Newf(errs.ErrDesignInput, op, "unknown sensitivity type %q", s.Type).
			WithAdvice("use one of seed, scenario, dist, ref, background, extern")
	}
	return nil
}

// numReal returns the number of realizations per case of s.
func (in *Input) numReal(s Sensitivity) int {
	if s.NumReal > 0 {
		return s.NumReal
	}
	if strings.EqualFold(s.Type, TypeRef) {
		return 1
	}
	return in.Repeats
}

// maxRealisations is the largest realization count any sensitivity needs,
// which sizes the seed list and the background sample.
func (in *Input) maxRealisations() int {
	m := in.Repeats
	for _, s := range in.Sensitivities {
		if n := in.numReal(s); n > m {
			m = n
		}
	}
	return m
}

// resolve makes a file reference relative to the input's base directory.
func (in *Input) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || in.BaseDir == "" {
		return path
	}
	return filepath.Join(in.BaseDir, path)
}

func (p ParamDist) String() string {
	return fmt.Sprintf("%s ~ %s(%s)", p.Name, p.Dist, strings.Join(p.Params, ", "))
}
