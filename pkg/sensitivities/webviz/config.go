// Package webviz adds tornado plot pages to a webviz configuration.
package webviz

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/fileutil"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
)

// Config is a webviz configuration. Keys this package does not use are kept
// in Extra and written back unchanged.
type Config struct {
	Title string         `yaml:"title"`
	Pages []Page         `yaml:"pages"`
	Extra map[string]any `yaml:",inline"`
}

// Page is one webviz page. Content items are markdown strings or single-key
// maps naming a plugin.
type Page struct {
	Title   string         `yaml:"title"`
	Content []any          `yaml:"content"`
	Extra   map[string]any `yaml:",inline"`
}

// TornadoPlot is the content element of a tornado chart.
type TornadoPlot struct {
	Data           string  `yaml:"data"`
	ReferenceValue float64 `yaml:"reference_value"`
	Scale          string  `yaml:"scale"`
	Response       string  `yaml:"response"`
}

// TornadoConfig describes which tornado plots to add.
type TornadoConfig struct {
	Title         string     `yaml:"title"`
	DesignSummary string     `yaml:"designsummary,omitempty"`
	DesignMatrix  string     `yaml:"designmatrix,omitempty"`
	Sheet         string     `yaml:"sheet,omitempty"`
	Results       string     `yaml:"results"`
	Selectors     []string   `yaml:"selectors,omitempty"`
	Selections    [][]string `yaml:"selections,omitempty"`
	Responses     []string   `yaml:"responses"`
	Reference     string     `yaml:"reference,omitempty"`
	Scale         string     `yaml:"scale,omitempty"`
	CutBySeed     bool       `yaml:"cutbyseed,omitempty"`
	SortSens      *bool      `yaml:"sortsens,omitempty"`
	OutputDir     string     `yaml:"outputdir,omitempty"`

	baseDir string
}

type tornadoFile struct {
	TornadoPlots *TornadoConfig `yaml:"tornadoplots"`
}

// LoadConfig reads a webviz configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrWebvizConfig, "webviz.load_config", err).WithResource(path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New(errs.ErrWebvizConfig, "webviz.load_config", err).WithResource(path)
	}
	return &cfg, nil
}

// WriteConfig atomically writes cfg as YAML.
func WriteConfig(path string, cfg *Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errs.New(errs.ErrWebvizConfig, "webviz.write_config", err).WithResource(path)
	}
	if err := enc.Close(); err != nil {
		return errs.New(errs.ErrWebvizConfig, "webviz.write_config", err).WithResource(path)
	}
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// LoadTornadoConfig reads the tornadoplots section of path. Relative paths
// in it resolve against the file's directory.
func LoadTornadoConfig(path string) (*TornadoConfig, error) {
	const op = "webviz.load_tornado_config"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrWebvizConfig, op, err).WithResource(path)
	}
	var f tornadoFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errs.New(errs.ErrWebvizConfig, op, err).WithResource(path)
	}
	if f.TornadoPlots == nil {
		return nil, errs.Newf(errs.ErrWebvizConfig, op, "no tornadoplots section").WithResource(path)
	}
	tc := f.TornadoPlots
	tc.baseDir = filepath.Dir(path)
	if err := tc.Validate(); err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(path)
		}
		return nil, err
	}
	return tc, nil
}

// Validate checks that the configuration names a design, results and
// responses, and that selectors and selections line up.
func (tc *TornadoConfig) Validate() error {
	const op = "webviz.tornado_config"
	switch {
	case tc.DesignSummary == "" && tc.DesignMatrix == "":
		return errs.Newf(errs.ErrWebvizConfig, op, "needs designsummary or designmatrix")
	case tc.DesignSummary != "" && tc.DesignMatrix != "":
		return errs.Newf(errs.ErrWebvizConfig, op, "designsummary and designmatrix are mutually exclusive")
	case tc.Results == "":
		return errs.Newf(errs.ErrWebvizConfig, op, "no results file")
	case len(tc.Responses) == 0:
		return errs.Newf(errs.ErrWebvizConfig, op, "no responses")
	case len(tc.Selectors) != len(tc.Selections):
		return errs.Newf(errs.ErrWebvizConfig, op, "%d selectors but %d selections",
			len(tc.Selectors), len(tc.Selections))
	}
	if tc.Scale != "" && tc.Scale != tornado.ScalePercentage && tc.Scale != tornado.ScaleAbsolute {
		return errs.Newf(errs.ErrWebvizConfig, op, "unknown scale %q", tc.Scale)
	}
	return nil
}

func (tc *TornadoConfig) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || tc.baseDir == "" {
		return p
	}
	return filepath.Join(tc.baseDir, p)
}

// options returns tornado options for one response and selection.
func (tc *TornadoConfig) options(response string, selection [][]string) tornado.Options {
	o := tornado.DefaultOptions(response)
	if tc.Reference != "" {
		o.Reference = tc.Reference
	}
	if tc.Scale != "" {
		o.Scale = tc.Scale
	}
	if tc.SortSens != nil {
		o.SortSens = *tc.SortSens
	}
	o.CutBySeed = tc.CutBySeed
	o.Selectors = tc.Selectors
	o.Selection = selection
	return o
}
