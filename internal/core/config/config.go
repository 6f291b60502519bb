// Package config provides the fmutools configuration loader.
// Config is loaded by merging fmutools.yaml → ~/.fmutools/config.yaml → FMUTOOLS_* env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
	"github.com/f9-o/fmutools/pkg/table"
)

// ProjectFile is the project configuration discovered upward from the CWD.
const ProjectFile = "fmutools.yaml"

// EnvPrefix prefixes environment overrides: FMUTOOLS_LOG_LEVEL → log.level.
const EnvPrefix = "FMUTOOLS"

// Defaults contains factory-default values applied before any config file is loaded.
var Defaults = map[string]any{
	"project.name":          "fmu-project",
	"log.level":             "info",
	"log.format":            "text",
	"design.sheet":          design.DesignSheet,
	"design.defaults_sheet": design.DefaultsSheet,
	"design.general_sheet":  design.DefaultSheetNames.General,
	"design.input_sheet":    design.DefaultSheetNames.Design,
	"design.defaultvalues":  design.DefaultSheetNames.Defaults,
	"tornado.reference":     tornado.DefaultReference,
	"tornado.scale":         tornado.ScalePercentage,
	"tornado.cutbyseed":     false,
	"tornado.sortsens":      true,
	"output.format":         table.FormatTable,
	"state.path":            "",
}

// ─────────────────────────────────────────────────────────────────────────────
// Config types
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully-decoded project configuration.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Log     LogConfig     `mapstructure:"log"`
	Design  DesignConfig  `mapstructure:"design"`
	Tornado TornadoConfig `mapstructure:"tornado"`
	Output  OutputConfig  `mapstructure:"output"`
	State   StateConfig   `mapstructure:"state"`

	// File is the project config file that was merged, if any.
	File string `mapstructure:"-"`
}

// ProjectConfig holds project-level metadata.
type ProjectConfig struct {
	Name string `mapstructure:"name"`
}

// LogConfig controls logging behaviour.
type LogConfig struct {
	Level  string `mapstructure:"level"` // debug | info | warn | error
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"` // json | text
}

// DesignConfig holds sheet names for design workbooks.
type DesignConfig struct {
	Sheet         string `mapstructure:"sheet"`          // design matrix sheet
	DefaultsSheet string `mapstructure:"defaults_sheet"` // default values sheet in generated designs
	GeneralSheet  string `mapstructure:"general_sheet"`  // input workbook: general_input
	InputSheet    string `mapstructure:"input_sheet"`    // input workbook: designinput
	DefaultValues string `mapstructure:"defaultvalues"`  // input workbook: defaultvalues
}

// TornadoConfig holds tornado calculation defaults.
type TornadoConfig struct {
	Reference string `mapstructure:"reference"`
	Scale     string `mapstructure:"scale"` // percentage | absolute
	CutBySeed bool   `mapstructure:"cutbyseed"`
	SortSens  bool   `mapstructure:"sortsens"`
}

// OutputConfig controls terminal rendering of tables.
type OutputConfig struct {
	Format string `mapstructure:"format"` // table | markdown | csv | json
}

// StateConfig locates the run history database.
type StateConfig struct {
	Path string `mapstructure:"path"` // empty = ~/.fmutools/state.db
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

// Load discovers and loads the configuration, walking up directories to find
// fmutools.yaml, then merging it with the global config and environment variables.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()

	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load global config (~/.fmutools/config.yaml) if it exists
	globalCfg := filepath.Join(Home(), "config.yaml")
	if _, err := os.Stat(globalCfg); err == nil {
		v.SetConfigFile(globalCfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.New(errs.ErrConfig, "config.load", fmt.Errorf("read global config: %w", err)).
				WithResource(globalCfg)
		}
	}

	projectFile := explicitPath
	if projectFile == "" {
		if path, err := discoverProjectConfig(); err == nil {
			projectFile = path
		}
	}
	if projectFile != "" {
		v.SetConfigFile(projectFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, errs.New(errs.ErrConfig, "config.load", fmt.Errorf("read project config: %w", err)).
				WithResource(projectFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.New(errs.ErrConfig, "config.load", fmt.Errorf("unmarshal config: %w", err))
	}
	cfg.File = projectFile
	cfg.State.Path = os.ExpandEnv(cfg.State.Path)
	cfg.Log.File = os.ExpandEnv(cfg.Log.File)

	if err := validate(&cfg); err != nil {
		return nil, errs.New(errs.ErrConfig, "config.validate", err).WithResource(projectFile)
	}
	return &cfg, nil
}

// SheetNames returns the configured design input workbook sheet names.
func (c *Config) SheetNames() design.SheetNames {
	return design.SheetNames{
		General:  c.Design.GeneralSheet,
		Design:   c.Design.InputSheet,
		Defaults: c.Design.DefaultValues,
	}
}

// TornadoOptions returns tornado options for response with the configured defaults.
func (c *Config) TornadoOptions(response string) tornado.Options {
	o := tornado.DefaultOptions(response)
	o.Reference = c.Tornado.Reference
	o.Scale = c.Tornado.Scale
	o.CutBySeed = c.Tornado.CutBySeed
	o.SortSens = c.Tornado.SortSens
	return o
}

// StatePath returns the run history database path.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return filepath.Join(Home(), "state.db")
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// discoverProjectConfig walks up from the CWD looking for fmutools.yaml.
func discoverProjectConfig() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := start; ; {
		candidate := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found (searched up from %s)", ProjectFile, start)
}

// validate performs semantic validation on the loaded config.
func validate(cfg *Config) error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.Log.Level)) {
		return fmt.Errorf("log.level %q: want debug, info, warn or error", cfg.Log.Level)
	}
	if f := strings.ToLower(cfg.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format %q: want text or json", cfg.Log.Format)
	}
	if s := cfg.Tornado.Scale; s != tornado.ScalePercentage && s != tornado.ScaleAbsolute {
		return fmt.Errorf("tornado.scale %q: want %s or %s", s, tornado.ScalePercentage, tornado.ScaleAbsolute)
	}
	if !slices.Contains(table.Formats, cfg.Output.Format) {
		return fmt.Errorf("output.format %q: want one of %s", cfg.Output.Format, strings.Join(table.Formats, ", "))
	}
	if cfg.Tornado.Reference == "" {
		return fmt.Errorf("tornado.reference must not be empty")
	}
	return nil
}

// Home returns the fmutools home directory (~/.fmutools). FMUTOOLS_HOME
// overrides it.
func Home() string {
	if h := os.Getenv(EnvPrefix + "_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fmutools"
	}
	return filepath.Join(home, ".fmutools")
}

// DefaultConfigTemplate is the content written by `fmutools init`.
const DefaultConfigTemplate = `# fmutools.yaml - project settings
project:
  name: my-field

log:
  level: info
  format: text
  # file: logs/fmutools.log

design:
  sheet: DesignSheet01
  defaults_sheet: DefaultValues

tornado:
  reference: rms_seed
  scale: percentage
  cutbyseed: false
  sortsens: true

output:
  format: table
`

// ExampleDesignTemplate is the example design input written by `fmutools init`.
const ExampleDesignTemplate = `# Design input for fmutools design generate
designtype: onebyone
repeats: 10
seeds: default
distribution_seed: 1234
defaultvalues:
  - {name: FWL, value: "1700"}
  - {name: MULTFLT, value: "1"}
  - {name: PERM_MULT, value: "1"}
sensitivities:
  - name: rms_seed
    type: seed
  - name: contacts
    type: scenario
    cases:
      - name: shallow
        values: [{name: FWL, value: "1680"}]
      - name: deep
        values: [{name: FWL, value: "1720"}]
  - name: faults
    type: dist
    parameters:
      - {name: MULTFLT, dist: loguniform, params: ["0.001", "1"], decimals: 4}
      - {name: PERM_MULT, dist: triangular, params: ["0.5", "1", "2"], decimals: 2}
    correlations:
      parameters: [MULTFLT, PERM_MULT]
      matrix:
        - [1]
        - [0.5, 1]
`
