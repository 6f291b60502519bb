package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f9-o/fmutools/pkg/errs"
)

// isolate points the home directory at an empty temp dir and moves into
// another one so no real config is discovered.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("FMUTOOLS_HOME", t.TempDir())
	wd := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return wd
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "DesignSheet01", cfg.Design.Sheet)
	assert.Equal(t, "rms_seed", cfg.Tornado.Reference)
	assert.Equal(t, "percentage", cfg.Tornado.Scale)
	assert.True(t, cfg.Tornado.SortSens)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Empty(t, cfg.File)
	assert.Equal(t, filepath.Join(Home(), "state.db"), cfg.StatePath())
}

func TestLoadDiscoversProjectFile(t *testing.T) {
	wd := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ProjectFile), []byte(
		"project:\n  name: drogon\ntornado:\n  scale: absolute\n  reference: ref\n"), 0o644))
	sub := filepath.Join(wd, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.Chdir(sub))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "drogon", cfg.Project.Name)
	assert.Equal(t, "absolute", cfg.Tornado.Scale)
	assert.Equal(t, filepath.Join(wd, ProjectFile), cfg.File)

	opts := cfg.TornadoOptions("STOIIP_OIL")
	assert.Equal(t, "ref", opts.Reference)
	assert.Equal(t, "absolute", opts.Scale)
	assert.Equal(t, "STOIIP_OIL", opts.Response)
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("FMUTOOLS_LOG_LEVEL", "debug")
	t.Setenv("FMUTOOLS_OUTPUT_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad scale", "tornado:\n  scale: log\n"},
		{"bad format", "output:\n  format: html\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"empty reference", "tornado:\n  reference: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := isolate(t)
			path := filepath.Join(wd, "custom.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, errs.ErrConfig))
		})
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))
}

func TestSheetNames(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	s := cfg.SheetNames()
	assert.Equal(t, "general_input", s.General)
	assert.Equal(t, "designinput", s.Design)
	assert.Equal(t, "defaultvalues", s.Defaults)
}

func TestTemplatesAreValid(t *testing.T) {
	wd := isolate(t)
	path := filepath.Join(wd, ProjectFile)
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigTemplate), 0o644))
	_, err := Load(path)
	assert.NoError(t, err)
}
