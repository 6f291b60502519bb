package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f9-o/fmutools/internal/cli/commands"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// workspace isolates the home directory and the working directory.
func workspace(t *testing.T) string {
	t.Helper()
	t.Setenv("FMUTOOLS_HOME", t.TempDir())
	wd := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return wd
}

// execCLI runs one command and returns what it wrote to stdout and stderr.
func execCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	a := newApp()
	var stdout, stderr bytes.Buffer
	a.root.SetOut(&stdout)
	a.root.SetErr(&stderr)
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	a.root.SetArgs(args)
	err := a.execute()
	return stdout.String(), stderr.String(), err
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := execCLI(t, args...)
	return out, err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := execCLI(t, args...)
	require.NoError(t, err, stderr)
	return out
}

// writeResults writes one STOIIP_OIL value per realization of the design,
// split over two zones.
func writeResults(t *testing.T, designPath, out string) {
	t.Helper()
	d, err := table.ReadCSVFile(designPath)
	require.NoError(t, err)
	reals, err := d.Column("REAL")
	require.NoError(t, err)

	res := table.New("REAL", "ZONE", "STOIIP_OIL")
	for _, r := range reals {
		n, err := strconv.Atoi(r)
		require.NoError(t, err)
		require.NoError(t, res.AppendRow(r, "Upper", strconv.Itoa(60+n%7)))
		require.NoError(t, res.AppendRow(r, "Lower", "40"))
	}
	require.NoError(t, res.WriteCSVFile(out))
}

func TestWorkflow(t *testing.T) {
	wd := workspace(t)

	out := mustRun(t, "init")
	assert.Contains(t, out, "fmutools.yaml")
	assert.FileExists(t, filepath.Join(wd, commands.ExampleDesignFile))

	out = mustRun(t, "design", "generate", "--input", commands.ExampleDesignFile, "--out", "design.csv")
	assert.Contains(t, out, "Wrote design.csv")
	assert.Contains(t, out, "rms_seed, contacts, faults")

	out = mustRun(t, "design", "summarize", "--design", "design.csv", "--json")
	var summary []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary, 3)
	assert.Equal(t, "contacts", summary[1]["sensname"])

	writeResults(t, filepath.Join(wd, "design.csv"), "results.csv")
	out = mustRun(t, "tornado", "--design", "design.csv", "--results", "results.csv",
		"--response", "STOIIP_OIL", "--selector", "ZONE=Upper,Lower", "--scale", "absolute", "--json")
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	names := map[string]bool{}
	for _, r := range rows {
		names[r["sensname"].(string)] = true
	}
	assert.True(t, names["contacts"])
	assert.True(t, names["faults"])

	out = mustRun(t, "history", "--json")
	var hist struct {
		Designs []map[string]any `json:"designs"`
		Tornado []map[string]any `json:"tornado"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	require.Len(t, hist.Designs, 1)
	require.Len(t, hist.Tornado, 1)
	assert.Equal(t, "success", hist.Designs[0]["status"])
	assert.EqualValues(t, 40, hist.Designs[0]["realisations"])
	assert.Equal(t, "STOIIP_OIL", hist.Tornado[0]["response"])

	data, err := os.ReadFile(filepath.Join(os.Getenv("FMUTOOLS_HOME"), "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"design.generate"`)
	assert.Contains(t, string(data), `"op":"tornado"`)
}

func TestFailedRunIsRecorded(t *testing.T) {
	workspace(t)
	mustRun(t, "init")
	require.NoError(t, os.WriteFile("results.csv", []byte("REAL,STOIIP_OIL\n0,1\n"), 0o644))
	mustRun(t, "design", "generate", "--input", commands.ExampleDesignFile, "--out", "design.csv")

	_, err := run(t, "tornado", "--design", "design.csv", "--results", "results.csv",
		"--response", "STOIIP_OIL", "--reference", "nope")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrTornadoReference))

	// the state database was released, so the next command can open it
	out := mustRun(t, "history", "--kind", "tornado", "--json")
	assert.Contains(t, out, `"status": "failed"`)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	workspace(t)
	mustRun(t, "init")
	_, err := run(t, "init")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrValidation))
}

func TestVolumetricsCommand(t *testing.T) {
	report, err := filepath.Abs(filepath.Join("..", "..", "pkg", "rms", "volumetrics", "testdata", "geogrid_vol_oil_1.txt"))
	require.NoError(t, err)
	workspace(t)

	out := mustRun(t, "volumetrics", report, "-o", "csv")
	assert.Contains(t, out, "STOIIP_OIL")
	assert.Contains(t, out, "ZONE")

	out = mustRun(t, "volumetrics", "merge", "--oil", report, "--out", "merged.csv")
	assert.Contains(t, out, "Wrote merged.csv")
	assert.FileExists(t, "merged.csv")

	_, err = run(t, "volumetrics", report, "--phase", "water")
	assert.True(t, errs.IsCode(err, errs.ErrValidation))
}

func TestFlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errs.ErrorCode
	}{
		{"unknown output format", []string{"history", "-o", "html"}, errs.ErrValidation},
		{"unknown history kind", []string{"history", "--kind", "plots"}, errs.ErrValidation},
		{"bad selector", []string{"tornado", "--design", "d.csv", "--results", "r.csv", "--response", "X", "--selector", "ZONE"}, errs.ErrValidation},
		{"unknown design input", []string{"design", "generate", "--input", "design.txt", "--out", "d.csv"}, errs.ErrDesignInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workspace(t)
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMissingRequiredFlag(t *testing.T) {
	workspace(t)
	_, err := run(t, "design", "generate", "--input", "x.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}

func TestVersionJSON(t *testing.T) {
	workspace(t)
	out := mustRun(t, "version", "--json")
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, commands.Version, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestRootHelpShowsBanner(t *testing.T) {
	workspace(t)
	out := mustRun(t)
	assert.Contains(t, out, "Design matrices, tornado input and volumetrics")
	assert.Contains(t, out, "tornado")
}

func TestJSONStdoutStaysClean(t *testing.T) {
	wd := workspace(t)
	mustRun(t, "init")
	mustRun(t, "design", "generate", "--input", commands.ExampleDesignFile, "--out", "design.csv")
	writeResults(t, filepath.Join(wd, "design.csv"), "results.csv")

	args := []string{"tornado", "--design", "design.csv", "--results", "results.csv",
		"--response", "STOIIP_OIL", "--json"}
	out, stderr, err := execCLI(t, args...)
	require.NoError(t, err, stderr)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	assert.NotEmpty(t, rows)
	assert.NotContains(t, stderr, "msg=audit")

	out, stderr, err = execCLI(t, append(args, "--debug")...)
	require.NoError(t, err, stderr)
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	assert.Contains(t, stderr, "msg=audit")
}

func TestHistoryCSVNeedsOneKind(t *testing.T) {
	workspace(t)
	mustRun(t, "init")
	mustRun(t, "design", "generate", "--input", commands.ExampleDesignFile, "--out", "design.csv")

	_, err := run(t, "history", "-o", "csv")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrValidation), "got %v", err)

	out := mustRun(t, "history", "--kind", "design", "-o", "csv")
	assert.Equal(t, 1, strings.Count(out, "id,created,input"))
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(out), "\n")))

	out = mustRun(t, "history", "-o", "json")
	var hist map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	assert.Contains(t, hist, "designs")
	assert.Contains(t, hist, "tornado")
}
