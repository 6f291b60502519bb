package webviz

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

const webvizYAML = `title: Reek
shared_settings:
  scratch_ensembles:
    iter-0: ../realization-*/iter-0
pages:
  - title: Front page
    content:
      - "# Reek sensitivities"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixture writes a design summary, a results table with two zones and a
// tornado configuration into a temporary directory.
func fixture(t *testing.T, tornadoYAML string) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "summary.csv"),
		"sensno,sensname,senstype,casename1,startreal1,endreal1,casename2,startreal2,endreal2\n"+
			"0,rms_seed,mc,p10_p90,0,9,,,\n"+
			"1,faults,scalar,closed,10,11,open,12,13\n")

	res := table.New("REAL", "ZONE", "STOIIP_OIL", "GIIP_GAS")
	for r := 0; r <= 13; r++ {
		v := 100 + r
		for _, z := range []string{"Upper", "Lower"} {
			require.NoError(t, res.AppendRow(strconv.Itoa(r), z, strconv.Itoa(v), strconv.Itoa(2*v)))
		}
	}
	require.NoError(t, res.WriteCSVFile(filepath.Join(dir, "results.csv")))

	writeFile(t, filepath.Join(dir, "tornado.yaml"), tornadoYAML)
	return dir
}

const tornadoYAML = `tornadoplots:
  title: Volumes
  designsummary: summary.csv
  results: results.csv
  selectors: [ZONE]
  selections: [[Upper, Lower, Total]]
  responses: [STOIIP_OIL, GIIP_GAS]
  scale: absolute
  outputdir: out
`

func quiet() Option { return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func TestAddWebvizTornadoPlots(t *testing.T) {
	dir := fixture(t, tornadoYAML)
	webvizPath := filepath.Join(dir, "webviz.yaml")
	writeFile(t, webvizPath, webvizYAML)

	cfg, err := LoadConfig(webvizPath)
	require.NoError(t, err)
	require.NoError(t, AddWebvizTornadoPlots(context.Background(), cfg, filepath.Join(dir, "tornado.yaml"), quiet(), WithWorkers(2)))

	require.Len(t, cfg.Pages, 2)
	page := cfg.Pages[1]
	assert.Equal(t, "Volumes", page.Title)
	// two responses times three selections, each a header and a plot
	require.Len(t, page.Content, 12)

	assert.Equal(t, "### STOIIP_OIL\nZONE: Upper", page.Content[0])
	plot, ok := page.Content[1].(map[string]any)["TornadoPlot"].(TornadoPlot)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "out", "STOIIP_OIL_Upper.csv"), plot.Data)
	assert.Equal(t, "absolute", plot.Scale)
	assert.InDelta(t, 104.5, plot.ReferenceValue, 1e-9)

	total := page.Content[5].(map[string]any)["TornadoPlot"].(TornadoPlot)
	assert.InDelta(t, 209, total.ReferenceValue, 1e-9)

	for _, name := range []string{"STOIIP_OIL_Upper", "STOIIP_OIL_Lower", "STOIIP_OIL_Total", "GIIP_GAS_Total"} {
		tbl, err := table.ReadCSVFile(filepath.Join(dir, "out", name+".csv"))
		require.NoError(t, err, name)
		assert.Equal(t, 2, tbl.Len(), name)
	}

	require.NoError(t, WriteConfig(webvizPath, cfg))
	data, err := os.ReadFile(webvizPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shared_settings:")
	assert.Contains(t, string(data), "TornadoPlot:")
	assert.Contains(t, string(data), "reference_value:")

	back, err := LoadConfig(webvizPath)
	require.NoError(t, err)
	assert.Equal(t, "Reek", back.Title)
	assert.Contains(t, back.Extra, "shared_settings")
	assert.Len(t, back.Pages, 2)
}

func TestAddWebvizTornadoPlots_NoSelectors(t *testing.T) {
	cfgYAML := strings.NewReplacer("  selectors: [ZONE]\n", "", "  selections: [[Upper, Lower, Total]]\n", "").Replace(tornadoYAML)
	dir := fixture(t, cfgYAML)

	cfg := &Config{Title: "x"}
	plots, err := BuildTornadoPlots(context.Background(), cfg, filepath.Join(dir, "tornado.yaml"), quiet())
	require.NoError(t, err)
	require.Len(t, plots, 2)
	assert.Equal(t, filepath.Join(dir, "out", "STOIIP_OIL.csv"), plots[0].Path)
	assert.Equal(t, "### STOIIP_OIL", cfg.Pages[0].Content[0])
}

func TestAddWebvizTornadoPlots_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code errs.ErrorCode
	}{
		{"no section", "other: 1\n", errs.ErrWebvizConfig},
		{"unknown key", strings.Replace(tornadoYAML, "  scale: absolute\n", "  colour: red\n", 1), errs.ErrWebvizConfig},
		{"no design", strings.Replace(tornadoYAML, "  designsummary: summary.csv\n", "", 1), errs.ErrWebvizConfig},
		{"selector mismatch", strings.Replace(tornadoYAML, "  selections: [[Upper, Lower, Total]]\n", "", 1), errs.ErrWebvizConfig},
		{"unknown response", strings.Replace(tornadoYAML, "GIIP_GAS", "BULK_OIL", 1), errs.ErrTornadoInput},
		{"bad scale", strings.Replace(tornadoYAML, "absolute", "log", 1), errs.ErrWebvizConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fixture(t, tt.yaml)
			cfg := &Config{}
			err := AddWebvizTornadoPlots(context.Background(), cfg, filepath.Join(dir, "tornado.yaml"), quiet())
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tt.code), "got %v", err)
			assert.Empty(t, cfg.Pages)
		})
	}
}

func TestAddWebvizTornadoPlots_Cancelled(t *testing.T) {
	dir := fixture(t, tornadoYAML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := AddWebvizTornadoPlots(ctx, &Config{}, filepath.Join(dir, "tornado.yaml"), quiet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddWebvizTornadoPlots_CollidingNames(t *testing.T) {
	cfgYAML := strings.Replace(tornadoYAML, "[[Upper, Lower, Total]]", `[["Upper Reek", "Upper/Reek"]]`, 1)
	dir := fixture(t, cfgYAML)

	res := table.New("REAL", "ZONE", "STOIIP_OIL", "GIIP_GAS")
	for r := 0; r <= 13; r++ {
		require.NoError(t, res.AppendRow(strconv.Itoa(r), "Upper Reek", "100", "200"))
		require.NoError(t, res.AppendRow(strconv.Itoa(r), "Upper/Reek", "300", "600"))
	}
	require.NoError(t, res.WriteCSVFile(filepath.Join(dir, "results.csv")))

	plots, err := BuildTornadoPlots(context.Background(), &Config{}, filepath.Join(dir, "tornado.yaml"), quiet(), WithWorkers(4))
	require.NoError(t, err)
	require.Len(t, plots, 4)

	paths := map[string]bool{}
	for _, p := range plots {
		paths[p.Path] = true
	}
	assert.Len(t, paths, 4, "every plot gets its own file")
	assert.Equal(t, filepath.Join(dir, "out", "STOIIP_OIL_Upper-Reek.csv"), plots[0].Path)
	assert.Equal(t, filepath.Join(dir, "out", "STOIIP_OIL_Upper-Reek_2.csv"), plots[1].Path)
	assert.InDelta(t, 100, plots[0].Result.RefValue, 1e-9)
	assert.InDelta(t, 300, plots[1].Result.RefValue, 1e-9)
	for p := range paths {
		assert.FileExists(t, p)
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a", uniqueName("a", used))
	assert.Equal(t, "a_2", uniqueName("a", used))
	assert.Equal(t, "a_3", uniqueName("a", used))
	assert.Equal(t, "A_4", uniqueName("A", used))
	assert.Equal(t, "b", uniqueName("b", used))
}
