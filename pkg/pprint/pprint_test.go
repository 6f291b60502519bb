package pprint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldErr := Out, ErrOut
	Out, ErrOut = &buf, &buf
	t.Cleanup(func() { Out, ErrOut = oldOut, oldErr })
	return &buf
}

func TestStatusLines(t *testing.T) {
	buf := capture(t)
	Success("wrote %d rows", 41)
	Warn("no seeds")
	Error("boom")
	KV("Realisations", "41")

	out := buf.String()
	assert.Contains(t, out, "wrote 41 rows")
	assert.Contains(t, out, "no seeds")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "Realisations")
}

func TestPanel(t *testing.T) {
	buf := capture(t)
	Panel("STOIIP_OIL", "bars")
	assert.Contains(t, buf.String(), "STOIIP_OIL")
	assert.Contains(t, buf.String(), "bars")
}

func TestTornadoBars(t *testing.T) {
	out := TornadoBars([]Bar{
		{Label: "faults", Low: -10, High: 5},
		{Label: "contacts", Low: 2, High: 4},
	}, 40)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Contains(t, l, "│")
	}
	// every line renders to the same width so the centre lines up
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(lines[1]))
	assert.True(t, strings.HasPrefix(lines[1], "contacts"))
}

func TestTornadoBarsEmpty(t *testing.T) {
	assert.Contains(t, TornadoBars(nil, 40), "no sensitivities")
}

func TestBarHalves(t *testing.T) {
	left, right := barHalves(-10, 5, 10, 10)
	assert.Equal(t, 10, strings.Count(left, "█"))
	assert.Equal(t, 5, strings.Count(right, "█"))

	left, right = barHalves(2, 4, 10, 10)
	assert.Equal(t, 0, strings.Count(left, "█"))
	assert.Equal(t, 4, strings.Count(right, "█"))
}
