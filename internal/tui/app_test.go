package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/fmutools/api/v1"
)

type fakeSource struct {
	recs     []v1.TornadoRecord
	err      error
	response string
}

func (f *fakeSource) ListTornado(response string) ([]v1.TornadoRecord, error) {
	f.response = response
	return f.recs, f.err
}

func records() []v1.TornadoRecord {
	return []v1.TornadoRecord{
		{
			ID: "a", Response: "STOIIP_OIL", Reference: "rms_seed", Scale: "percentage", RefValue: 100,
			Bars: []v1.TornadoBar{{SensName: "faults", Low: -12, High: 8, LeftLabel: "p90", RightLabel: "p10"}},
		},
		{
			ID: "b", Response: "GIIP_GAS", Reference: "rms_seed", Scale: "absolute", RefValue: 50,
			Bars: []v1.TornadoBar{{SensName: "contacts", Low: -3, High: 4, LeftLabel: "shallow", RightLabel: "deep"}},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(t *testing.T, cfg Config) *Model {
	t.Helper()
	m := New(cfg)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestNavigation(t *testing.T) {
	m := sized(t, Config{Project: "drogon", Records: records()})
	require.NotNil(t, m.Current())
	assert.Equal(t, "a", m.Current().ID)

	m.Update(key("j"))
	assert.Equal(t, "b", m.Current().ID)
	m.Update(key("j"))
	assert.Equal(t, "b", m.Current().ID, "selection stops at the last record")
	m.Update(key("g"))
	assert.Equal(t, "a", m.Current().ID)
	m.Update(key("G"))
	assert.Equal(t, "b", m.Current().ID)
	m.Update(key("k"))
	assert.Equal(t, "a", m.Current().ID)
}

func TestPanels(t *testing.T) {
	m := sized(t, Config{Records: records()})
	assert.Equal(t, PanelBars, m.panel)
	assert.Contains(t, m.View(), "TORNADO")
	assert.Contains(t, m.View(), "faults")

	m.Update(key("tab"))
	assert.Equal(t, PanelDetails, m.panel)
	assert.Contains(t, m.View(), "reals")

	m.Update(key("tab"))
	assert.Equal(t, PanelLogs, m.panel)
	m.Update(logLineMsg("level=WARN msg=\"sensitivity skipped\"\n"))
	assert.Contains(t, m.View(), "sensitivity skipped")

	m.Update(key("shift+tab"))
	assert.Equal(t, PanelDetails, m.panel)
}

func TestHelpModal(t *testing.T) {
	m := sized(t, Config{Records: records()})
	m.Update(key("?"))
	require.NotNil(t, m.modal)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	// keys go to the modal while it is open
	m.Update(key("j"))
	assert.Equal(t, "a", m.Current().ID)

	m.Update(key("esc"))
	assert.Nil(t, m.modal)
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
}

func TestQuit(t *testing.T) {
	m := sized(t, Config{})
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEmptyViewer(t *testing.T) {
	m := New(Config{})
	assert.Equal(t, "Loading...", m.View())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Nil(t, m.Current())
	assert.Contains(t, m.View(), "No tornado results")
}

func TestReload(t *testing.T) {
	src := &fakeSource{recs: records()[1:]}
	m := sized(t, Config{Records: records(), Source: src, Response: "GIIP_GAS"})
	m.Update(key("G"))

	_, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	m.Update(msg)
	assert.Equal(t, "GIIP_GAS", src.response)
	require.NotNil(t, m.Current())
	assert.Equal(t, "b", m.Current().ID, "selection is clamped to the new list")

	src.err = errors.New("database locked")
	_, cmd = m.Update(key("r"))
	m.Update(cmd())
	assert.Contains(t, m.View(), "database locked")
}

func TestReloadWithoutSource(t *testing.T) {
	m := sized(t, Config{Records: records()})
	_, cmd := m.Update(key("r"))
	assert.Nil(t, cmd)
}

func TestLogLinesFeedPanel(t *testing.T) {
	lines := make(chan string, 1)
	m := New(Config{LogLines: lines})
	cmd := m.Init()
	require.NotNil(t, cmd)

	lines <- "hello"
	assert.Equal(t, logLineMsg("hello"), cmd())

	close(lines)
	assert.Nil(t, m.waitLogCmd()())
}
