// Package components: tornado panel, details text and modal rendering.
package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/pkg/pprint"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tornado panel
// ─────────────────────────────────────────────────────────────────────────────

// RenderTornado renders the bars of rec around the reference value.
func RenderTornado(rec *v1.TornadoRecord, width, height int) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5B8DB8")).Bold(true).
		Padding(0, 1).
		Render("TORNADO")

	if rec == nil {
		empty := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#718096")).
			Padding(2, 2).
			Render("No tornado results. Run 'fmutools tornado' first.")
		return lipgloss.NewStyle().Width(width).Height(height).
			Render(lipgloss.JoinVertical(lipgloss.Left, title, empty))
	}

	unit := ""
	if rec.Scale == "percentage" {
		unit = "%"
	}
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#718096")).Padding(0, 1).
		Render(fmt.Sprintf("%s  reference %s = %s", rec.Title(), rec.Reference, formatValue(rec.RefValue)))

	bars := make([]pprint.Bar, len(rec.Bars))
	for i, b := range rec.Bars {
		bars[i] = pprint.Bar{Label: b.SensName, Low: b.Low, High: b.High}
	}
	chart := lipgloss.NewStyle().Padding(1, 1).Render(pprint.TornadoBars(bars, width-4))

	var legend strings.Builder
	for _, b := range rec.Bars {
		fmt.Fprintf(&legend, "  %-18s %s %s%s  %s %s%s\n",
			truncate(b.SensName, 18),
			pprint.StyleLow.Render(orDash(b.LeftLabel)), formatValue(b.Low), unit,
			pprint.StyleHigh.Render(orDash(b.RightLabel)), formatValue(b.High), unit)
	}

	return lipgloss.NewStyle().Width(width).Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, sub, chart, legend.String()))
}

// RenderDetails returns the plain-text details of rec for a viewport.
func RenderDetails(rec *v1.TornadoRecord) string {
	if rec == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "id          %s\n", rec.ID)
	fmt.Fprintf(&sb, "created     %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "design      %s\n", rec.Design)
	fmt.Fprintf(&sb, "results     %s\n", rec.Results)
	fmt.Fprintf(&sb, "scale       %s\n\n", rec.Scale)

	for _, b := range rec.Bars {
		fmt.Fprintf(&sb, "%s\n", b.SensName)
		fmt.Fprintf(&sb, "  %-10s true %-14s reals %s\n", orDash(b.LeftLabel), formatValue(b.TrueLow), ints(b.LowReals))
		fmt.Fprintf(&sb, "  %-10s true %-14s reals %s\n", orDash(b.RightLabel), formatValue(b.TrueHigh), ints(b.HighReals))
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Modal
// ─────────────────────────────────────────────────────────────────────────────

// Modal is a pop-over dialog.
type Modal struct {
	title string
	body  string
	style lipgloss.Style
}

// NewHelpModal creates the keyboard help modal.
func NewHelpModal(style lipgloss.Style, body string) *Modal {
	return &Modal{
		title: "Keyboard Shortcuts",
		body:  body,
		style: style,
	}
}

// HandleKey processes a key for the modal. Returns (cmd, done).
func (m *Modal) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "esc", "q", "?", "enter":
		return nil, true
	}
	return nil, false
}

// Overlay renders the modal centred in a width×height area.
func (m *Modal) Overlay(width, height int) string {
	content := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E8A33D")).Bold(true).
		Render(m.title) + "\n" + m.body + "\n  [Esc] Close"
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, m.style.Render(content))
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func formatValue(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ints(v []int) string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
