// Package tui: Lipgloss styles for the viewer theme.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all theme-aware Lipgloss styles.
type Styles struct {
	// Colors
	Background lipgloss.Color
	Surface    lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Danger     lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color

	// Component styles
	PanelTitle  lipgloss.Style
	PanelTab    lipgloss.Style
	PanelTabSel lipgloss.Style
	Viewport    lipgloss.Style
	Modal       lipgloss.Style
}

// newStyles returns the viewer theme styles.
func newStyles() Styles {
	bg := lipgloss.Color("#0D0F18")
	surface := lipgloss.Color("#171A2B")
	primary := lipgloss.Color("#5B8DB8")
	accent := lipgloss.Color("#E8A33D")
	danger := lipgloss.Color("#F56565")
	muted := lipgloss.Color("#718096")
	text := lipgloss.Color("#E2E8F0")

	return Styles{
		Background: bg, Surface: surface, Primary: primary,
		Accent: accent, Danger: danger, Muted: muted, Text: text,

		PanelTitle: lipgloss.NewStyle().
			Foreground(primary).Bold(true).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).
			BorderForeground(muted).Padding(0, 1),

		PanelTab: lipgloss.NewStyle().
			Foreground(muted).Padding(0, 1),

		PanelTabSel: lipgloss.NewStyle().
			Foreground(accent).Bold(true).Underline(true).Padding(0, 1),

		Viewport: lipgloss.NewStyle().
			Foreground(text).
			Padding(0, 1),

		Modal: lipgloss.NewStyle().
			Background(surface).Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
	}
}
