// Package components: TUI sub-components for the tornado viewer.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─────────────────────────────────────────────────────────────────────────────
// Header component
// ─────────────────────────────────────────────────────────────────────────────

// Header renders the top status bar.
type Header struct {
	project string
	records int
	scale   string
}

// NewHeader creates a Header for the named project.
func NewHeader(project string) Header {
	return Header{project: project}
}

func (h *Header) SetRecordCount(n int) { h.records = n }
func (h *Header) SetScale(s string)    { h.scale = s }

// View renders the header bar. Accepts total terminal width.
func (h *Header) View(width int) string {
	left := fmt.Sprintf(" ◉ FMUTOOLS  %s ", h.project)
	right := fmt.Sprintf(" %d tornado results ", h.records)
	if h.scale != "" {
		right = fmt.Sprintf(" %s · %d tornado results ", h.scale, h.records)
	}
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Background(lipgloss.Color("#5B8DB8")).
		Foreground(lipgloss.Color("#0D0F18")).
		Bold(true).
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// ─────────────────────────────────────────────────────────────────────────────
// Sidebar component
// ─────────────────────────────────────────────────────────────────────────────

// Sidebar renders the list of tornado results.
type Sidebar struct {
	selected int
	items    []string
}

// NewSidebar creates an empty Sidebar.
func NewSidebar() Sidebar { return Sidebar{} }

// SetItems replaces the listed titles and keeps the selection in range.
func (s *Sidebar) SetItems(titles []string) {
	s.items = titles
	s.selected = min(s.selected, max(len(titles)-1, 0))
}

// Select moves the highlight to i.
func (s *Sidebar) Select(i int) { s.selected = i }

// Selected returns the highlighted index.
func (s *Sidebar) Selected() int { return s.selected }

// View renders the sidebar.
func (s *Sidebar) View(width, height int) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5B8DB8")).Bold(true).
		Render("RESULTS")

	var sb strings.Builder
	sb.WriteString(title + "\n")

	if len(s.items) == 0 {
		sb.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("#718096")).
			Render("  (none)"))
	}

	for i, item := range s.items {
		icon := "○ "
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#E2E8F0")).PaddingLeft(1)
		if i == s.selected {
			icon = "▶ "
			style = style.Foreground(lipgloss.Color("#E8A33D")).Bold(true)
		}
		sb.WriteString(style.Render(truncate(icon+item, width-3)) + "\n")
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#171A2B")).
		Width(width).Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(lipgloss.Color("#718096")).
		Padding(1, 1).
		Render(sb.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Footer component
// ─────────────────────────────────────────────────────────────────────────────

// Footer renders the bottom hint bar.
type Footer struct {
	err error
}

// NewFooter creates a Footer.
func NewFooter() Footer { return Footer{} }

// SetError sets an error message to display.
func (f *Footer) SetError(err error) { f.err = err }

// View renders the footer.
func (f *Footer) View(width int) string {
	hints := []struct{ key, desc string }{
		{"↑↓", "result"}, {"tab", "panel"}, {"r", "reload"}, {"?", "help"}, {"q", "quit"},
	}

	var sb strings.Builder
	for _, h := range hints {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DB8")).Bold(true).Render(h.key))
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#718096")).Render(" " + h.desc + "  "))
	}
	content := sb.String()

	if f.err != nil {
		content = lipgloss.NewStyle().Foreground(lipgloss.Color("#F56565")).
			Render("Error: " + f.err.Error())
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#171A2B")).
		Width(width).Padding(0, 1).
		Render(content)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
