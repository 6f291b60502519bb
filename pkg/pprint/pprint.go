// Package pprint provides styled terminal output for the fmutools CLI:
// status lines, key-value pairs, panels, spinners and tornado bars.
package pprint

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Out and ErrOut receive all output. The CLI points them at the command's
// writers so tests can capture them.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

// ─────────────────────────────────────────────────────────────────────────────
// Colour palette
// ─────────────────────────────────────────────────────────────────────────────

var (
	ColorPrimary = lipgloss.Color("#5B8DB8") // reservoir blue
	ColorAccent  = lipgloss.Color("#E8A33D") // oil amber
	ColorSuccess = lipgloss.Color("#48BB78")
	ColorWarning = lipgloss.Color("#F6AD55")
	ColorError   = lipgloss.Color("#FC8181")
	ColorMuted   = lipgloss.Color("#718096")
	ColorText    = lipgloss.Color("#E2E8F0")
	ColorLow     = lipgloss.Color("#63B3ED")
	ColorHigh    = lipgloss.Color("#F687B3")
)

// ─────────────────────────────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────────────────────────────

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleAccent  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)
	StyleLow     = lipgloss.NewStyle().Foreground(ColorLow)
	StyleHigh    = lipgloss.NewStyle().Foreground(ColorHigh)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Width(16)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)
)

// ─────────────────────────────────────────────────────────────────────────────
// Simple output helpers
// ─────────────────────────────────────────────────────────────────────────────

// Success prints a green ✓ success line.
func Success(format string, args ...any) {
	fmt.Fprintln(Out, StyleSuccess.Render("✓ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Warn prints an amber ⚠ warning line.
func Warn(format string, args ...any) {
	fmt.Fprintln(Out, StyleWarning.Render("⚠ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Error prints a red ✗ error line to ErrOut.
func Error(format string, args ...any) {
	fmt.Fprintln(ErrOut, StyleError.Render("✗ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Info prints a dimmed info line.
func Info(format string, args ...any) {
	fmt.Fprintln(Out, StyleMuted.Render("  "+fmt.Sprintf(format, args...)))
}

// Header prints a section header.
func Header(title string) {
	bar := strings.Repeat("─", 60)
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, StylePrimary.Render(bar))
	fmt.Fprintln(Out, StylePrimary.Render(" ◉ "+strings.ToUpper(title)))
	fmt.Fprintln(Out, StylePrimary.Render(bar))
}

// KV prints a labelled key-value pair.
func KV(key, value string) {
	fmt.Fprintln(Out, StyleLabel.Render(key)+StyleText.Render(value))
}

// Panel renders a rounded-border box with optional title.
func Panel(title, body string) {
	content := body
	if title != "" {
		content = StyleAccent.Render(" "+title+" ") + "\n" + body
	}
	fmt.Fprintln(Out, StylePanel.Render(content))
}

// ─────────────────────────────────────────────────────────────────────────────
// Tornado bars
// ─────────────────────────────────────────────────────────────────────────────

// Bar is one horizontal bar around a zero reference.
type Bar struct {
	Label string
	Low   float64
	High  float64
}

// TornadoBars renders bars left and right of a centre line, scaled so the
// widest extent fills half of width.
func TornadoBars(bars []Bar, width int) string {
	if len(bars) == 0 {
		return StyleMuted.Render("no sensitivities")
	}
	labelW := 0
	extent := 0.0
	for _, b := range bars {
		labelW = max(labelW, lipgloss.Width(b.Label))
		extent = math.Max(extent, math.Max(math.Abs(b.Low), math.Abs(b.High)))
	}
	half := max((width-labelW-3)/2, 4)

	var sb strings.Builder
	for _, b := range bars {
		left, right := barHalves(b.Low, b.High, extent, half)
		fmt.Fprintf(&sb, "%-*s %s│%s\n", labelW, b.Label, left, right)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// barHalves returns the left and right cell strings of one bar. Negative
// values extend left of the centre, positive values right.
func barHalves(low, high, extent float64, half int) (string, string) {
	cells := func(v float64) int {
		if extent == 0 {
			return 0
		}
		return int(math.Round(math.Abs(v) / extent * float64(half)))
	}
	lo, hi := math.Min(low, high), math.Max(low, high)

	var leftN, rightN int
	if lo < 0 {
		leftN = cells(lo)
	}
	if hi > 0 {
		rightN = cells(hi)
	}
	left := strings.Repeat(" ", half-leftN) + StyleLow.Render(strings.Repeat("█", leftN))
	right := StyleHigh.Render(strings.Repeat("█", rightN)) + strings.Repeat(" ", half-rightN)
	return left, right
}

// ─────────────────────────────────────────────────────────────────────────────
// Spinner
// ─────────────────────────────────────────────────────────────────────────────

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a non-blocking terminal spinner.
type Spinner struct {
	label  string
	done   chan struct{}
	mu     sync.Mutex
	active bool
}

// NewSpinner creates a Spinner with the given label.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label, done: make(chan struct{})}
}

// Start begins the spinner animation in a goroutine.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(Out, "\r%s %s ", StylePrimary.Render(spinnerFrames[i%len(spinnerFrames)]), StyleText.Render(s.label))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the spinner and prints the final status.
func (s *Spinner) Stop(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	close(s.done)
	s.active = false

	mark := StyleSuccess.Render("✓")
	if !success {
		mark = StyleError.Render("✗")
	}
	fmt.Fprintf(Out, "\r%s %s\n", mark, StyleText.Render(s.label))
}
