// Package tui: keyboard binding configuration.
package tui

// Keymap defines all keyboard shortcuts for the TUI.
type Keymap struct {
	Quit    string
	TabNext string
	TabPrev string
	NavUp   string
	NavDown string
	Top     string
	Bottom  string
	Reload  string
	Help    string
}

// defaultKeymap returns the default viewer key bindings.
func defaultKeymap() Keymap {
	return Keymap{
		Quit:    "q",
		TabNext: "tab",
		TabPrev: "shift+tab",
		NavUp:   "up",
		NavDown: "down",
		Top:     "g",
		Bottom:  "G",
		Reload:  "r",
		Help:    "?",
	}
}

// HelpText returns the keyboard shortcut reference displayed in the help modal.
func HelpText() string {
	return `
  NAVIGATION
  ──────────────────────────────────────
  Tab / Shift+Tab    Cycle panels
  ↑↓  /  j k        Previous / next result
  g  /  G            First / last result
  PgUp / PgDn        Scroll details

  MISC
  ──────────────────────────────────────
  r                  Reload from history
  ?                  Toggle this help
  q  /  Ctrl+C       Quit
`
}
