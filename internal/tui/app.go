// Package tui defines the Bubble Tea model for the interactive tornado viewer.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/internal/core/logger"
	"github.com/f9-o/fmutools/internal/tui/components"
)

const sidebarWidth = 30

// RecordSource lists stored tornado results. *state.DB satisfies it.
type RecordSource interface {
	ListTornado(response string) ([]v1.TornadoRecord, error)
}

// Config carries dependencies into the TUI app.
type Config struct {
	Project string
	Records []v1.TornadoRecord
	// Source reloads Records on "r"; nil disables reloading.
	Source RecordSource
	// Response restricts reloads to one response; empty lists all.
	Response string
	// LogLines streams log output into the log panel; nil disables it.
	LogLines <-chan string
	Log      *logger.Logger
}

// ActivePanel identifies which main panel has focus.
type ActivePanel int

const (
	PanelBars ActivePanel = iota
	PanelDetails
	PanelLogs
	panelCount
)

var panelNames = [...]string{"BARS", "DETAILS", "LOGS"}

// Model is the root Bubble Tea model (Elm architecture).
type Model struct {
	cfg Config

	// Dimensions
	width  int
	height int

	panel    ActivePanel
	records  []v1.TornadoRecord
	details  viewport.Model
	logLines []string

	// Sub-components
	header  components.Header
	sidebar components.Sidebar
	footer  components.Footer
	modal   *components.Modal

	styles Styles
}

// logLineMsg carries a new log line from the logger sink.
type logLineMsg string

// recordsMsg carries reloaded tornado records.
type recordsMsg []v1.TornadoRecord

// errMsg carries an error to display in the status bar.
type errMsg error

// New constructs a new TUI Model.
func New(cfg Config) *Model {
	styles := newStyles()
	vp := viewport.New(0, 0)
	vp.Style = styles.Viewport

	m := &Model{
		cfg:     cfg,
		details: vp,
		styles:  styles,
		header:  components.NewHeader(cfg.Project),
		sidebar: components.NewSidebar(),
		footer:  components.NewFooter(),
	}
	m.setRecords(cfg.Records)
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Init
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Init() tea.Cmd {
	return m.waitLogCmd()
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.details.Width = max(m.width-sidebarWidth-2, 10)
		m.details.Height = max(m.height-6, 3)
		m.refreshDetails()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Modal intercepts key events when open
		if m.modal != nil {
			cmd, done := m.modal.HandleKey(msg)
			if done {
				m.modal = nil
			}
			return m, cmd
		}
		cmds = append(cmds, m.handleKey(msg))

	case recordsMsg:
		m.setRecords(msg)

	case logLineMsg:
		m.logLines = append(m.logLines, strings.TrimRight(string(msg), "\n"))
		if len(m.logLines) > 500 {
			m.logLines = m.logLines[len(m.logLines)-500:]
		}
		if m.panel == PanelLogs {
			m.refreshDetails()
			m.details.GotoBottom()
		}
		cmds = append(cmds, m.waitLogCmd())

	case errMsg:
		m.footer.SetError(msg)
		if m.cfg.Log != nil {
			m.cfg.Log.Warn("viewer reload failed", "err", error(msg))
		}
	}

	if m.panel != PanelBars {
		var vpCmd tea.Cmd
		m.details, vpCmd = m.details.Update(msg)
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input when no modal is open.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	kb := defaultKeymap()

	switch msg.String() {
	case kb.Quit:
		return tea.Quit

	case kb.TabNext:
		m.setPanel((m.panel + 1) % panelCount)

	case kb.TabPrev:
		m.setPanel((m.panel + panelCount - 1) % panelCount)

	case kb.NavDown, "j":
		m.selectRecord(m.sidebar.Selected() + 1)

	case kb.NavUp, "k":
		m.selectRecord(m.sidebar.Selected() - 1)

	case kb.Top:
		m.selectRecord(0)

	case kb.Bottom:
		m.selectRecord(len(m.records) - 1)

	case kb.Reload:
		return m.reloadCmd()

	case kb.Help:
		m.modal = components.NewHelpModal(m.styles.Modal, HelpText())
	}
	return nil
}

func (m *Model) setPanel(p ActivePanel) {
	m.panel = p
	m.refreshDetails()
	m.details.GotoTop()
}

func (m *Model) selectRecord(i int) {
	if i < 0 || i >= len(m.records) {
		return
	}
	m.sidebar.Select(i)
	m.refreshDetails()
	m.details.GotoTop()
}

func (m *Model) setRecords(recs []v1.TornadoRecord) {
	m.records = recs
	titles := make([]string, len(recs))
	for i, r := range recs {
		titles[i] = r.Title()
	}
	m.sidebar.SetItems(titles)
	m.header.SetRecordCount(len(recs))
	m.refreshDetails()
}

// Current returns the highlighted record, or nil when there are none.
func (m *Model) Current() *v1.TornadoRecord {
	i := m.sidebar.Selected()
	if i < 0 || i >= len(m.records) {
		return nil
	}
	return &m.records[i]
}

func (m *Model) refreshDetails() {
	rec := m.Current()
	if rec != nil {
		m.header.SetScale(rec.Scale)
	}
	switch m.panel {
	case PanelLogs:
		m.details.SetContent(strings.Join(m.logLines, "\n"))
	default:
		m.details.SetContent(components.RenderDetails(rec))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// View
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.header.View(m.width)
	footer := m.footer.View(m.width)
	bodyHeight := max(m.height-2, 1)

	if m.modal != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.modal.Overlay(m.width, bodyHeight), footer)
	}

	sidebar := m.sidebar.View(sidebarWidth, bodyHeight-2)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.renderMain(bodyHeight))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderMain(height int) string {
	mainWidth := max(m.width-sidebarWidth-2, 10)

	tabs := make([]string, panelCount)
	for i := range tabs {
		style := m.styles.PanelTab
		if ActivePanel(i) == m.panel {
			style = m.styles.PanelTabSel
		}
		tabs[i] = style.Render(panelNames[i])
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var content string
	switch m.panel {
	case PanelBars:
		content = components.RenderTornado(m.Current(), mainWidth, height-2)
	default:
		content = m.details.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content)
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands (async data fetchers)
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) reloadCmd() tea.Cmd {
	if m.cfg.Source == nil {
		return nil
	}
	return func() tea.Msg {
		recs, err := m.cfg.Source.ListTornado(m.cfg.Response)
		if err != nil {
			return errMsg(err)
		}
		return recordsMsg(recs)
	}
}

func (m *Model) waitLogCmd() tea.Cmd {
	if m.cfg.LogLines == nil {
		return nil
	}
	ch := m.cfg.LogLines
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logLineMsg(line)
	}
}
