// Package logger provides the structured logging engine for fmutools.
// Uses log/slog with support for multiple sinks: stderr, file, TUI, plus an
// append-only audit journal of produced artifacts.
package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Logger
// ─────────────────────────────────────────────────────────────────────────────

// Logger wraps slog.Logger with fmutools-specific utilities.
type Logger struct {
	*slog.Logger

	mu      sync.Mutex
	auditW  io.Writer // append-only audit log writer (nil = disabled)
	closers []io.Closer
	opts    Options
}

// Options configures Init.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	File   string // optional log file
	Home   string // directory holding audit.log; empty disables the journal
	Debug  bool   // forces debug level and adds source locations

	// Stderr receives log lines; nil means os.Stderr.
	Stderr io.Writer
}

var (
	tuiMu     sync.Mutex
	tuiSinkCh chan string
)

// SetTUISink registers a channel that receives log lines while the TUI owns
// the terminal. Lines are not written to stderr while a sink is set. Call
// before Init; pass nil to restore stderr output.
func SetTUISink(ch chan string) {
	tuiMu.Lock()
	defer tuiMu.Unlock()
	tuiSinkCh = ch
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init builds the logger and installs it as the slog default.
func Init(opts Options) (*Logger, error) {
	lvl := ParseLevel(opts.Level)
	if opts.Debug {
		lvl = slog.LevelDebug
	}

	l := &Logger{opts: opts}
	var writers []io.Writer

	tuiMu.Lock()
	sink := tuiSinkCh
	tuiMu.Unlock()
	if sink != nil {
		tw := &tuiWriter{ch: sink}
		writers = append(writers, tw)
		l.closers = append(l.closers, tw)
	} else if opts.Stderr != nil {
		writers = append(writers, opts.Stderr)
	} else {
		writers = append(writers, os.Stderr)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
		l.closers = append(l.closers, f)
	}

	out := io.MultiWriter(writers...)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.Debug}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}
	l.Logger = slog.New(handler)
	slog.SetDefault(l.Logger)

	if opts.Home != "" {
		if err := os.MkdirAll(opts.Home, 0o750); err == nil {
			if af, err := os.OpenFile(AuditPath(opts.Home), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640); err == nil {
				l.auditW = af
				l.closers = append(l.closers, af)
			}
		}
	}
	return l, nil
}

// ForTUI returns a logger with the same level, format and file whose console
// output goes to ch instead of stderr. It has no audit journal. The caller
// closes it before closing ch, and reinstalls the previous slog default when
// the TUI exits.
func (l *Logger) ForTUI(ch chan string) (*Logger, error) {
	SetTUISink(ch)
	defer SetTUISink(nil)
	o := l.opts
	o.Home = ""
	return Init(o)
}

// AuditPath returns the audit journal location under home.
func AuditPath(home string) string { return filepath.Join(home, "audit.log") }

// Close releases the log and audit files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers, l.auditW = nil, nil
	return first
}

// ─────────────────────────────────────────────────────────────────────────────
// Audit logging
// ─────────────────────────────────────────────────────────────────────────────

// AuditEntry records one command that produced or read artifacts.
type AuditEntry struct {
	Timestamp time.Time         `json:"ts"`
	Op        string            `json:"op"`
	User      string            `json:"user"`
	Inputs    []string          `json:"inputs,omitempty"`
	Outputs   []string          `json:"outputs,omitempty"`
	Result    string            `json:"result"` // success | failure
	Meta      map[string]string `json:"meta,omitempty"`
}

// Audit appends entry to the audit journal as one JSON line. The console only
// shows it at debug level.
func (l *Logger) Audit(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	if entry.User == "" {
		entry.User = currentUser()
	}
	l.Debug("audit", "op", entry.Op, "result", entry.Result, "outputs", entry.Outputs)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.auditW == nil {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		l.Warn("audit entry not written", "err", err)
		return
	}
	_, _ = l.auditW.Write(append(line, '\n'))
}

func currentUser() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if u := os.Getenv(k); u != "" {
			return u
		}
	}
	return "unknown"
}

// ─────────────────────────────────────────────────────────────────────────────
// TUI writer
// ─────────────────────────────────────────────────────────────────────────────

// tuiWriter implements io.Writer by forwarding lines to the TUI sink channel.
type tuiWriter struct {
	mu sync.Mutex
	ch chan<- string
}

func (w *tuiWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ch == nil {
		return len(p), nil
	}
	select {
	case w.ch <- string(p):
	default: // drop when the channel is full
	}
	return len(p), nil
}

// Close detaches the writer so the sink channel can be closed by its owner.
func (w *tuiWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ch = nil
	return nil
}
