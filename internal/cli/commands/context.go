// Package commands provides the shared context type and all CLI subcommands.
package commands

import (
	"context"
	"io"

	"github.com/f9-o/fmutools/internal/core/config"
	"github.com/f9-o/fmutools/internal/core/logger"
	"github.com/f9-o/fmutools/internal/core/state"
	"github.com/f9-o/fmutools/pkg/table"
)

// contextKey is the key type for values stored in a command context.
type contextKey string

const runtimeContextKey contextKey = "fmutools.runtime"

// GlobalFlags holds the parsed global flags for use by subcommands.
type GlobalFlags struct {
	Debug      bool
	JSONOutput bool
	Output     string
}

// Runtime is the shared dependency bundle injected into each subcommand via context.
type Runtime struct {
	Config *config.Config
	Log    *logger.Logger
	State  *state.DB
	Flags  GlobalFlags
}

// NewContext returns a new context carrying the Runtime.
func NewContext(parent context.Context, rt *Runtime) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, runtimeContextKey, rt)
}

// FromContext extracts the Runtime from ctx. Panics if not present (programming error).
func FromContext(ctx context.Context) *Runtime {
	rt, ok := ctx.Value(runtimeContextKey).(*Runtime)
	if !ok || rt == nil {
		panic("fmutools: Runtime not found in context, missing PersistentPreRunE?")
	}
	return rt
}

// Close releases the state database and log files.
func (rt *Runtime) Close() error {
	var first error
	if rt.State != nil {
		first = rt.State.Close()
	}
	if rt.Log != nil {
		if err := rt.Log.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OutputFormat is the table format for this invocation: --json wins over
// --output, which wins over output.format.
func (rt *Runtime) OutputFormat() string {
	switch {
	case rt.Flags.JSONOutput:
		return table.FormatJSON
	case rt.Flags.Output != "":
		return rt.Flags.Output
	case rt.Config != nil && rt.Config.Output.Format != "":
		return rt.Config.Output.Format
	default:
		return table.FormatTable
	}
}

// Render writes t to w in the invocation's output format.
func (rt *Runtime) Render(w io.Writer, t *table.Table) error {
	return t.Render(w, rt.OutputFormat())
}
