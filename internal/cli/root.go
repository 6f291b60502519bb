// Package cli defines the root Cobra command and global flag/context setup.
package cli

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/f9-o/fmutools/internal/cli/commands"
	"github.com/f9-o/fmutools/internal/core/config"
	"github.com/f9-o/fmutools/internal/core/logger"
	"github.com/f9-o/fmutools/internal/core/state"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/table"
)

// globalFlags holds values bound to persistent global flags.
type globalFlags struct {
	configFile string
	debug      bool
	jsonOutput bool
	output     string
}

// app is the command tree plus the runtime its last invocation opened.
type app struct {
	root *cobra.Command
	rt   *commands.Runtime
}

// execute runs the command tree and releases the runtime whether or not the
// command failed.
func (a *app) execute() error {
	err := a.root.Execute()
	if a.rt != nil {
		if cerr := a.rt.Close(); err == nil {
			err = cerr
		}
		a.rt = nil
	}
	return err
}

// newApp builds the fmutools command tree.
func newApp() *app {
	var flags globalFlags
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "fmutools",
		Short:         "fmutools: design matrices, tornado input and volumetrics for FMU workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			pprint.Out, pprint.ErrOut = cmd.OutOrStdout(), cmd.ErrOrStderr()
			if skipsRuntime(cmd) {
				return nil
			}
			var err error
			a.rt, err = initRuntime(cmd, flags)
			return err
		},
	}

	origHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		pprint.Out = cmd.OutOrStdout()
		if cmd == cmd.Root() {
			pprint.PrintBanner(commands.Version, commands.BuildDate)
		}
		origHelp(cmd, args)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to fmutools.yaml (defaults to auto-discovery)")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug-level logging")
	pf.BoolVar(&flags.jsonOutput, "json", false, "Output in machine-readable JSON")
	pf.StringVarP(&flags.output, "output", "o", "", "Table format: table, markdown, csv or json")

	rootCmd.AddCommand(
		commands.NewInitCmd(),
		commands.NewDesignCmd(),
		commands.NewTornadoCmd(),
		commands.NewWebvizCmd(),
		commands.NewVolumetricsCmd(),
		commands.NewHistoryCmd(),
		commands.NewVersionCmd(),
	)
	a.root = rootCmd
	return a
}

// Execute runs the CLI. Called by main().
func Execute() {
	if err := newApp().execute(); err != nil {
		if e := errs.As(err); e != nil {
			pprint.Error("%s", e.UserMessage())
		} else {
			pprint.Error("%s", err)
		}
		os.Exit(1)
	}
}

func skipsRuntime(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "completion", "help", "init":
		return true
	}
	return false
}

// initRuntime loads config, logger, and state before each command runs.
func initRuntime(cmd *cobra.Command, flags globalFlags) (*commands.Runtime, error) {
	if flags.output != "" && !slices.Contains(table.Formats, flags.output) {
		return nil, errs.Newf(errs.ErrValidation, "cli.flags", "unknown output format %q", flags.output).
			WithAdvice("use one of table, markdown, csv, json")
	}

	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	home := config.Home()
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(home, "logs", "fmutools.log")
	}
	log, err := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logFile,
		Home:   home,
		Debug:  flags.debug,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, errs.New(errs.ErrConfig, "cli.logger", err).WithResource(logFile)
	}

	db, err := state.Open(cfg.StatePath())
	if err != nil {
		log.Close()
		return nil, err
	}

	rt := &commands.Runtime{
		Config: cfg,
		Log:    log,
		State:  db,
		Flags: commands.GlobalFlags{
			Debug:      flags.debug,
			JSONOutput: flags.jsonOutput,
			Output:     flags.output,
		},
	}
	cmd.SetContext(commands.NewContext(cmd.Context(), rt))
	return rt, nil
}
