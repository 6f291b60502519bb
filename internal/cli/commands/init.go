// fmutools init: scaffold fmutools.yaml and an example design input.
package commands

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/f9-o/fmutools/internal/core/config"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/fileutil"
	"github.com/f9-o/fmutools/pkg/pprint"
)

// ExampleDesignFile is the design input written next to fmutools.yaml.
const ExampleDesignFile = "design_input.yaml"

func NewInitCmd() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold fmutools.yaml and an example design input",
		Example: `  fmutools init
  fmutools init --path ./drogon`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetPath == "" {
				targetPath = "."
			}
			cfgFile := filepath.Join(targetPath, config.ProjectFile)
			if _, err := os.Stat(cfgFile); err == nil {
				return errs.New(errs.ErrValidation, "init", errors.New("config already exists")).
					WithResource(cfgFile).
					WithAdvice("delete it first to reinitialise")
			}

			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return errs.New(errs.ErrConfig, "init", err).WithResource(targetPath)
			}
			if err := writeText(cfgFile, config.DefaultConfigTemplate); err != nil {
				return err
			}
			pprint.Success("Created %s", cfgFile)

			designFile := filepath.Join(targetPath, ExampleDesignFile)
			if _, err := os.Stat(designFile); err == nil {
				pprint.Warn("Kept existing %s", designFile)
			} else {
				if err := writeText(designFile, config.ExampleDesignTemplate); err != nil {
					return err
				}
				pprint.Success("Created %s", designFile)
			}

			pprint.Info("Edit the design input, then run: fmutools design generate --input %s --out design.xlsx", ExampleDesignFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", ".", "Target directory")
	return cmd
}

func writeText(path, content string) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
	if err != nil {
		return errs.New(errs.ErrConfig, "init", err).WithResource(path)
	}
	return nil
}
