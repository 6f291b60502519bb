// fmutools design: generate, summarize and convert one-by-one designs.
package commands

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/internal/core/logger"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
)

func NewDesignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Generate, summarize and convert one-by-one design matrices",
	}
	cmd.AddCommand(
		newDesignGenerateCmd(),
		newDesignSummarizeCmd(),
		newDesignConvertCmd(),
	)
	return cmd
}

func newDesignGenerateCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a design matrix from a YAML or Excel design input",
		Example: `  fmutools design generate --input design_input.yaml --out design.xlsx
  fmutools design generate --input design_input.xlsx --out design.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			in, err := loadDesignInput(rt, input)
			if err != nil {
				return err
			}

			m := design.NewMatrix(design.WithLogger(rt.Log.Logger))
			rec := &v1.DesignRecord{Input: input, Output: output, Seeds: in.Seeds}
			for _, s := range in.Sensitivities {
				rec.Sensitivities = append(rec.Sensitivities, s.Name)
			}

			err = m.Generate(cmd.Context(), in)
			if err == nil {
				err = writeDesign(m, output)
			}
			rec.Realisations = m.NumRealisations()
			rec.Parameters = m.Parameters
			finish(rt, "design.generate", []string{input}, []string{output}, err, func(status v1.RunStatus, msg string) error {
				rec.Status, rec.Error = status, msg
				return rt.State.PutDesign(rec)
			})
			if err != nil {
				return err
			}

			pprint.Success("Wrote %s", output)
			pprint.KV("Realisations", strconv.Itoa(rec.Realisations))
			pprint.KV("Sensitivities", strings.Join(rec.Sensitivities, ", "))
			pprint.KV("Parameters", strconv.Itoa(len(rec.Parameters)))
			pprint.KV("Record", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Design input (.yaml or .xlsx)")
	cmd.Flags().StringVar(&output, "out", "", "Design matrix to write (.xlsx or .csv)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDesignSummarizeCmd() *cobra.Command {
	var designPath, sheet, out string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a design matrix by sensitivity and case",
		Example: `  fmutools design summarize --design design.xlsx
  fmutools design summarize --design design.csv --out summary.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			if sheet == "" {
				sheet = rt.Config.Design.Sheet
			}

			sums, err := design.SummarizeDesignFile(designPath, sheet)
			if err != nil {
				return err
			}
			t := design.SummaryTable(sums)

			if out != "" {
				if err := t.WriteCSVFile(out); err != nil {
					return err
				}
				rt.Log.Audit(logger.AuditEntry{Op: "design.summarize", Inputs: []string{designPath}, Outputs: []string{out}, Result: "success"})
				pprint.Success("Wrote %s (%d sensitivities)", out, len(sums))
				return nil
			}
			return rt.Render(cmd.OutOrStdout(), t)
		},
	}

	cmd.Flags().StringVarP(&designPath, "design", "d", "", "Design matrix (.xlsx or .csv)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Design sheet name (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "Write the summary as CSV instead of printing it")
	_ = cmd.MarkFlagRequired("design")
	return cmd
}

func newDesignConvertCmd() *cobra.Command {
	var input, out string

	cmd := &cobra.Command{
		Use:     "convert",
		Short:   "Convert an Excel design input workbook to YAML",
		Example: `  fmutools design convert --input design_input.xlsx --out design_input.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			in, err := design.Excel2DictDesign(input, rt.Config.SheetNames())
			if err != nil {
				return err
			}
			if err := in.WriteYAML(out); err != nil {
				return err
			}
			rt.Log.Audit(logger.AuditEntry{Op: "design.convert", Inputs: []string{input}, Outputs: []string{out}, Result: "success"})
			pprint.Success("Wrote %s (%d sensitivities)", out, len(in.Sensitivities))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Design input workbook (.xlsx)")
	cmd.Flags().StringVar(&out, "out", "", "YAML file to write")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// loadDesignInput reads a YAML input or an Excel input workbook.
func loadDesignInput(rt *Runtime, path string) (*design.Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return design.LoadInput(path)
	case ".xlsx", ".xlsm":
		return design.Excel2DictDesign(path, rt.Config.SheetNames())
	default:
		return nil, errs.New(errs.ErrDesignInput, "design.input", errors.New("unsupported input format")).
			WithResource(path).
			WithAdvice("use a .yaml or .xlsx design input")
	}
}

func writeDesign(m *design.Matrix, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return m.WriteCSV(path)
	case ".xlsx":
		return m.WriteXLSX(path)
	default:
		return errs.New(errs.ErrTableWrite, "design.write", errors.New("unsupported output format")).
			WithResource(path).
			WithAdvice("use a .xlsx or .csv output file")
	}
}

// finish audits a command and persists its run record with the outcome.
// A failure to persist is logged, never returned.
func finish(rt *Runtime, op string, inputs, outputs []string, runErr error, persist func(v1.RunStatus, string) error) {
	status, result, msg := v1.RunSuccess, "success", ""
	if runErr != nil {
		status, result, msg = v1.RunFailed, "failure", runErr.Error()
	}
	if err := persist(status, msg); err != nil {
		rt.Log.Warn("run record not saved", "op", op, "err", err)
	}
	rt.Log.Audit(logger.AuditEntry{Op: op, Inputs: inputs, Outputs: outputs, Result: result})
}
