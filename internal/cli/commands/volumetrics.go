// fmutools volumetrics: convert RMS volumetrics reports to tables.
package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/f9-o/fmutools/internal/core/logger"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/rms/volumetrics"
	"github.com/f9-o/fmutools/pkg/table"
)

func NewVolumetricsCmd() *cobra.Command {
	var phase, out string

	cmd := &cobra.Command{
		Use:   "volumetrics <report.txt>",
		Short: "Convert an RMS volumetrics text report to a table",
		Args:  cobra.ExactArgs(1),
		Example: `  fmutools volumetrics geogrid_vol_oil_1.txt
  fmutools volumetrics geogrid_vol_oil_1.txt --out volumes.csv
  fmutools volumetrics merge --oil geo_oil_1.txt --gas geo_gas_1.txt --out volumes.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			p, err := parsePhase(phase)
			if err != nil {
				return err
			}
			t, err := volumetrics.Txt2Table(args[0], volumetrics.Options{Phase: p, Logger: rt.Log.Logger})
			if err != nil {
				return err
			}
			return emitTable(cmd, rt, "volumetrics", args, t, out)
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "oil, gas or total (default: guessed from the file name)")
	cmd.Flags().StringVar(&out, "out", "", "Write the table as CSV")
	cmd.AddCommand(newVolumetricsMergeCmd())
	return cmd
}

func newVolumetricsMergeCmd() *cobra.Command {
	var oil, gas, total, out string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge oil, gas and total reports on their zone/region columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			paths := map[volumetrics.Phase]string{}
			for ph, path := range map[volumetrics.Phase]string{
				volumetrics.PhaseOil:   oil,
				volumetrics.PhaseGas:   gas,
				volumetrics.PhaseTotal: total,
			} {
				if path != "" {
					paths[ph] = path
				}
			}
			t, err := volumetrics.Merge(paths, volumetrics.Options{Logger: rt.Log.Logger})
			if err != nil {
				return err
			}

			var inputs []string
			for _, ph := range volumetrics.Phases {
				if p, ok := paths[ph]; ok {
					inputs = append(inputs, p)
				}
			}
			return emitTable(cmd, rt, "volumetrics.merge", inputs, t, out)
		},
	}

	cmd.Flags().StringVar(&oil, "oil", "", "Oil report")
	cmd.Flags().StringVar(&gas, "gas", "", "Gas report")
	cmd.Flags().StringVar(&total, "total", "", "Total (bulk/pore) report")
	cmd.Flags().StringVar(&out, "out", "", "Write the table as CSV")
	cmd.MarkFlagsOneRequired("oil", "gas", "total")
	return cmd
}

func parsePhase(s string) (volumetrics.Phase, error) {
	if s == "" {
		return "", nil
	}
	p := volumetrics.Phase(strings.ToUpper(s))
	for _, known := range volumetrics.Phases {
		if p == known {
			return p, nil
		}
	}
	return "", errs.New(errs.ErrValidation, "volumetrics.phase", errors.New("unknown phase")).
		WithResource(s).
		WithAdvice("use oil, gas or total")
}

// emitTable writes t as CSV to out, or renders it when out is empty.
func emitTable(cmd *cobra.Command, rt *Runtime, op string, inputs []string, t *table.Table, out string) error {
	if out == "" {
		return rt.Render(cmd.OutOrStdout(), t)
	}
	if err := t.WriteCSVFile(out); err != nil {
		return err
	}
	rt.Log.Audit(logger.AuditEntry{Op: op, Inputs: inputs, Outputs: []string{out}, Result: "success"})
	pprint.Success("Wrote %s (%d rows, %d columns)", out, t.Len(), len(t.Columns))
	return nil
}
