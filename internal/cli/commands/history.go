// fmutools history: list persisted design and tornado runs.
package commands

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/table"
)

const timeLayout = "2006-01-02 15:04"

func NewHistoryCmd() *cobra.Command {
	var kind, response string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded design and tornado runs",
		Example: `  fmutools history
  fmutools history --kind tornado --response STOIIP_OIL
  fmutools history --json
  fmutools history --kind design -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			showDesign := kind == "" || kind == string(v1.KindDesign)
			showTornado := kind == "" || kind == string(v1.KindTornado)
			if !showDesign && !showTornado {
				return errs.New(errs.ErrValidation, "history", errors.New("unknown record kind")).
					WithResource(kind).
					WithAdvice("use design or tornado")
			}

			format := rt.OutputFormat()
			if format == table.FormatCSV && showDesign && showTornado {
				return errs.New(errs.ErrValidation, "history", errors.New("csv output holds one table")).
					WithAdvice("add --kind design or --kind tornado")
			}

			var designs []v1.DesignRecord
			var tornados []v1.TornadoRecord
			var err error
			if showDesign {
				if designs, err = rt.State.ListDesigns(); err != nil {
					return err
				}
			}
			if showTornado {
				if tornados, err = rt.State.ListTornado(response); err != nil {
					return err
				}
			}

			if format == table.FormatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"designs": designs, "tornado": tornados})
			}

			if showDesign {
				if format == table.FormatTable {
					pprint.Header("design runs")
				}
				if err := rt.Render(cmd.OutOrStdout(), designTable(designs)); err != nil {
					return err
				}
			}
			if showTornado {
				if format == table.FormatTable {
					pprint.Header("tornado runs")
				}
				if err := rt.Render(cmd.OutOrStdout(), tornadoTable(tornados)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "design or tornado (default: both)")
	cmd.Flags().StringVar(&response, "response", "", "Only list tornado runs for this response")
	return cmd
}

func designTable(recs []v1.DesignRecord) *table.Table {
	t := table.New("id", "created", "input", "output", "realisations", "sensitivities", "status")
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format(timeLayout),
			r.Input,
			r.Output,
			strconv.Itoa(r.Realisations),
			strings.Join(r.Sensitivities, ","),
			string(r.Status),
		})
	}
	return t
}

func tornadoTable(recs []v1.TornadoRecord) *table.Table {
	t := table.New("id", "created", "title", "reference", "scale", "bars", "status")
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format(timeLayout),
			r.Title(),
			r.Reference,
			r.Scale,
			strconv.Itoa(len(r.Bars)),
			string(r.Status),
		})
	}
	return t
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
