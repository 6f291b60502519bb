// fmutools webviz: add tornado plot pages to a webviz configuration.
package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
	"github.com/f9-o/fmutools/pkg/sensitivities/webviz"
	"github.com/f9-o/fmutools/pkg/table"
)

func NewWebvizCmd() *cobra.Command {
	var tornadoCfg, webvizCfg, out string
	var workers int

	cmd := &cobra.Command{
		Use:   "webviz",
		Short: "Add a page of tornado plots to a webviz configuration",
		Long: `Compute one tornado table per response and selector combination listed
in the tornado configuration, write them as CSV and append a page that
references them to the webviz configuration.`,
		Example: `  fmutools webviz --tornado-config tornado.yaml --webviz webviz.yaml
  fmutools webviz --tornado-config tornado.yaml --webviz webviz.yaml --out webviz_tornado.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			if out == "" {
				out = webvizCfg
			}

			cfg, err := webviz.LoadConfig(webvizCfg)
			if err != nil {
				return err
			}

			spin := pprint.NewSpinner("Computing tornado plots")
			if rt.OutputFormat() == table.FormatTable {
				spin.Start()
			}
			opts := []webviz.Option{webviz.WithLogger(rt.Log.Logger)}
			if workers > 0 {
				opts = append(opts, webviz.WithWorkers(workers))
			}
			plots, err := webviz.BuildTornadoPlots(cmd.Context(), cfg, tornadoCfg, opts...)
			spin.Stop(err == nil)
			if err == nil {
				err = webviz.WriteConfig(out, cfg)
			}

			outputs := []string{out}
			for _, p := range plots {
				outputs = append(outputs, p.Path)
			}
			finish(rt, "webviz.tornadoplots", []string{tornadoCfg, webvizCfg}, outputs, err, func(status v1.RunStatus, msg string) error {
				if status != v1.RunSuccess {
					return nil
				}
				for _, p := range plots {
					rec := NewTornadoRecord(p.Result, plotOptions(p), tornadoCfg, p.Path)
					rec.Status = status
					if err := rt.State.PutTornado(rec); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			tbl := table.New("response", "selection", "sensitivities", "file")
			for _, p := range plots {
				sel := strings.Join(p.Combination, ", ")
				if sel == "" {
					sel = tornado.SelectAll
				}
				tbl.Rows = append(tbl.Rows, []string{p.Response, sel, strconv.Itoa(len(p.Result.Rows)), p.Path})
			}
			if err := rt.Render(cmd.OutOrStdout(), tbl); err != nil {
				return err
			}
			if rt.OutputFormat() == table.FormatTable {
				pprint.Success("Updated %s with %d tornado plots", out, len(plots))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tornadoCfg, "tornado-config", "t", "", "Tornado configuration (YAML)")
	cmd.Flags().StringVarP(&webvizCfg, "webviz", "w", "", "Webviz configuration to extend (YAML)")
	cmd.Flags().StringVar(&out, "out", "", "Where to write the extended configuration (default: overwrite --webviz)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Tornado tables computed in parallel (default: CPU count)")
	_ = cmd.MarkFlagRequired("tornado-config")
	_ = cmd.MarkFlagRequired("webviz")
	return cmd
}

// plotOptions rebuilds the options a plot was computed with, for its run
// record.
func plotOptions(p webviz.Plot) tornado.Options {
	opts := tornado.Options{Response: p.Response, Reference: p.Reference, Selectors: p.Selectors}
	if p.Result != nil {
		opts.Scale = p.Result.Scale
	}
	for _, c := range p.Combination {
		opts.Selection = append(opts.Selection, []string{c})
	}
	return opts
}
