// fmutools tornado: calculate tornado plot input and view stored results.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	v1 "github.com/f9-o/fmutools/api/v1"
	"github.com/f9-o/fmutools/internal/tui"
	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/pprint"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
	"github.com/f9-o/fmutools/pkg/table"
)

func NewTornadoCmd() *cobra.Command {
	var (
		summaryPath, designPath, sheet string
		resultsPath, resultsSheet      string
		response, reference, scale     string
		selectors                      []string
		cutBySeed, noSort, ui          bool
		out                            string
	)

	cmd := &cobra.Command{
		Use:   "tornado",
		Short: "Calculate tornado plot input for one response",
		Long: `Calculate tornado plot input for one response from a design (or its
summary) and a results table with a REAL column. Each --selector filters the
results on a column; "Total" accepts every value. The result is saved to the
run history and can be browsed with --ui.`,
		Example: `  fmutools tornado --design design.xlsx --results volumes.csv --response STOIIP_OIL
  fmutools tornado --summary summary.csv --results volumes.csv --response STOIIP_OIL \
      --selector ZONE=Upper,Lower --selector REGION=Total --scale absolute --ui`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			selNames, selValues, err := parseSelectors(selectors)
			if err != nil {
				return err
			}
			summary, source, err := loadSummary(rt, summaryPath, designPath, sheet)
			if err != nil {
				return err
			}
			results, err := table.ReadFile(resultsPath, resultsSheet)
			if err != nil {
				return err
			}

			opts := rt.Config.TornadoOptions(response)
			opts.Logger = rt.Log.Logger
			opts.Selectors, opts.Selection = selNames, selValues
			if cmd.Flags().Changed("reference") {
				opts.Reference = reference
			}
			if cmd.Flags().Changed("scale") {
				opts.Scale = scale
			}
			if cmd.Flags().Changed("cutbyseed") {
				opts.CutBySeed = cutBySeed
			}
			if noSort {
				opts.SortSens = false
			}

			res, err := tornado.CalcTornadoInput(summary, results, opts)
			rec := NewTornadoRecord(res, opts, source, resultsPath)
			outputs := []string{}
			if err == nil && out != "" {
				err = res.Table().WriteCSVFile(out)
				outputs = append(outputs, out)
			}
			finish(rt, "tornado", []string{source, resultsPath}, outputs, err, func(status v1.RunStatus, msg string) error {
				rec.Status, rec.Error = status, msg
				return rt.State.PutTornado(rec)
			})
			if err != nil {
				return err
			}

			if ui {
				return runViewer(rt, rec.Response, rec.ID)
			}
			if out != "" {
				pprint.Success("Wrote %s (%d sensitivities)", out, len(res.Rows))
				return nil
			}
			if err := rt.Render(cmd.OutOrStdout(), res.Table()); err != nil {
				return err
			}
			if rt.OutputFormat() == table.FormatTable {
				pprint.Panel(rec.Title(), pprint.TornadoBars(barsOf(res), 72))
				pprint.KV("Reference", fmt.Sprintf("%s = %s", opts.Reference, table.FormatFloat(res.RefValue)))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&summaryPath, "summary", "", "Design summary (.csv or .xlsx) written by 'design summarize'")
	f.StringVarP(&designPath, "design", "d", "", "Design matrix (.xlsx or .csv)")
	f.StringVar(&sheet, "sheet", "", "Design sheet name (default from config)")
	f.StringVarP(&resultsPath, "results", "r", "", "Results table (.csv or .xlsx) with a REAL column")
	f.StringVar(&resultsSheet, "results-sheet", "", "Results sheet name (default first sheet)")
	f.StringVar(&response, "response", "", "Response column, e.g. STOIIP_OIL")
	f.StringArrayVar(&selectors, "selector", nil, "Filter COLUMN=value[,value...]; repeatable")
	f.StringVar(&reference, "reference", "", "Reference sensitivity (default from config)")
	f.StringVar(&scale, "scale", "", "percentage or absolute (default from config)")
	f.BoolVar(&cutBySeed, "cutbyseed", false, "Drop sensitivities inside the reference seed band")
	f.BoolVar(&noSort, "no-sort", false, "Keep design order instead of sorting by bar width")
	f.BoolVar(&ui, "ui", false, "Open the result in the interactive viewer")
	f.StringVar(&out, "out", "", "Write the tornado table as CSV")
	cmd.MarkFlagsOneRequired("summary", "design")
	cmd.MarkFlagsMutuallyExclusive("summary", "design")
	_ = cmd.MarkFlagRequired("results")
	_ = cmd.MarkFlagRequired("response")

	cmd.AddCommand(newTornadoViewCmd())
	return cmd
}

func newTornadoViewCmd() *cobra.Command {
	var response string

	cmd := &cobra.Command{
		Use:     "view",
		Short:   "Browse stored tornado results in the interactive viewer",
		Example: `  fmutools tornado view --response STOIIP_OIL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			return runViewer(rt, response, "")
		},
	}
	cmd.Flags().StringVar(&response, "response", "", "Only show results for this response")
	return cmd
}

// loadSummary reads a summary table or summarizes a design, and returns the
// path it used.
func loadSummary(rt *Runtime, summaryPath, designPath, sheet string) ([]design.SensSummary, string, error) {
	if summaryPath != "" {
		t, err := table.ReadFile(summaryPath, "")
		if err != nil {
			return nil, "", err
		}
		sums, err := design.ReadSummaryTable(t)
		return sums, summaryPath, err
	}
	if sheet == "" {
		sheet = rt.Config.Design.Sheet
	}
	sums, err := design.SummarizeDesignFile(designPath, sheet)
	return sums, designPath, err
}

// parseSelectors turns COLUMN=a,b flags into selector names and selections.
func parseSelectors(flags []string) ([]string, [][]string, error) {
	var names []string
	var sels [][]string
	for _, f := range flags {
		name, vals, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(vals) == "" {
			return nil, nil, errs.New(errs.ErrValidation, "tornado.selector", errors.New("expected COLUMN=value[,value...]")).
				WithResource(f)
		}
		var sel []string
		for _, v := range strings.Split(vals, ",") {
			if v = strings.TrimSpace(v); v != "" {
				sel = append(sel, v)
			}
		}
		names = append(names, name)
		sels = append(sels, sel)
	}
	return names, sels, nil
}

// NewTornadoRecord converts a tornado result into a run record. res may be
// nil when the calculation failed.
func NewTornadoRecord(res *tornado.Result, opts tornado.Options, designPath, resultsPath string) *v1.TornadoRecord {
	rec := &v1.TornadoRecord{
		Design:    designPath,
		Results:   resultsPath,
		Response:  opts.Response,
		Reference: opts.Reference,
		Scale:     opts.Scale,
	}
	if len(opts.Selectors) > 0 {
		rec.Selection = map[string]string{}
		for i, s := range opts.Selectors {
			rec.Selection[s] = strings.Join(opts.Selection[i], "+")
		}
	}
	if res == nil {
		return rec
	}
	rec.Scale = res.Scale
	rec.RefValue = res.RefValue
	for _, r := range res.Rows {
		rec.Bars = append(rec.Bars, v1.TornadoBar{
			SensName:   r.SensName,
			Low:        r.Low,
			High:       r.High,
			LeftLabel:  r.LeftLabel,
			RightLabel: r.RightLabel,
			TrueLow:    r.TrueLow,
			TrueHigh:   r.TrueHigh,
			LowReals:   r.LowReals,
			HighReals:  r.HighReals,
		})
	}
	return rec
}

func barsOf(res *tornado.Result) []pprint.Bar {
	bars := make([]pprint.Bar, len(res.Rows))
	for i, r := range res.Rows {
		bars[i] = pprint.Bar{Label: r.SensName, Low: r.Low, High: r.High}
	}
	return bars
}

// runViewer opens the tornado viewer on the stored results for response,
// highlighting the record with id first when given.
func runViewer(rt *Runtime, response, id string) error {
	recs, err := rt.State.ListTornado(response)
	if err != nil {
		return err
	}
	for i, r := range recs {
		if r.ID == id && i > 0 {
			recs[0], recs[i] = recs[i], recs[0]
			break
		}
	}

	lines := make(chan string, 256)
	viewLog, err := rt.Log.ForTUI(lines)
	if err != nil {
		close(lines)
		return errs.New(errs.ErrInternal, "tornado.view", err)
	}
	defer func() {
		_ = viewLog.Close()
		close(lines)
		slog.SetDefault(rt.Log.Logger)
	}()

	app := tui.New(tui.Config{
		Project:  rt.Config.Project.Name,
		Records:  recs,
		Source:   rt.State,
		Response: response,
		LogLines: lines,
		Log:      viewLog,
	})
	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return errs.New(errs.ErrInternal, "tornado.view", fmt.Errorf("tui: %w", err))
	}
	return nil
}
