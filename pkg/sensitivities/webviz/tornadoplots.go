package webviz

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/sensitivities/design"
	"github.com/f9-o/fmutools/pkg/sensitivities/tornado"
	"github.com/f9-o/fmutools/pkg/table"
)

// DefaultOutputDir holds the tornado CSV files when the configuration does
// not name one.
const DefaultOutputDir = "tornadoplots"

// Option configures AddWebvizTornadoPlots.
type Option func(*options)

type options struct {
	log     *slog.Logger
	workers int
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithWorkers bounds how many tornado tables are computed at once.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

// Plot is one computed tornado table and where it was written.
type Plot struct {
	Response    string
	Selectors   []string
	Combination []string
	Reference   string
	Path        string
	Result      *tornado.Result
}

type job struct {
	response  string
	combo     []string
	selection [][]string
	name      string
}

// AddWebvizTornadoPlots reads the tornado configuration at tornadoCfgPath,
// computes one tornado table per response and selection combination, writes
// them as CSV and appends a page referencing them to cfg.
func AddWebvizTornadoPlots(ctx context.Context, cfg *Config, tornadoCfgPath string, opts ...Option) error {
	_, err := BuildTornadoPlots(ctx, cfg, tornadoCfgPath, opts...)
	return err
}

// BuildTornadoPlots is AddWebvizTornadoPlots returning the computed plots.
func BuildTornadoPlots(ctx context.Context, cfg *Config, tornadoCfgPath string, opts ...Option) ([]Plot, error) {
	o := options{log: slog.Default(), workers: runtime.NumCPU()}
	for _, fn := range opts {
		fn(&o)
	}
	if cfg == nil {
		return nil, errs.Newf(errs.ErrWebvizConfig, "webviz.tornadoplots", "nil webviz config")
	}

	tc, err := LoadTornadoConfig(tornadoCfgPath)
	if err != nil {
		return nil, err
	}
	summary, err := tc.loadSummary()
	if err != nil {
		return nil, err
	}
	results, err := table.ReadFile(tc.resolve(tc.Results), "")
	if err != nil {
		return nil, err
	}

	outDir := tc.OutputDir
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	outDir = tc.resolve(outDir)

	var jobs []job
	used := map[string]bool{}
	for _, resp := range tc.Responses {
		for _, combo := range tornado.FindCombinations(tc.Selections) {
			name := uniqueName(plotName(resp, combo), used)
			jobs = append(jobs, job{response: resp, combo: combo, selection: comboSelection(combo), name: name})
		}
	}

	plots := make([]Plot, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.workers, 1))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opt := tc.options(j.response, j.selection)
			opt.Logger = o.log
			res, err := tornado.CalcTornadoInput(summary, results, opt)
			if err != nil {
				return errs.Wrap(err, errs.ErrTornadoInput, "webviz.tornadoplots."+j.name)
			}
			path := filepath.Join(outDir, j.name+".csv")
			if err := res.Table().WriteCSVFile(path); err != nil {
				return err
			}
			plots[i] = Plot{
				Response:    j.response,
				Selectors:   tc.Selectors,
				Combination: j.combo,
				Reference:   cmp.Or(opt.Reference, tornado.DefaultReference),
				Path:        path,
				Result:      res,
			}
			o.log.Debug("tornado plot written", "response", j.response, "selection", j.combo, "path", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	title := tc.Title
	if title == "" {
		title = "Tornado plots"
	}
	page := Page{Title: title}
	for _, p := range plots {
		page.Content = append(page.Content,
			markdownHeader(p.Response, tc.Selectors, p.Combination),
			map[string]any{"TornadoPlot": TornadoPlot{
				Data:           p.Path,
				ReferenceValue: p.Result.RefValue,
				Scale:          p.Result.Scale,
				Response:       p.Response,
			}},
		)
	}
	cfg.Pages = append(cfg.Pages, page)

	o.log.Info("tornado page added", "title", title, "plots", len(plots))
	return plots, nil
}

func (tc *TornadoConfig) loadSummary() ([]design.SensSummary, error) {
	if tc.DesignMatrix != "" {
		return design.SummarizeDesignFile(tc.resolve(tc.DesignMatrix), tc.Sheet)
	}
	t, err := table.ReadFile(tc.resolve(tc.DesignSummary), tc.Sheet)
	if err != nil {
		return nil, err
	}
	return design.ReadSummaryTable(t)
}

// comboSelection turns a combination into per-selector selection lists.
func comboSelection(combo []string) [][]string {
	out := make([][]string, len(combo))
	for i, v := range combo {
		out[i] = []string{v}
	}
	return out
}

func markdownHeader(response string, selectors, combo []string) string {
	if len(selectors) == 0 {
		return "### " + response
	}
	parts := make([]string, len(selectors))
	for i, s := range selectors {
		parts[i] = fmt.Sprintf("%s: %s", s, combo[i])
	}
	return fmt.Sprintf("### %s\n%s", response, strings.Join(parts, ", "))
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")

func plotName(response string, combo []string) string {
	parts := append([]string{response}, combo...)
	return fileNameReplacer.Replace(strings.Join(parts, "_"))
}

// uniqueName suffixes name with a counter when an earlier plot already
// sanitized to the same file name.
func uniqueName(name string, used map[string]bool) string {
	out := name
	for n := 2; used[strings.ToLower(out)]; n++ {
		out = name + "_" + strconv.Itoa(n)
	}
	used[strings.ToLower(out)] = true
	return out
}
