package design

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// Reserved design matrix columns.
const (
	ColReal     = "REAL"
	ColSensName = "SENSNAME"
	ColSensCase = "SENSCASE"
	ColSeed     = "RMS_SEED"
)

// Case names written for sensitivities without named scenarios.
const (
	CaseMonteCarlo = "p10_p90"
	CaseRef        = "ref"
)

// Sheet names written by Matrix.WriteXLSX.
const (
	DesignSheet   = "DesignSheet01"
	DefaultsSheet = "DefaultValues"
)

// firstDefaultSeed is the seed of realization index 0 when Seeds is "default".
const firstDefaultSeed = 1000

// Row is one realization of the design.
type Row struct {
	Real     int
	SensName string
	SensCase string
	Seed     int
	Values   map[string]string

	// index of the realization within its sensitivity case
	member int
}

// Matrix is a generated one-by-one design.
type Matrix struct {
	Parameters []string
	Defaults   []ParamValue
	Rows       []Row
	HasSeeds   bool

	log *slog.Logger
}

// Option configures a Matrix.
type Option func(*Matrix)

// WithLogger sets the logger used for generation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matrix) { m.log = l }
}

// NewMatrix returns an empty design matrix.
func NewMatrix(opts ...Option) *Matrix {
	m := &Matrix{log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// valueBlock holds per-member values for a fixed list of parameters.
type valueBlock struct {
	params []string
	values [][]string
}

func (b *valueBlock) lookup(member int, param string) (string, bool) {
	if b == nil {
		return "", false
	}
	j := slices.Index(b.params, param)
	if j < 0 || member >= len(b.values) {
		return "", false
	}
	return b.values[member][j], true
}

// caseBlock is the set of realizations generated for one SENSCASE.
type caseBlock struct {
	name string
	n    int
	vals valueBlock
}

// Generate replaces the matrix content with the design described by in.
func (m *Matrix) Generate(ctx context.Context, in *Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	m.Parameters, m.Rows, m.HasSeeds = nil, nil, false
	m.Defaults = slices.Clone(in.DefaultValues)

	smp := newSampler(in.DistributionSeed, m.log)
	maxReals := in.maxRealisations()

	seeds, err := loadSeeds(in, maxReals)
	if err != nil {
		return err
	}
	m.HasSeeds = seeds != nil

	bg, err := background(in, smp, maxReals)
	if err != nil {
		return err
	}

	real := in.StartRealNum
	for _, sens := range in.Sensitivities {
		if err := ctx.Err(); err != nil {
			return err
		}
		blocks, err := sensitivityBlocks(in, sens, smp, bg)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			for _, p := range b.vals.params {
				m.addParam(p)
			}
			for k := 0; k < b.n; k++ {
				row := Row{
					Real:     real,
					SensName: sens.Name,
					SensCase: b.name,
					Values:   make(map[string]string),
					member:   k,
				}
				if seeds != nil {
					row.Seed = seeds[k]
				}
				if k < len(b.vals.values) {
					for j, p := range b.vals.params {
						row.Values[p] = b.vals.values[k][j]
					}
				}
				m.Rows = append(m.Rows, row)
				real++
			}
		}
		m.log.Debug("sensitivity generated", "sensname", sens.Name, "type", sens.Type, "blocks", len(blocks))
	}

	if bg != nil {
		for _, p := range bg.params {
			m.addParam(p)
		}
	}
	return m.fill(bg)
}

// fill sets every parameter a row does not carry from the background or the
// default values.
func (m *Matrix) fill(bg *valueBlock) error {
	defaults := make(map[string]string, len(m.Defaults))
	for _, dv := range m.Defaults {
		defaults[dv.Name] = dv.Value
	}

	for i := range m.Rows {
		row := &m.Rows[i]
		for _, p := range m.Parameters {
			if _, ok := row.Values[p]; ok {
				continue
			}
			if v, ok := bg.lookup(row.member, p); ok {
				row.Values[p] = v
				continue
			}
			v, ok := defaults[p]
			if !ok {
				return errs.Newf(errs.ErrDesignDefaults, "design.fill", "parameter %q has no default value", p).
					WithResource(row.SensName).
					WithAdvice("add the parameter to defaultvalues")
			}
			row.Values[p] = v
		}
	}
	return nil
}

func (m *Matrix) addParam(p string) {
	if p == ColReal || p == ColSensName || p == ColSensCase || p == ColSeed {
		return
	}
	if !slices.Contains(m.Parameters, p) {
		m.Parameters = append(m.Parameters, p)
	}
}

func sensitivityBlocks(in *Input, sens Sensitivity, smp *sampler, bg *valueBlock) ([]caseBlock, error) {
	n := in.numReal(sens)
	op := "design.generate." + sens.Name

	switch strings.ToLower(sens.Type) {
	case TypeSeed:
		return []caseBlock{{name: CaseMonteCarlo, n: n}}, nil

	case TypeRef:
		return []caseBlock{{name: CaseRef, n: n}}, nil

	case TypeBackground:
		if bg == nil {
			return nil, errs.Newf(errs.ErrDesignInput, op, "no background values")
		}
		if len(bg.values) < n {
			return nil, errs.Newf(errs.ErrDesignExtern, op,
				"background has %d realizations, sensitivity needs %d", len(bg.values), n)
		}
		return []caseBlock{{name: CaseMonteCarlo, n: n, vals: *bg}}, nil

	case TypeScenario:
		blocks := make([]caseBlock, 0, len(sens.Cases))
		for _, c := range sens.Cases {
			b := caseBlock{name: c.Name, n: n}
			row := make([]string, len(c.Values))
			for j, pv := range c.Values {
				b.vals.params = append(b.vals.params, pv.Name)
				row[j] = pv.Value
			}
			for k := 0; k < n; k++ {
				b.vals.values = append(b.vals.values, row)
			}
			blocks = append(blocks, b)
		}
		return blocks, nil

	case TypeDist:
		samples, err := smp.sample(op, sens.Parameters, sens.Correlations, n)
		if err != nil {
			return nil, err
		}
		return []caseBlock{{name: CaseMonteCarlo, n: n, vals: toBlock(sens.Parameters, samples)}}, nil

	case TypeExtern:
		names := make([]string, len(sens.Parameters))
		for i, p := range sens.Parameters {
			names[i] = p.Name
		}
		vals, err := readExtern(in.resolve(sens.ExternFile), names, n)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrDesignExtern, op)
		}
		return []caseBlock{{name: CaseMonteCarlo, n: n, vals: *vals}}, nil
	}
	return nil, errs.Newf(errs.ErrDesignInput, op, "unknown sensitivity type %q", sens.Type)
}

func background(in *Input, smp *sampler, maxReals int) (*valueBlock, error) {
	bg := in.Background
	if bg == nil {
		return nil, nil
	}
	if bg.ExternFile != "" {
		vals, err := readExtern(in.resolve(bg.ExternFile), nil, maxReals)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrDesignExtern, "design.background")
		}
		return vals, nil
	}
	samples, err := smp.sample("design.background", bg.Parameters, bg.Correlations, maxReals)
	if err != nil {
		return nil, err
	}
	b := toBlock(bg.Parameters, samples)
	return &b, nil
}

func toBlock(params []ParamDist, samples [][]Value) valueBlock {
	b := valueBlock{params: make([]string, len(params)), values: make([][]string, len(samples))}
	for i, p := range params {
		b.params[i] = p.Name
	}
	for k, row := range samples {
		b.values[k] = make([]string, len(row))
		for j, v := range row {
			b.values[k][j] = v.String()
		}
	}
	return b
}

// readExtern reads the first n rows of params from an external table. With no
// params, every non-reserved column is used.
func readExtern(path string, params []string, n int) (*valueBlock, error) {
	t, err := table.ReadFile(path, "")
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		for _, c := range t.Columns {
			if c != ColReal && c != ColSensName && c != ColSensCase && c != ColSeed && c != "" {
				params = append(params, c)
			}
		}
	}
	if t.Len() < n {
		return nil, errs.Newf(errs.ErrDesignExtern, "design.read_extern",
			"%d rows available, %d needed", t.Len(), n).WithResource(path)
	}
	sel, err := t.Select(params...)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrDesignExtern, "design.read_extern")
	}
	return &valueBlock{params: sel.Columns, values: sel.Rows[:n]}, nil
}

// loadSeeds returns the RMS seed for each realization index, or nil when the
// design carries no seeds.
func loadSeeds(in *Input, maxReals int) ([]int, error) {
	mode := strings.TrimSpace(in.Seeds)
	switch strings.ToLower(mode) {
	case "", SeedsNone:
		return nil, nil
	case SeedsDefault:
		seeds := make([]int, maxReals)
		for i := range seeds {
			seeds[i] = firstDefaultSeed + i
		}
		return seeds, nil
	}

	path := in.resolve(mode)
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.ErrDesignSeeds, "design.seeds", err).WithResource(path)
	}
	defer f.Close()

	var seeds []int
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		txt := strings.TrimSpace(sc.Text())
		if txt == "" {
			continue
		}
		v, err := strconv.Atoi(txt)
		if err != nil {
			return nil, errs.Newf(errs.ErrDesignSeeds, "design.seeds", "line %d: not an integer: %q", line, txt).
				WithResource(path)
		}
		seeds = append(seeds, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(errs.ErrDesignSeeds, "design.seeds", err).WithResource(path)
	}
	if len(seeds) < maxReals {
		return nil, errs.Newf(errs.ErrDesignSeeds, "design.seeds",
			"%d seeds in file, design needs %d", len(seeds), maxReals).WithResource(path)
	}
	return seeds[:maxReals], nil
}

// Table returns the design sheet.
func (m *Matrix) Table() *table.Table {
	cols := []string{ColReal, ColSensName, ColSensCase}
	if m.HasSeeds {
		cols = append(cols, ColSeed)
	}
	cols = append(cols, m.Parameters...)

	t := table.New(cols...)
	for _, r := range m.Rows {
		cells := []string{strconv.Itoa(r.Real), r.SensName, r.SensCase}
		if m.HasSeeds {
			cells = append(cells, strconv.Itoa(r.Seed))
		}
		for _, p := range m.Parameters {
			cells = append(cells, r.Values[p])
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// DefaultsTable returns the default values sheet.
func (m *Matrix) DefaultsTable() *table.Table {
	t := table.New("param_name", "default_value")
	for _, dv := range m.Defaults {
		t.Rows = append(t.Rows, []string{dv.Name, dv.Value})
	}
	return t
}

// WriteXLSX writes the design and default value sheets to a workbook.
func (m *Matrix) WriteXLSX(path string) error {
	return table.WriteXLSX(path,
		table.Sheet{Name: DesignSheet, Table: m.Table()},
		table.Sheet{Name: DefaultsSheet, Table: m.DefaultsTable()},
	)
}

// WriteCSV writes the design sheet as CSV.
func (m *Matrix) WriteCSV(path string) error {
	return m.Table().WriteCSVFile(path)
}

// NumRealisations returns the number of rows in the design.
func (m *Matrix) NumRealisations() int { return len(m.Rows) }
