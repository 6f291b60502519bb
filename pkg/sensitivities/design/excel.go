package design

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/f9-o/fmutools/pkg/errs"
	"github.com/f9-o/fmutools/pkg/table"
)

// SheetNames names the sheets Excel2DictDesign reads.
type SheetNames struct {
	General  string
	Design   string
	Defaults string
}

// DefaultSheetNames are the sheet names of the standard design workbook.
var DefaultSheetNames = SheetNames{
	General:  "general_input",
	Design:   "designinput",
	Defaults: "defaultvalues",
}

func (s SheetNames) withDefaults() SheetNames {
	if s.General == "" {
		s.General = DefaultSheetNames.General
	}
	if s.Design == "" {
		s.Design = DefaultSheetNames.Design
	}
	if s.Defaults == "" {
		s.Defaults = DefaultSheetNames.Defaults
	}
	return s
}

// designinput columns.
const (
	colSensName   = "sensname"
	colNumReal    = "numreal"
	colType       = "type"
	colParamName  = "param_name"
	colDistName   = "dist_name"
	colDecimals   = "decimals"
	colCorrSheet  = "corr_sheet"
	colExternFile = "extern_file"
)

var distParamCols = []string{"dist_param1", "dist_param2", "dist_param3", "dist_param4"}

// Excel2DictDesign reads a design workbook into an Input.
func Excel2DictDesign(path string, sheets SheetNames) (*Input, error) {
	const op = "design.excel2dict"
	sheets = sheets.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrExcelSheet, op, err).WithResource(path)
	}
	defer func() { _ = f.Close() }()

	r := &workbookReader{f: f, path: path}
	in := &Input{BaseDir: filepath.Dir(path)}

	if err := r.general(sheets.General, in); err != nil {
		return nil, err
	}
	if in.DefaultValues, err = r.defaults(sheets.Defaults); err != nil {
		return nil, err
	}
	if in.Sensitivities, err = r.sensitivities(sheets.Design); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(path)
		}
		return nil, err
	}
	return in, nil
}

type workbookReader struct {
	f    *excelize.File
	path string
}

func (r *workbookReader) rows(sheet string) ([][]string, error) {
	rows, err := table.SheetRows(r.f, sheet)
	if err != nil {
		if e := errs.As(err); e != nil {
			return nil, e.WithResource(r.path)
		}
		return nil, err
	}
	return rows, nil
}

func (r *workbookReader) table(sheet string) (*table.Table, error) {
	rows, err := r.rows(sheet)
	if err != nil {
		return nil, err
	}
	t, err := table.FromRecords(rows)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrExcelSheet, "design.excel2dict."+sheet)
	}
	for i, c := range t.Columns {
		t.Columns[i] = strings.ToLower(c)
	}
	return t, nil
}

func (r *workbookReader) valueErr(sheet, format string, args ...any) error {
	return errs.Newf(errs.ErrExcelValue, "design.excel2dict."+sheet, format, args...).WithResource(r.path)
}

// general reads the key/value sheet.
func (r *workbookReader) general(sheet string, in *Input) error {
	rows, err := r.rows(sheet)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		val := ""
		if len(row) > 1 {
			val = strings.TrimSpace(row[1])
		}

		switch key {
		case "designtype":
			in.DesignType = val
		case "repeats":
			n, err := strconv.Atoi(val)
			if err != nil {
				return r.valueErr(sheet, "row %d: repeats %q is not an integer", i+1, val)
			}
			in.Repeats = n
		case "rms_seeds", "seeds":
			in.Seeds = val
		case "distribution_seed":
			if val == "" || strings.EqualFold(val, "none") {
				continue
			}
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return r.valueErr(sheet, "row %d: distribution_seed %q is not an integer", i+1, val)
			}
			in.DistributionSeed = &n
		case "startrealnum":
			n, err := strconv.Atoi(val)
			if err != nil {
				return r.valueErr(sheet, "row %d: startrealnum %q is not an integer", i+1, val)
			}
			in.StartRealNum = n
		case "background":
			if val == "" || strings.EqualFold(val, "none") {
				continue
			}
			bg, err := r.background(val)
			if err != nil {
				return err
			}
			in.Background = bg
		default:
			return r.valueErr(sheet, "row %d: unknown key %q", i+1, row[0])
		}
	}
	if in.DesignType == "" {
		return r.valueErr(sheet, "designtype is missing")
	}
	return nil
}

// background reads a sheet of parameter distributions or refers to an
// extern file when val is not a sheet in the workbook.
func (r *workbookReader) background(val string) (*Background, error) {
	if idx, err := r.f.GetSheetIndex(val); err != nil || idx < 0 {
		return &Background{ExternFile: val}, nil
	}
	t, err := r.table(val)
	if err != nil {
		return nil, err
	}
	bg := &Background{}
	for i := range t.Rows {
		if t.Get(i, colParamName) == "" {
			continue
		}
		p, err := r.paramDist(val, t, i)
		if err != nil {
			return nil, err
		}
		bg.Parameters = append(bg.Parameters, p)
		if cs := t.Get(i, colCorrSheet); cs != "" && bg.Correlations == nil {
			if bg.Correlations, err = r.correlation(cs); err != nil {
				return nil, err
			}
		}
	}
	return bg, nil
}

func (r *workbookReader) defaults(sheet string) ([]ParamValue, error) {
	rows, err := r.rows(sheet)
	if err != nil {
		return nil, err
	}
	var out []ParamValue
	header := true
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		pv := ParamValue{Name: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			pv.Value = strings.TrimSpace(row[1])
		}
		out = append(out, pv)
	}
	return out, nil
}

// sensitivities reads the designinput sheet. A row with a blank sensname
// adds parameters to the sensitivity above it.
func (r *workbookReader) sensitivities(sheet string) ([]Sensitivity, error) {
	t, err := r.table(sheet)
	if err != nil {
		return nil, err
	}
	if !t.Has(colSensName, colType) {
		return nil, r.valueErr(sheet, "designinput needs columns %s and %s", colSensName, colType)
	}

	var out []Sensitivity
	var cur *Sensitivity
	for i := range t.Rows {
		if name := t.Get(i, colSensName); name != "" {
			out = append(out, Sensitivity{
				Name:       name,
				Type:       strings.ToLower(t.Get(i, colType)),
				ExternFile: t.Get(i, colExternFile),
			})
			cur = &out[len(out)-1]
			if nr := t.Get(i, colNumReal); nr != "" {
				n, err := strconv.Atoi(nr)
				if err != nil {
					return nil, r.valueErr(sheet, "row %d: numreal %q is not an integer", i+2, nr)
				}
				cur.NumReal = n
			}
		} else if cur == nil {
			return nil, r.valueErr(sheet, "row %d: parameter row before the first sensitivity", i+2)
		}

		param := t.Get(i, colParamName)
		if param == "" {
			continue
		}
		switch cur.Type {
		case TypeScenario:
			if err := r.scenarioRow(sheet, t, i, cur); err != nil {
				return nil, err
			}
		case TypeDist:
			p, err := r.paramDist(sheet, t, i)
			if err != nil {
				return nil, err
			}
			cur.Parameters = append(cur.Parameters, p)
			if cs := t.Get(i, colCorrSheet); cs != "" && cur.Correlations == nil {
				if cur.Correlations, err = r.correlation(cs); err != nil {
					return nil, err
				}
			}
		case TypeExtern:
			cur.Parameters = append(cur.Parameters, ParamDist{Name: param})
		}
	}
	return out, nil
}

func (r *workbookReader) scenarioRow(sheet string, t *table.Table, i int, s *Sensitivity) error {
	param := t.Get(i, colParamName)
	for n := 1; ; n++ {
		suffix := strconv.Itoa(n)
		if !t.Has("senscase" + suffix) {
			break
		}
		cname := t.Get(i, "senscase"+suffix)
		if cname == "" {
			if n <= len(s.Cases) {
				cname = s.Cases[n-1].Name
			} else {
				continue
			}
		}
		if n > 2 {
			return r.valueErr(sheet, "row %d: sensitivity %q has more than two cases", i+2, s.Name)
		}
		if n > len(s.Cases) {
			s.Cases = append(s.Cases, Case{Name: cname})
		}
		s.Cases[n-1].Values = append(s.Cases[n-1].Values, ParamValue{
			Name:  param,
			Value: t.Get(i, "value"+suffix),
		})
	}
	return nil
}

func (r *workbookReader) paramDist(sheet string, t *table.Table, i int) (ParamDist, error) {
	p := ParamDist{Name: t.Get(i, colParamName), Dist: strings.ToLower(t.Get(i, colDistName))}
	if p.Dist == "" {
		return p, r.valueErr(sheet, "row %d: parameter %q has no dist_name", i+2, p.Name)
	}
	for _, c := range distParamCols {
		if v := t.Get(i, c); v != "" {
			p.Params = append(p.Params, v)
		}
	}
	if d := t.Get(i, colDecimals); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			return p, r.valueErr(sheet, "row %d: decimals %q is not an integer", i+2, d)
		}
		p.Decimals = &n
	}
	return p, nil
}

// correlation reads a square matrix sheet with parameter names in the first
// row and column. Empty upper cells are mirrored from the lower triangle.
func (r *workbookReader) correlation(sheet string) (*Correlation, error) {
	rows, err := r.rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, r.valueErr(sheet, "correlation sheet is empty")
	}

	var names []string
	for _, c := range rows[0][min(1, len(rows[0])):] {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	k := len(names)
	corr := &Correlation{Parameters: names, Matrix: make([][]float64, k)}

	body := rows[1:]
	if len(body) < k {
		return nil, r.valueErr(sheet, "correlation sheet has %d rows for %d parameters", len(body), k)
	}
	for i := 0; i < k; i++ {
		row := body[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) != names[i] {
			return nil, r.valueErr(sheet, "row %d must be labeled %q", i+2, names[i])
		}
		corr.Matrix[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			cell := ""
			if j+1 < len(row) {
				cell = strings.TrimSpace(row[j+1])
			}
			if cell == "" {
				if j > i {
					continue
				}
				return nil, r.valueErr(sheet, "missing value at %s,%s", names[i], names[j])
			}
			v, err := table.ParseFloat(cell)
			if err != nil {
				return nil, r.valueErr(sheet, "value at %s,%s: %v", names[i], names[j], err)
			}
			corr.Matrix[i][j] = v
		}
	}
	return corr, nil
}
