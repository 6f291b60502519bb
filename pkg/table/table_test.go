package table

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/f9-o/fmutools/pkg/errs"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tb := New("REAL", "ZONE", "STOIIP_OIL")
	require.NoError(t, tb.AppendRow("0", "Upper", "10.5"))
	require.NoError(t, tb.AppendRow("0", "Lower", "4"))
	require.NoError(t, tb.AppendRow("1", "Upper", "12"))
	return tb
}

func TestAppendRowWidth(t *testing.T) {
	tb := New("a", "b")
	err := tb.AppendRow("1")
	assert.True(t, errs.IsCode(err, errs.ErrTableFormat))
	assert.Zero(t, tb.Len())
}

func TestColumnAccess(t *testing.T) {
	tb := sample(t)

	zones, err := tb.Column("ZONE")
	require.NoError(t, err)
	assert.Equal(t, []string{"Upper", "Lower", "Upper"}, zones)

	vals, err := tb.Floats("STOIIP_OIL")
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 4, 12}, vals)

	_, err = tb.Floats("ZONE")
	assert.True(t, errs.IsCode(err, errs.ErrTableFormat))
	_, err = tb.Column("GIIP_GAS")
	assert.True(t, errs.IsCode(err, errs.ErrTableColumn))

	assert.True(t, tb.Has("REAL", "ZONE"))
	assert.False(t, tb.Has("REAL", "REGION"))
	assert.Equal(t, "Lower", tb.Get(1, "ZONE"))
	assert.Empty(t, tb.Get(9, "ZONE"))
}

func TestFilterAndSelect(t *testing.T) {
	tb := sample(t)
	zi := tb.Index("ZONE")
	upper := tb.Filter(func(row []string) bool { return row[zi] == "Upper" })
	assert.Equal(t, 2, upper.Len())

	sel, err := upper.Select("STOIIP_OIL", "REAL")
	require.NoError(t, err)
	assert.Equal(t, []string{"STOIIP_OIL", "REAL"}, sel.Columns)
	assert.Equal(t, [][]string{{"10.5", "0"}, {"12", "1"}}, sel.Rows)

	// the filtered copy does not alias the source rows
	upper.Rows[0][0] = "99"
	assert.Equal(t, "0", tb.Rows[0][0])

	_, err = tb.Select("nope")
	assert.True(t, errs.IsCode(err, errs.ErrTableColumn))
}

func TestReadCSV(t *testing.T) {
	in := "REAL, ZONE ,STOIIP_OIL\n0,Upper,10.5\n\n,,\n1, Lower ,4\n"
	tb, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"REAL", "ZONE", "STOIIP_OIL"}, tb.Columns)
	assert.Equal(t, [][]string{{"0", "Upper", "10.5"}, {"1", "Lower", "4"}}, tb.Rows)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errs.ErrorCode
	}{
		{"empty", "", errs.ErrTableRead},
		{"ragged row", "a,b\n1\n", errs.ErrTableFormat},
		{"duplicate column", "a,a\n1,2\n", errs.ErrTableFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCSVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "volumes.csv")
	tb := sample(t)
	require.NoError(t, tb.WriteCSVFile(path))

	got, err := ReadFile(path, "")
	require.NoError(t, err)
	if diff := cmp.Diff(tb, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.xlsx")
	summary := New("sensname", "senstype")
	require.NoError(t, summary.AppendRow("rms_seed", "seed"))

	require.NoError(t, WriteXLSX(path,
		Sheet{Name: "DesignSheet01", Table: sample(t)},
		Sheet{Name: "Summary", Table: summary},
	))

	got, err := ReadXLSXSheet(path, "")
	require.NoError(t, err)
	assert.Equal(t, sample(t).Rows, got.Rows)

	got, err = ReadFile(path, "Summary")
	require.NoError(t, err)
	assert.Equal(t, "seed", got.Get(0, "senstype"))

	_, err = ReadXLSXSheet(path, "Missing")
	assert.True(t, errs.IsCode(err, errs.ErrExcelSheet))

	assert.True(t, errs.IsCode(WriteXLSX(path), errs.ErrTableWrite))
}

func TestFromRecords(t *testing.T) {
	tb, err := FromRecords([][]string{
		{},
		{"REAL", "FWL", ""},
		{"0", "1700"},
		{"", ""},
		{"1", "1720", "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"REAL", "FWL"}, tb.Columns)
	assert.Equal(t, [][]string{{"0", "1700"}, {"1", "1720"}}, tb.Rows)

	_, err = FromRecords([][]string{{""}})
	assert.True(t, errs.IsCode(err, errs.ErrTableRead))
}

func TestReadFileExtension(t *testing.T) {
	_, err := ReadFile("volumes.txt", "")
	assert.True(t, errs.IsCode(err, errs.ErrTableRead))
}

func TestRender(t *testing.T) {
	tb := sample(t)

	var buf bytes.Buffer
	require.NoError(t, tb.Render(&buf, FormatJSON))
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 3)
	assert.Equal(t, "Upper", recs[0]["ZONE"])
	assert.Equal(t, 10.5, recs[0]["STOIIP_OIL"])

	buf.Reset()
	require.NoError(t, tb.Render(&buf, FormatCSV))
	assert.True(t, strings.HasPrefix(buf.String(), "REAL,ZONE,STOIIP_OIL\n"))

	buf.Reset()
	require.NoError(t, tb.Render(&buf, FormatMarkdown))
	assert.Contains(t, buf.String(), "| REAL |")

	buf.Reset()
	require.NoError(t, tb.Render(&buf, FormatTable))
	assert.Contains(t, buf.String(), "STOIIP_OIL")
	assert.Contains(t, buf.String(), "Lower")

	buf.Reset()
	require.NoError(t, New("a").Render(&buf, FormatTable))
	assert.Contains(t, buf.String(), "(0 rows)")

	assert.True(t, errs.IsCode(tb.Render(&buf, "html"), errs.ErrTableFormat))
}

func TestFloatFormatting(t *testing.T) {
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.Equal(t, "1700", FormatFloat(1700))
	f, err := ParseFloat(" 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
	_, err = ParseFloat("abc")
	assert.Error(t, err)
}

func TestRenderJSONColumnTypes(t *testing.T) {
	tb := New("sensname", "low", "low_reals", "high_reals", "note")
	require.NoError(t, tb.AppendRow("faults", "-1.5", "0,7", "6", "NaN"))
	require.NoError(t, tb.AppendRow("contacts", "", "3", "4,5", ""))

	var buf bytes.Buffer
	require.NoError(t, tb.Render(&buf, FormatJSON))
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 2)

	assert.Equal(t, -1.5, recs[0]["low"])
	assert.Nil(t, recs[1]["low"], "empty cell of a numeric column")
	for _, rec := range recs {
		assert.IsType(t, "", rec["low_reals"])
		assert.IsType(t, "", rec["high_reals"])
		assert.IsType(t, "", rec["note"])
	}
	assert.Equal(t, "6", recs[0]["high_reals"])
	assert.Equal(t, "3", recs[1]["low_reals"])
}

func TestXLSXKeepsNonFiniteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.xlsx")
	tb := New("name", "value")
	require.NoError(t, tb.AppendRow("a", "NaN"))
	require.NoError(t, tb.AppendRow("b", "inf"))
	require.NoError(t, tb.AppendRow("c", "2.5"))
	require.NoError(t, WriteXLSX(path, Sheet{Name: "Sheet1", Table: tb}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)
	v, err := f.GetCellValue("Sheet1", "B3")
	require.NoError(t, err)
	assert.Equal(t, "inf", v)
	typ, err = f.GetCellType("Sheet1", "B4")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}
