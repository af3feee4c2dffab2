package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/monitoring-deck/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() *types.Table {
	return &types.Table{
		Columns: []string{"Period", "Accounts", "Gini"},
		Rows: [][]types.Cell{
			{types.TextCell("2023Q4"), types.IntCell(1200), types.FloatCell(0.45)},
			{types.TextCell("2024Q1"), types.IntCell(1350), types.FloatCell(0.25)},
			{types.TextCell("2024Q2")},
		},
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	data, err := XLSX(sampleTable(), nil)
	require.NoError(t, err)

	got, err := ParseXLSX(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Period", "Accounts", "Gini"}, got.Columns)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, types.IntCell(1200), got.Rows[0][1])
	assert.Equal(t, types.FloatCell(0.45), got.Rows[0][2])
	assert.Equal(t, types.TextCell("2024Q1"), got.Rows[1][0])
	assert.Equal(t, types.EmptyCell(), got.Rows[2][2])
}

func TestXLSX_CellValues(t *testing.T) {
	data, err := XLSX(sampleTable(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	c2, err := f.GetCellValue(SheetName, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.45", c2)

	b2, err := f.GetCellValue(SheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1200", b2)

	a1, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period", a1)
}

func TestXLSX_HighlightsTarget(t *testing.T) {
	hl := &Highlight{
		Target:     types.ClassificationTarget{Column: "Gini", Row: 1},
		Thresholds: &types.ThresholdConfig{Green: 0.40, AmberLower: 0.30, AmberUpper: 0.40, Red: 0.30},
	}
	data, err := XLSX(sampleTable(), hl)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	target, err := f.GetCellStyle(SheetName, "C3")
	require.NoError(t, err)
	assert.NotZero(t, target)

	other, err := f.GetCellStyle(SheetName, "C2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestXLSX_NoHighlightWithoutBand(t *testing.T) {
	hl := &Highlight{Target: types.LastRow("Gini")}
	data, err := XLSX(sampleTable(), hl)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	style, err := f.GetCellStyle(SheetName, "C4")
	require.NoError(t, err)
	assert.Zero(t, style)
}

func TestXLSX_EmptyTable(t *testing.T) {
	data, err := XLSX(&types.Table{Columns: []string{"Gini"}}, nil)
	require.NoError(t, err)

	got, err := ParseXLSX(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gini"}, got.Columns)
	assert.Empty(t, got.Rows)
}

func TestParseCSV(t *testing.T) {
	got, err := ParseCSV([]byte("Period,Gini\n2024Q1,0.41\n2024Q2,\n2024Q3\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Period", "Gini"}, got.Columns)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, types.FloatCell(0.41), got.Rows[0][1])
	assert.Equal(t, types.EmptyCell(), got.Rows[1][1])
	assert.Equal(t, types.EmptyCell(), got.Rows[2][1])
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON([]byte(`{"columns": ["Period", "Gini"], "rows": [["2024Q1", 0.41], ["2024Q2", null]]}`))
	require.NoError(t, err)
	assert.Equal(t, types.FloatCell(0.41), got.Rows[0][1])
	assert.Equal(t, types.EmptyCell(), got.Rows[1][1])

	_, err = ParseJSON([]byte(`{"columns": ["Gini"], "rows": [[true]]}`))
	assert.Error(t, err)
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, types.IntCell(42), ParseCell("42"))
	assert.Equal(t, types.FloatCell(0.5), ParseCell(" 0.5 "))
	assert.Equal(t, types.TextCell("PL Scorecard"), ParseCell("PL Scorecard"))
	assert.Equal(t, types.EmptyCell(), ParseCell("  "))
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "gini.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Gini\n0.4\n"), 0644))
	got, err := LoadTable(csvPath)
	require.NoError(t, err)
	assert.Equal(t, types.FloatCell(0.4), got.Rows[0][0])

	xlsxPath := filepath.Join(dir, "gini.xlsx")
	data, err := XLSX(sampleTable(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(xlsxPath, data, 0644))
	got, err = LoadTable(xlsxPath)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 3)

	_, err = LoadTable(filepath.Join(dir, "gini.parquet"))
	assert.Error(t, err)
}
