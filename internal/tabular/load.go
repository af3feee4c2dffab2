package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/types"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
	"github.com/xuri/excelize/v2"
)

// LoadTable reads a table from path. The format follows the extension:
// .xlsx (first sheet), .csv, or .json ({"columns": [...], "rows": [[...]]}).
// Spreadsheet and CSV files use their first row as the header.
func LoadTable(path string) (*types.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return ParseXLSX(data)
	case ".csv":
		return ParseCSV(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}
}

// ParseXLSX reads the first worksheet of a workbook.
func ParseXLSX(data []byte) (*types.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return fromRecords(rows), nil
}

// ParseCSV reads comma separated records.
func ParseCSV(data []byte) (*types.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRecords(records), nil
}

// ParseJSON reads a table document validated against the table schema.
func ParseJSON(data []byte) (*types.Table, error) {
	if err := schemas.Validate(schemafiles.Table, data); err != nil {
		return nil, err
	}
	var t types.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	return &t, nil
}

func fromRecords(records [][]string) *types.Table {
	t := &types.Table{Columns: []string{}, Rows: [][]types.Cell{}}
	if len(records) == 0 {
		return t
	}
	t.Columns = append(t.Columns, records[0]...)
	for _, rec := range records[1:] {
		row := make([]types.Cell, len(t.Columns))
		for i := range row {
			if i < len(rec) {
				row[i] = ParseCell(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ParseCell turns raw text into an integer, float, text or empty cell.
func ParseCell(s string) types.Cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return types.EmptyCell()
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return types.IntCell(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return types.FloatCell(f)
	}
	return types.TextCell(s)
}
