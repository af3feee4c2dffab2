// Package tabular exports topic tables as spreadsheets and loads tables
// from spreadsheet, CSV or JSON files.
package tabular

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/types"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet every export writes to.
const SheetName = "Sheet1"

// Highlight colors the classification target cell of an export.
type Highlight struct {
	Target     types.ClassificationTarget
	Thresholds *types.ThresholdConfig
}

// WriteXLSX writes t as a single-sheet workbook: the header on row 1 and
// one row per data row, with no index column. Numbers are written as
// numeric cells and text as text.
func WriteXLSX(w io.Writer, t *types.Table, hl *Highlight) error {
	f := excelize.NewFile()
	defer f.Close()

	for c, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return fmt.Errorf("failed to write header %q: %w", name, err)
		}
	}

	for r := range t.Rows {
		for c := range t.Columns {
			v, _ := t.Cell(r, c)
			if v.Kind == types.CellEmpty {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, cellValue(v)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if hl != nil {
		if err := highlight(f, t, hl); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// XLSX returns the workbook bytes for t.
func XLSX(t *types.Table, hl *Highlight) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, t, hl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellValue(v types.Cell) any {
	switch v.Kind {
	case types.CellFloat:
		return v.Float
	case types.CellInt:
		return v.Int
	default:
		return v.Text
	}
}

func highlight(f *excelize.File, t *types.Table, hl *Highlight) error {
	band, ok := classify.Target(t, hl.Target, hl.Thresholds)
	if !ok {
		return nil
	}
	fill, ok := classify.FillColor(band)
	if !ok {
		return nil
	}
	row, col, _ := hl.Target.Locate(t)

	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#" + fill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+2)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, cell, cell, style)
}
