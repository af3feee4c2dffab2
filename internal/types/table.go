package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CellKind identifies the native type carried by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellFloat
	CellInt
	CellText
)

// Cell is one table value. Numeric kinds keep their native type so that
// exports can write real numbers instead of text.
type Cell struct {
	Kind  CellKind
	Float float64
	Int   int64
	Text  string
}

// FloatCell returns a floating point cell.
func FloatCell(v float64) Cell { return Cell{Kind: CellFloat, Float: v} }

// IntCell returns an integer cell.
func IntCell(v int64) Cell { return Cell{Kind: CellInt, Int: v} }

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// EmptyCell returns a cell with no value.
func EmptyCell() Cell { return Cell{} }

// Numeric returns the cell value as a float64 when the cell is numeric.
func (c Cell) Numeric() (float64, bool) {
	switch c.Kind {
	case CellFloat:
		return c.Float, true
	case CellInt:
		return float64(c.Int), true
	default:
		return 0, false
	}
}

// Display renders the cell for slides and HTML. Floats use four decimal
// places with trailing zeros and a trailing point removed, so 0.4000
// becomes 0.4 and 2.0000 becomes 2.
func (c Cell) Display() string {
	switch c.Kind {
	case CellFloat:
		return FormatFloat(c.Float)
	case CellInt:
		return strconv.FormatInt(c.Int, 10)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// FormatFloat formats v with four decimal places, then strips trailing zeros
// and a trailing decimal point.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// MarshalJSON writes numbers as JSON numbers, text as strings and empty cells as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellFloat:
		return json.Marshal(c.Float)
	case CellInt:
		return json.Marshal(c.Int)
	case CellText:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string or null. Numbers without a
// fraction or exponent become integer cells.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = EmptyCell()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextCell(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cell must be a number, string or null: %w", err)
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			*c = IntCell(i)
			return nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid numeric cell %q: %w", n.String(), err)
	}
	*c = FloatCell(f)
	return nil
}

// Table is a header row plus data rows. Rows may be shorter than the header;
// missing trailing cells are treated as empty.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col). Out of range positions report false.
func (t *Table) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Columns) {
		return Cell{}, false
	}
	r := t.Rows[row]
	if col >= len(r) {
		return EmptyCell(), true
	}
	return r[col], true
}

// ClassificationTarget names the table cell whose value drives the topic's
// headline band. Negative rows count from the end, so -1 is the last row.
type ClassificationTarget struct {
	Column string `json:"column" yaml:"column" validate:"required"`
	Row    int    `json:"row" yaml:"row"`
}

// UnmarshalJSON treats a missing row as the last row.
func (ct *ClassificationTarget) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column string `json:"column"`
		Row    *int   `json:"row"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*ct = LastRow(raw.Column)
	if raw.Row != nil {
		ct.Row = *raw.Row
	}
	return nil
}

// LastRow returns a target for the last row of column.
func LastRow(column string) ClassificationTarget {
	return ClassificationTarget{Column: column, Row: -1}
}

// Locate resolves the target against t and returns the (row, col) it names.
func (ct ClassificationTarget) Locate(t *Table) (row, col int, ok bool) {
	col = t.ColumnIndex(ct.Column)
	if col < 0 {
		return 0, 0, false
	}
	row = ct.Row
	if row < 0 {
		row = len(t.Rows) + row
	}
	if row < 0 || row >= len(t.Rows) {
		return 0, 0, false
	}
	return row, col, true
}
