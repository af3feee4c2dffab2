// Package htmlview renders a topic table as an HTML table with the
// classification target highlighted, for on-screen display.
package htmlview

import (
	"bytes"
	"html/template"
	"io"

	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// Options selects which cells are highlighted.
type Options struct {
	Target     types.ClassificationTarget
	Thresholds *types.ThresholdConfig
	// WholeColumn highlights every numeric cell of the target column
	// instead of only the target row.
	WholeColumn bool
}

type cellView struct {
	Text  string
	Style template.CSS
	Band  types.Band
}

type tableView struct {
	Columns []string
	Rows    [][]cellView
}

var tableTemplate = template.Must(template.New("table").Parse(`<table class="monitoring-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td{{if .Style}} style="{{.Style}}" data-band="{{.Band}}"{{end}}>{{.Text}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
`))

// Render writes t as an HTML table. Headers and cell text are escaped.
// Highlighted cells carry an inline background color and a data-band
// attribute; every band, unclassified included, gets a color.
func Render(w io.Writer, t *types.Table, opts *Options) error {
	view := tableView{Columns: t.Columns}

	targetRow, targetCol := -1, -1
	if opts != nil {
		if r, c, ok := opts.Target.Locate(t); ok {
			targetRow, targetCol = r, c
		} else if opts.WholeColumn {
			targetCol = t.ColumnIndex(opts.Target.Column)
		}
	}

	for r := range t.Rows {
		row := make([]cellView, len(t.Columns))
		for c := range row {
			cell, _ := t.Cell(r, c)
			row[c] = cellView{Text: cell.Display()}

			if c != targetCol || (r != targetRow && !opts.WholeColumn) {
				continue
			}
			v, ok := cell.Numeric()
			if !ok {
				continue
			}
			band := classify.Classify(v, opts.Thresholds)
			row[c].Band = band
			row[c].Style = template.CSS(classify.CSSStyle(band))
		}
		view.Rows = append(view.Rows, row)
	}

	return tableTemplate.Execute(w, view)
}

// String renders t and returns the markup.
func String(t *types.Table, opts *Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, t, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}
