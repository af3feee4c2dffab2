package htmlview

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/monitoring-deck/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gini = &types.ThresholdConfig{Green: 0.40, AmberLower: 0.30, AmberUpper: 0.40, Red: 0.30}

func table() *types.Table {
	return &types.Table{
		Columns: []string{"Period", "Gini <pct>"},
		Rows: [][]types.Cell{
			{types.TextCell("Q1 & Q2"), types.FloatCell(0.45)},
			{types.TextCell("Q3"), types.FloatCell(0.3)},
			{types.TextCell("Q4"), types.FloatCell(0.35)},
		},
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestRender_HighlightsTargetCell(t *testing.T) {
	html, err := String(table(), &Options{Target: types.LastRow("Gini <pct>"), Thresholds: gini})
	require.NoError(t, err)

	doc := parse(t, html)
	highlighted := doc.Find("td[data-band]")
	require.Equal(t, 1, highlighted.Length())
	assert.Equal(t, "0.35", highlighted.Text())
	style, _ := highlighted.Attr("style")
	assert.Equal(t, "background-color: orange", style)
	band, _ := highlighted.Attr("data-band")
	assert.Equal(t, "AMBER", band)
}

func TestRender_WholeColumn(t *testing.T) {
	html, err := String(table(), &Options{Target: types.ClassificationTarget{Column: "Gini <pct>", Row: 99}, Thresholds: gini, WholeColumn: true})
	require.NoError(t, err)

	var styles []string
	parse(t, html).Find("td[data-band]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		styles = append(styles, style)
	})
	assert.Equal(t, []string{
		"background-color: green",
		"background-color: red",
		"background-color: orange",
	}, styles)
}

func TestRender_UnclassifiedIsWhite(t *testing.T) {
	html, err := String(table(), &Options{Target: types.ClassificationTarget{Column: "Gini <pct>", Row: 0}})
	require.NoError(t, err)

	cell := parse(t, html).Find("td[data-band]")
	style, _ := cell.Attr("style")
	assert.Equal(t, "background-color: white", style)
}

func TestRender_EscapesText(t *testing.T) {
	html, err := String(table(), nil)
	require.NoError(t, err)

	assert.Contains(t, html, "Gini &lt;pct&gt;")
	assert.Contains(t, html, "Q1 &amp; Q2")
	assert.NotContains(t, html, "data-band")

	doc := parse(t, html)
	assert.Equal(t, "Gini <pct>", doc.Find("th").Eq(1).Text())
	assert.Equal(t, 3, doc.Find("tbody tr").Length())
}

func TestRender_NonNumericTargetNotHighlighted(t *testing.T) {
	html, err := String(table(), &Options{Target: types.LastRow("Period"), Thresholds: gini})
	require.NoError(t, err)
	assert.Equal(t, 0, parse(t, html).Find("td[data-band]").Length())
}

func TestRender_EmptyTable(t *testing.T) {
	html, err := String(&types.Table{Columns: []string{"Gini"}}, nil)
	require.NoError(t, err)

	doc := parse(t, html)
	assert.Equal(t, 1, doc.Find("th").Length())
	assert.Equal(t, 0, doc.Find("tbody tr").Length())
}
