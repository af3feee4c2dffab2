package rendering

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/drawing"
	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// DefaultChartTitle is the title of the chart slide.
const DefaultChartTitle = "Graph"

// Placement of the content on the data and chart slides.
var (
	TableFrame        = deck.Box(0.5, 1.2, 9, 5)
	TableRowHeight    = deck.Inches(0.3)
	DataCommentFrame  = deck.Box(0.5, 5.3, 9, 1)
	ChartFrame        = deck.Box(0.6, 0.8, 8.8, 4.5)
	GraphCommentFrame = deck.Box(0.5, 5.5, 9, 1)
)

// Font sizes in hundredths of a point.
const (
	TableTextSize   = 1000
	CommentTextSize = 1400
)

// Shape names for topic content.
const (
	NameTable        = "Data Table"
	NameChart        = "Chart"
	NameDataComment  = "Data Comment"
	NameGraphComment = "Graph Comment"
)

// TopicInput is everything needed to build one topic's deck.
type TopicInput struct {
	Topic        types.TopicID
	Title        string
	TableTitle   string // defaults to "<Metric> calculation"
	ChartTitle   string // defaults to DefaultChartTitle
	MetricType   string
	Table        types.Table
	ChartImage   []byte
	Target       types.ClassificationTarget
	Thresholds   *types.ThresholdConfig
	DataComment  string
	GraphComment string
	Style        skeleton.Resolved
	// StartIndex is the slide index of the title slide; zero means 1.
	StartIndex int
}

// TopicDeck is a built topic deck with the classification it shows.
type TopicDeck struct {
	Deck *deck.Deck
	// Band is the target cell's band. Classified is false when the target
	// cell is absent or not numeric.
	Band       types.Band
	Classified bool
}

// BuildTopicDeck lays out the title, data table and chart slides. A chart
// that is not a decodable image is a *MalformedAssetError.
func BuildTopicDeck(in TopicInput) (*TopicDeck, error) {
	if len(in.ChartImage) == 0 {
		return nil, &MalformedAssetError{Topic: in.Topic, Asset: "chart image", Cause: errors.New("no image data")}
	}
	if _, err := pptx.ProbeImage(in.ChartImage); err != nil {
		return nil, &MalformedAssetError{Topic: in.Topic, Asset: "chart image", Cause: err}
	}

	start := in.StartIndex
	if start <= 0 {
		start = 1
	}

	band, classified := classify.Target(&in.Table, in.Target, in.Thresholds)

	title := skeleton.NewSlide(skeleton.LayoutTitle, start, in.Style)
	title.Title().Text = in.Title

	data := skeleton.NewSlide(skeleton.LayoutContent, start+1, in.Style)
	data.Title().Text = tableTitle(in)
	data.Add(&deck.Generic{Payload: drawing.Table(tableSpec(in, band, classified))})
	if in.DataComment != "" {
		data.Add(commentBox(NameDataComment, DataCommentFrame, in.DataComment, in.Style))
	}

	chart := skeleton.NewSlide(skeleton.LayoutContent, start+2, in.Style)
	chart.Title().Text = in.ChartTitle
	if chart.Title().Text == "" {
		chart.Title().Text = DefaultChartTitle
	}
	chart.Add(&deck.Picture{Name: NameChart, Frame: ChartFrame, Data: in.ChartImage})
	if in.GraphComment != "" {
		chart.Add(commentBox(NameGraphComment, GraphCommentFrame, in.GraphComment, in.Style))
	}

	return &TopicDeck{
		Deck:       &deck.Deck{Slides: []*deck.Slide{title, data, chart}},
		Band:       band,
		Classified: classified,
	}, nil
}

// Build lays out the topic deck and serializes it.
func Build(in TopicInput) ([]byte, *TopicDeck, error) {
	td, err := BuildTopicDeck(in)
	if err != nil {
		return nil, nil, err
	}
	data, err := pptx.Encode(td.Deck)
	if err != nil {
		return nil, nil, &EncodeError{Topic: in.Topic, Err: err}
	}
	return data, td, nil
}

func tableTitle(in TopicInput) string {
	if in.TableTitle != "" {
		return in.TableTitle
	}
	name := in.MetricType
	if name == "" {
		name = string(in.Topic)
	}
	if name == "" {
		return "Calculation"
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:] + " calculation"
}

func tableSpec(in TopicInput, band types.Band, classified bool) drawing.TableSpec {
	headerFont := &deck.Font{Size: TableTextSize, Color: in.Style.RowFontColor}
	cellFont := &deck.Font{Size: TableTextSize, Color: in.Style.ContentFontColor}

	header := make([]drawing.TableCell, len(in.Table.Columns))
	for i, c := range in.Table.Columns {
		header[i] = drawing.TableCell{Text: c, Font: headerFont, Fill: in.Style.RowBackgroundColor}
	}
	rows := [][]drawing.TableCell{header}

	targetRow, targetCol := -1, -1
	if classified {
		targetRow, targetCol, _ = in.Target.Locate(&in.Table)
	}
	fill, _ := classify.FillColor(band)

	for r := range in.Table.Rows {
		row := make([]drawing.TableCell, len(in.Table.Columns))
		for c := range row {
			cell, _ := in.Table.Cell(r, c)
			row[c] = drawing.TableCell{Text: cell.Display(), Font: cellFont}
			if r == targetRow && c == targetCol {
				row[c].Fill = fill
			}
		}
		rows = append(rows, row)
	}

	return drawing.TableSpec{
		Name:      NameTable,
		Frame:     TableFrame,
		StyleID:   drawing.MediumStyle2Accent1,
		RowHeight: TableRowHeight,
		Rows:      rows,
	}
}

func commentBox(name string, frame deck.Frame, text string, r skeleton.Resolved) deck.Shape {
	text = strings.TrimRight(text, "\n")
	font := &deck.Font{Size: CommentTextSize, Color: r.ContentFontColor}
	return &deck.Generic{Payload: drawing.TextBox(name, frame, "Comment: "+text, font)}
}
