package merge

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func titled(titles ...string) *deck.Deck {
	d := &deck.Deck{}
	for i, title := range titles {
		d.Append(&deck.Slide{
			Index:      i + 1,
			Background: "112233",
			Shapes: []deck.Shape{
				&deck.Placeholder{Slot: deck.TitleSlot, Text: title},
				&deck.Generic{Payload: []byte(`<p:sp><p:nvSpPr><p:cNvPr id="5" name="Body"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp>`)},
			},
		})
	}
	return d
}

func titles(d *deck.Deck) []string {
	var out []string
	for _, s := range d.Slides {
		out = append(out, s.Title().Text)
	}
	return out
}

func plainMerger(t *testing.T) *Merger {
	return &Merger{Restyle: RestyleTable{}, Style: skeleton.DefaultResolved(), Logger: zaptest.NewLogger(t)}
}

func TestMerge_OrderAndIndices(t *testing.T) {
	a := titled("A1", "A2")
	b := titled("B1", "B2", "B3")

	out, report := plainMerger(t).Merge(a, b)

	assert.Equal(t, []string{"A1", "A2", "B1", "B2", "B3"}, titles(out))
	for i, s := range out.Slides {
		assert.Equal(t, i+1, s.Index)
	}
	assert.Equal(t, 5, report.Slides)
	assert.Empty(t, report.Restyled)
}

func TestMerge_EmptyDecksContributeNothing(t *testing.T) {
	out, _ := plainMerger(t).Merge(&deck.Deck{}, titled("A1"), nil, &deck.Deck{})
	assert.Equal(t, []string{"A1"}, titles(out))

	out, report := plainMerger(t).Merge()
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 0, report.Slides)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	a := titled("A1", "A2")
	a.Slides[0].Add(&deck.Picture{Name: "Chart", Frame: deck.Box(1, 1, 2, 2), Data: testPNG(t)})
	before := titled("A1", "A2")
	before.Slides[0].Add(&deck.Picture{Name: "Chart", Frame: deck.Box(1, 1, 2, 2), Data: testPNG(t)})

	m := NewMerger(skeleton.DefaultResolved(), zaptest.NewLogger(t))
	out, _ := m.Merge(a)

	if diff := cmp.Diff(before, a); diff != "" {
		t.Fatalf("input deck changed (-before +after):\n%s", diff)
	}

	pic := out.Slides[0].Shapes[2].(*deck.Picture)
	pic.Data[0] = 0
	assert.NotEqual(t, pic.Data[0], a.Slides[0].Shapes[2].(*deck.Picture).Data[0])
}

func TestMerge_ClonesShapesInOrder(t *testing.T) {
	a := titled("A1")
	out, _ := plainMerger(t).Merge(a)

	require.Len(t, out.Slides[0].Shapes, 2)
	assert.Equal(t, deck.KindPlaceholder, out.Slides[0].Shapes[0].Kind())
	assert.Equal(t, a.Slides[0].Shapes[1], out.Slides[0].Shapes[1])
	assert.NotSame(t, a.Slides[0].Shapes[1], out.Slides[0].Shapes[1])
}

func TestMerge_BackgroundOnlyWhenPreserved(t *testing.T) {
	m := plainMerger(t)
	out, _ := m.Merge(titled("A1"))
	assert.Empty(t, out.Slides[0].Background)

	m.PreserveBackground = true
	out, _ = m.Merge(titled("A1"))
	assert.Equal(t, "112233", out.Slides[0].Background)
}

func TestMerge_RestylesByOutputPosition(t *testing.T) {
	m := NewMerger(skeleton.DefaultResolved(), zaptest.NewLogger(t))

	out, report := m.Merge(titled("A1", "A2", "A3"), titled("B1", "B2"))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, report.Restyled)

	// position 4 is the first slide of the second deck
	b1 := out.Slides[3]
	assert.Equal(t, "06357A", b1.Background)
	assert.Equal(t, skeleton.TitleSlideTitleFrame, *b1.Title().Frame)
	assert.Equal(t, "B1", b1.Title().Text)

	a2 := out.Slides[1]
	assert.Equal(t, skeleton.ContentTitleFrame, *a2.Title().Frame)
	// title, body, then the added caption ribbon, index ribbon and logo
	assert.Len(t, a2.Shapes, 5)
	idx := a2.Shapes[3].(*deck.Generic)
	assert.Contains(t, string(idx.Payload), skeleton.IndexLabel(2))
}

func TestMerge_RestyleBackgroundOverride(t *testing.T) {
	m := plainMerger(t)
	m.Restyle = RestyleTable{2: {Rule: skeleton.RuleTitleBackground, Background: "#800000"}}

	out, _ := m.Merge(titled("A1", "A2"))
	assert.Empty(t, out.Slides[0].Background)
	assert.Equal(t, "800000", out.Slides[1].Background)
}

func TestMerge_PositionsBeyondTotalNeverTrigger(t *testing.T) {
	m := plainMerger(t)
	m.Restyle = RestyleTable{3: {Rule: skeleton.RuleContent}, 10: {Rule: skeleton.RuleTitle}}

	out, report := m.Merge(titled("A1", "A2", "A3"))
	assert.Equal(t, []int{3}, report.Restyled)
	assert.Equal(t, 3, out.Len())
}

func TestMerge_UntitledSlideNotRestyled(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{Shapes: []deck.Shape{&deck.Generic{Payload: []byte("<p:sp/>")}}}}}

	out, report := NewMerger(skeleton.DefaultResolved(), zaptest.NewLogger(t)).Merge(d)
	assert.Equal(t, []int{1}, report.Untitled)
	assert.Empty(t, report.Restyled)
	assert.Len(t, out.Slides[0].Shapes, 1)
}

func TestMergeBytes_SkipsUnreadableInputs(t *testing.T) {
	a, err := pptx.Encode(titled("A1", "A2"))
	require.NoError(t, err)
	b, err := pptx.Encode(titled("B1"))
	require.NoError(t, err)

	m := plainMerger(t)
	data, report, err := m.MergeBytes([]Input{
		{Name: "a", Data: a},
		{Name: "broken", Data: []byte("nope")},
		{Name: "b", Data: b},
	})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "broken", report.Skipped[0].Name)
	assert.ErrorIs(t, report.Skipped[0].Err, pptx.ErrNotADeck)

	merged, err := pptx.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "B1"}, titles(merged))
}

func TestTopicRestyleTable(t *testing.T) {
	table := TopicRestyleTable([]int{3, 0, 1, 3})

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, table.Positions())
	assert.Equal(t, skeleton.RuleTitleBackground, table[1].Rule)
	assert.Equal(t, skeleton.RuleContent, table[2].Rule)
	assert.Equal(t, skeleton.RuleContent, table[4].Rule)
	assert.Equal(t, skeleton.RuleTitleBackground, table[5].Rule)
	assert.Equal(t, skeleton.RuleContent, table[7].Rule)
}

func TestDefaultRestyleTable(t *testing.T) {
	table := DefaultRestyleTable()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, table.Positions())
	assert.Equal(t, skeleton.RuleTitleBackground, table[4].Rule)
}

func TestParseRestyleTable(t *testing.T) {
	yamlDoc := []byte(`rules:
  - position: 1
    rule: title_background
    background: "#800000"
  - position: 2
    rule: content
`)
	table, err := ParseRestyleTable(yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, RestyleTable{
		1: {Rule: skeleton.RuleTitleBackground, Background: "#800000"},
		2: {Rule: skeleton.RuleContent},
	}, table)

	jsonDoc := []byte(`{"rules": [{"position": 3, "rule": "title"}]}`)
	table, err = ParseRestyleTable(jsonDoc)
	require.NoError(t, err)
	assert.Equal(t, skeleton.RuleTitle, table[3].Rule)
}

func TestParseRestyleTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown rule", `{"rules": [{"position": 1, "rule": "fancy"}]}`},
		{"zero position", `{"rules": [{"position": 0, "rule": "content"}]}`},
		{"missing rules", `{}`},
		{"duplicate", `{"rules": [{"position": 1, "rule": "content"}, {"position": 1, "rule": "title"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRestyleTable([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRestyleTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restyle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - position: 4\n    rule: title_background\n"), 0644))

	table, err := LoadRestyleTable(path)
	require.NoError(t, err)
	assert.Equal(t, skeleton.RuleTitleBackground, table[4].Rule)

	_, err = LoadRestyleTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
