package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/drawing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var idAttr = regexp.MustCompile(`(<p:cNvPr\b[^>]*?\sid=")\d+"`)

// normalizeIDs blanks shape ids, which the writer reassigns.
func normalizeIDs(d *deck.Deck) *deck.Deck {
	for _, s := range d.Slides {
		for i, sh := range s.Shapes {
			if g, ok := sh.(*deck.Generic); ok {
				s.Shapes[i] = &deck.Generic{Payload: idAttr.ReplaceAll(g.Payload, []byte(`${1}0"`))}
			}
		}
	}
	return d
}

func sampleDeck(t *testing.T) *deck.Deck {
	chart := testPNG(t, 4, 2, color.RGBA{R: 200, A: 255})
	titleFrame := deck.Box(1, 2.6, 8, 2)

	return &deck.Deck{Slides: []*deck.Slide{
		{
			Index:      1,
			Background: "06357A",
			Shapes: []deck.Shape{
				&deck.Placeholder{
					Slot:  deck.TitleSlot,
					Text:  "PL - Scorecard Model Gini",
					Frame: &titleFrame,
					Font:  &deck.Font{Size: 4200, Bold: true, Color: "FFFFFF"},
				},
				&deck.Generic{Payload: drawing.Rect("Ribbon", deck.Box(0, 7.22, 10, 0.28), "06357A", "06357A", " 1\t", &deck.Font{Size: 900, Color: "FFFFFF"}, "r")},
			},
		},
		{
			Index: 2,
			Shapes: []deck.Shape{
				&deck.Placeholder{Slot: deck.TitleSlot, Text: "Graph", Font: &deck.Font{Size: 2200, Color: "000000"}, Align: "l"},
				&deck.Picture{Name: "Chart", Frame: deck.Box(0.6, 0.8, 8.8, 4.5), Data: chart},
				&deck.Generic{Payload: drawing.TextBox("Comment", deck.Box(0.5, 5.5, 9, 1), "Comment: a & b\nsecond line", &deck.Font{Size: 1400})},
				&deck.Placeholder{Slot: deck.Slot{Type: "body", Idx: 1}, Text: "line one\nline two"},
			},
		},
	}}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleDeck(t)

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(normalizeIDs(sampleDeck(t)), normalizeIDs(out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(sampleDeck(t))
	require.NoError(t, err)
	b, err := Encode(sampleDeck(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_PartsAreWellFormed(t *testing.T) {
	data, err := Encode(sampleDeck(t))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if !bytes.HasSuffix([]byte(f.Name), []byte(".xml")) && !bytes.HasSuffix([]byte(f.Name), []byte(".rels")) {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		dec := xml.NewDecoder(rc)
		for {
			_, err := dec.Token()
			if err == io.EOF {
				break
			}
			require.NoError(t, err, "part %s", f.Name)
		}
		_ = rc.Close()
	}

	assert.Equal(t, "[Content_Types].xml", zr.File[0].Name)
	for _, want := range []string{
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/theme/theme1.xml",
		"ppt/media/image1.png",
	} {
		assert.True(t, names[want], "missing part %s", want)
	}
}

func TestEncode_UniqueShapeIDs(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{Shapes: []deck.Shape{
		&deck.Placeholder{Slot: deck.TitleSlot, Text: "t"},
		&deck.Generic{Payload: drawing.Rect("a", deck.Box(0, 0, 1, 1), "FFFFFF", "", "", nil, "")},
		&deck.Generic{Payload: drawing.Rect("b", deck.Box(0, 0, 1, 1), "FFFFFF", "", "", nil, "")},
	}}}}

	data, err := Encode(d)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	var ids []string
	for _, sh := range out.Slides[0].Shapes {
		if g, ok := sh.(*deck.Generic); ok {
			ids = append(ids, string(regexp.MustCompile(`id="(\d+)"`).FindSubmatch(g.Payload)[1]))
		}
	}
	assert.Equal(t, []string{"3", "4"}, ids)
}

func TestRenumber_AllShapesInGroup(t *testing.T) {
	payload := []byte(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="7" name="Group"/></p:nvGrpSpPr><p:sp><p:nvSpPr><p:cNvPr name="x" id="9"/></p:nvSpPr></p:sp></p:grpSp>`)

	out, next := renumber(payload, 5)
	assert.Equal(t, 7, next)
	assert.Equal(t, `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="5" name="Group"/></p:nvGrpSpPr><p:sp><p:nvSpPr><p:cNvPr name="x" id="6"/></p:nvSpPr></p:sp></p:grpSp>`, string(out))

	untouched, next := renumber([]byte(`<p:cxnSp/>`), 3)
	assert.Equal(t, 3, next)
	assert.Equal(t, `<p:cxnSp/>`, string(untouched))
}

func TestEncode_SharesIdenticalImages(t *testing.T) {
	img := testPNG(t, 2, 2, color.White)
	d := &deck.Deck{Slides: []*deck.Slide{
		{Shapes: []deck.Shape{&deck.Picture{Name: "a", Data: img}, &deck.Picture{Name: "b", Data: img}}},
		{Shapes: []deck.Shape{&deck.Picture{Name: "c", Data: img}}},
	}}

	data, err := Encode(d)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	media := 0
	for _, f := range zr.File {
		if regexp.MustCompile(`^ppt/media/`).MatchString(f.Name) {
			media++
		}
	}
	assert.Equal(t, 1, media)

	out, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, out.Slides[1].Shapes, 1)
	assert.Equal(t, img, out.Slides[1].Shapes[0].(*deck.Picture).Data)
}

func TestEncode_RejectsUnknownImageBytes(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{Shapes: []deck.Shape{&deck.Picture{Data: []byte("not an image")}}}}}

	_, err := Encode(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	var partErr *PartError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, "ppt/slides/slide1.xml", partErr.Part)
}

func TestEncode_KeepsForeignMediaFormat(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)
	d := &deck.Deck{Slides: []*deck.Slide{{Shapes: []deck.Shape{&deck.Picture{Name: "logo", Data: svg, Format: "svg"}}}}}

	data, err := Encode(d)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	pic := out.Slides[0].Shapes[0].(*deck.Picture)
	assert.Equal(t, svg, pic.Data)
	assert.Equal(t, "svg", pic.Format)
}

func TestEncode_EmptyDeck(t *testing.T) {
	data, err := Encode(&deck.Deck{})
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestDecode_NotADeck(t *testing.T) {
	_, err := Decode([]byte("plain text"))
	assert.ErrorIs(t, err, ErrNotADeck)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("hello.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Decode(buf.Bytes())
	assert.ErrorIs(t, err, ErrNotADeck)
}

func TestDecode_SkipsShapeTreeExtensions(t *testing.T) {
	slide := `<?xml version="1.0"?><p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` +
		groupProps +
		`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="2" name="Line"/></p:nvCxnSpPr></p:cxnSp>` +
		"\n  " +
		`<p:extLst><p:ext uri="{x}"/></p:extLst>` +
		`</p:spTree></p:cSld></p:sld>`

	shapes, err := decodeShapes([]byte(slide), func(string) ([]byte, string, bool) { return nil, "", false })
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, `<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="2" name="Line"/></p:nvCxnSpPr></p:cxnSp>`, string(shapes[0].(*deck.Generic).Payload))
}

func TestDecode_PictureWithMissingMediaIsGeneric(t *testing.T) {
	slide := `<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` +
		`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Linked"/></p:nvPicPr><p:blipFill><a:blip r:embed="rId9"/></p:blipFill></p:pic>` +
		`</p:spTree></p:cSld></p:sld>`

	shapes, err := decodeShapes([]byte(slide), func(string) ([]byte, string, bool) { return nil, "", false })
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, deck.KindGeneric, shapes[0].Kind())
}

func TestProbeImage(t *testing.T) {
	info, err := ProbeImage(testPNG(t, 3, 5, color.Black))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 3, Height: 5}, info)

	_, err = ProbeImage(nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = ProbeImage([]byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
