package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/drawing"
)

// Encode serializes d as a .pptx package.
func Encode(d *deck.Deck) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type imageRel struct {
	ID   string
	Name string
}

type renderedSlide struct {
	xml  string
	rels []imageRel
}

// Write serializes d as a .pptx package to w. Output is deterministic for
// a given deck.
func Write(w io.Writer, d *deck.Deck) error {
	if d == nil {
		d = &deck.Deck{}
	}

	media := newMediaSet()
	numbers := make([]int, len(d.Slides))
	rendered := make([]renderedSlide, len(d.Slides))
	for i, s := range d.Slides {
		numbers[i] = i + 1
		r, err := renderSlide(s, media)
		if err != nil {
			return &PartError{Part: slidePart(i + 1), Cause: err}
		}
		rendered[i] = r
	}

	zw := zip.NewWriter(w)

	contentTypes := struct {
		Slides []int
		Media  []mediaType
	}{numbers, media.types()}

	if err := writeTemplate(zw, "[Content_Types].xml", "content_types", contentTypes); err != nil {
		return err
	}
	if err := writeTemplate(zw, "_rels/.rels", "root_rels", nil); err != nil {
		return err
	}
	if err := writeTemplate(zw, "docProps/core.xml", "core", drawing.Escape(deckTitle(d))); err != nil {
		return err
	}
	if err := writeTemplate(zw, "docProps/app.xml", "app", len(d.Slides)); err != nil {
		return err
	}
	if err := writeTemplate(zw, "ppt/presentation.xml", "presentation", numbers); err != nil {
		return err
	}
	if err := writeTemplate(zw, "ppt/_rels/presentation.xml.rels", "presentation_rels", numbers); err != nil {
		return err
	}

	names := make([]string, 0, len(staticParts))
	for name := range staticParts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writePart(zw, name, []byte(staticParts[name])); err != nil {
			return err
		}
	}

	for i, r := range rendered {
		if err := writePart(zw, slidePart(i+1), []byte(r.xml)); err != nil {
			return err
		}
		if err := writeTemplate(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), "slide_rels", r.rels); err != nil {
			return err
		}
	}

	for _, m := range media.parts {
		if err := writePart(zw, "ppt/media/"+m.Name, m.Data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish package: %w", err)
	}
	return nil
}

func slidePart(n int) string {
	return fmt.Sprintf("ppt/slides/slide%d.xml", n)
}

func deckTitle(d *deck.Deck) string {
	for _, s := range d.Slides {
		if t := s.Title(); t != nil && t.Text != "" {
			return strings.SplitN(t.Text, "\n", 2)[0]
		}
	}
	return ""
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return &PartError{Part: name, Cause: err}
	}
	if _, err := fw.Write(data); err != nil {
		return &PartError{Part: name, Cause: err}
	}
	return nil
}

func writeTemplate(zw *zip.Writer, name, tmpl string, data any) error {
	var buf bytes.Buffer
	if err := partTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return &PartError{Part: name, Cause: err}
	}
	return writePart(zw, name, buf.Bytes())
}

func renderSlide(s *deck.Slide, media *mediaSet) (renderedSlide, error) {
	var (
		shapes []string
		rels   []imageRel
		byName = map[string]string{}
		nextID = 2
	)

	for i, sh := range s.Shapes {
		switch v := sh.(type) {
		case *deck.Placeholder:
			shapes = append(shapes, placeholderXML(v, nextID))
			nextID++
		case *deck.Picture:
			name, err := media.add(v.Data, v.Format)
			if err != nil {
				return renderedSlide{}, fmt.Errorf("shape %d: %w", i+1, err)
			}
			rid, ok := byName[name]
			if !ok {
				rid = "rId" + strconv.Itoa(len(rels)+2)
				byName[name] = rid
				rels = append(rels, imageRel{ID: rid, Name: name})
			}
			shapes = append(shapes, pictureXML(v, nextID, rid))
			nextID++
		case *deck.Generic:
			var payload []byte
			payload, nextID = renumber(v.Payload, nextID)
			shapes = append(shapes, string(payload))
		default:
			return renderedSlide{}, fmt.Errorf("shape %d: unsupported shape type %T", i+1, sh)
		}
	}

	data := struct {
		Background string
		Shapes     []string
	}{drawing.Escape(s.Background), shapes}

	var buf bytes.Buffer
	if err := partTemplates.ExecuteTemplate(&buf, "slide", data); err != nil {
		return renderedSlide{}, err
	}
	return renderedSlide{xml: buf.String(), rels: rels}, nil
}

func placeholderXML(p *deck.Placeholder, id int) string {
	name := fmt.Sprintf("Placeholder %d", id-1)
	if p.Slot.IsTitle() {
		name = fmt.Sprintf("Title %d", id-1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph`, id, name)
	if p.Slot.Type != "" {
		fmt.Fprintf(&b, ` type="%s"`, drawing.Escape(p.Slot.Type))
	}
	if p.Slot.Idx != 0 {
		fmt.Fprintf(&b, ` idx="%d"`, p.Slot.Idx)
	}
	b.WriteString(`/></p:nvPr></p:nvSpPr><p:spPr>`)
	if p.Frame != nil {
		b.WriteString(drawing.Xfrm(*p.Frame))
	}
	b.WriteString(`</p:spPr><p:txBody><a:bodyPr/><a:lstStyle/>`)
	b.WriteString(drawing.Paragraphs(p.Text, p.Font, p.Align))
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

func pictureXML(p *deck.Picture, id int, rid string) string {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Picture %d", id-1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`, id, drawing.Escape(name))
	fmt.Fprintf(&b, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, rid)
	b.WriteString(`<p:spPr>`)
	b.WriteString(drawing.Xfrm(p.Frame))
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
	return b.String()
}

var cNvPrID = regexp.MustCompile(`<p:cNvPr\b[^>]*?\sid="(\d+)"`)

// renumber rewrites every p:cNvPr id in payload with consecutive ids
// starting at next, so ids stay unique within the slide.
func renumber(payload []byte, next int) ([]byte, int) {
	matches := cNvPrID.FindAllSubmatchIndex(payload, -1)
	if len(matches) == 0 {
		return payload, next
	}

	var out bytes.Buffer
	out.Grow(len(payload) + 8*len(matches))
	last := 0
	for _, m := range matches {
		out.Write(payload[last:m[2]])
		out.WriteString(strconv.Itoa(next))
		next++
		last = m[3]
	}
	out.Write(payload[last:])
	return out.Bytes(), next
}
