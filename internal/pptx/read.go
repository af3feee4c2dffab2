package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/deck"
)

type xRelationships struct {
	Rels []xRelationship `xml:"Relationship"`
}

type xRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xPresentation struct {
	SldIDList *struct {
		IDs []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main sldId"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main sldIdLst"`
}

type xSolidFill struct {
	SrgbClr *struct {
		Val string `xml:"val,attr"`
	} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main srgbClr"`
}

type xSlideBackground struct {
	CSld struct {
		Bg *struct {
			BgPr *struct {
				SolidFill *xSolidFill `xml:"http://schemas.openxmlformats.org/drawingml/2006/main solidFill"`
			} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main bgPr"`
		} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main bg"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main cSld"`
}

type xCNvPr struct {
	Name string `xml:"name,attr"`
}

type xXfrm struct {
	Off struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main off"`
	Ext struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main ext"`
}

type xRPr struct {
	Sz        int         `xml:"sz,attr"`
	B         string      `xml:"b,attr"`
	SolidFill *xSolidFill `xml:"http://schemas.openxmlformats.org/drawingml/2006/main solidFill"`
}

type xParagraph struct {
	PPr *struct {
		Algn string `xml:"algn,attr"`
	} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main pPr"`
	Runs []struct {
		RPr *xRPr  `xml:"http://schemas.openxmlformats.org/drawingml/2006/main rPr"`
		T   string `xml:"http://schemas.openxmlformats.org/drawingml/2006/main t"`
	} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main r"`
}

// xShape picks out the parts of p:sp and p:pic that map onto deck shapes.
type xShape struct {
	XMLName xml.Name
	NvSpPr  *struct {
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
				Idx  int    `xml:"idx,attr"`
			} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main ph"`
		} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main nvPr"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main nvSpPr"`
	NvPicPr *struct {
		CNvPr xCNvPr `xml:"http://schemas.openxmlformats.org/presentationml/2006/main cNvPr"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main nvPicPr"`
	BlipFill *struct {
		Blip *struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"http://schemas.openxmlformats.org/drawingml/2006/main blip"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main blipFill"`
	SpPr *struct {
		Xfrm *xXfrm `xml:"http://schemas.openxmlformats.org/drawingml/2006/main xfrm"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main spPr"`
	TxBody *struct {
		Paragraphs []xParagraph `xml:"http://schemas.openxmlformats.org/drawingml/2006/main p"`
	} `xml:"http://schemas.openxmlformats.org/presentationml/2006/main txBody"`
}

type pkg struct {
	files map[string]*zip.File
}

// Decode parses a .pptx package into a deck. Slides come back in
// presentation order with Index set to their 1-based position.
func Decode(data []byte) (*deck.Deck, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotADeck, err)
	}

	p := &pkg{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}

	presPart := p.mainPart()
	presXML, err := p.read(presPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotADeck, err)
	}

	var pres xPresentation
	if err := xml.Unmarshal(presXML, &pres); err != nil {
		return nil, &PartError{Part: presPart, Cause: err}
	}

	rels, err := p.rels(presPart)
	if err != nil {
		return nil, err
	}

	d := &deck.Deck{}
	if pres.SldIDList == nil {
		return d, nil
	}

	for i, id := range pres.SldIDList.IDs {
		rel, ok := rels[id.RID]
		if !ok {
			return nil, &PartError{Part: presPart, Cause: fmt.Errorf("slide relationship %s not found", id.RID)}
		}
		slide, err := p.slide(rel)
		if err != nil {
			return nil, err
		}
		slide.Index = i + 1
		d.Append(slide)
	}
	return d, nil
}

func (p *pkg) mainPart() string {
	rels, err := p.rels("")
	if err == nil {
		for _, target := range rels {
			if strings.HasSuffix(target.Type, "/officeDocument") {
				return target.Target
			}
		}
	}
	return "ppt/presentation.xml"
}

func (p *pkg) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &PartError{Part: name, Cause: err}
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &PartError{Part: name, Cause: err}
	}
	return data, nil
}

// rels returns the internal relationships of part keyed by id, with
// targets resolved to package paths. An empty part means the package root.
func (p *pkg) rels(part string) (map[string]xRelationship, error) {
	relsPath := "_rels/.rels"
	if part != "" {
		relsPath = path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	}

	out := map[string]xRelationship{}
	if _, ok := p.files[relsPath]; !ok {
		return out, nil
	}
	data, err := p.read(relsPath)
	if err != nil {
		return nil, err
	}

	var rels xRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, &PartError{Part: relsPath, Cause: err}
	}
	for _, r := range rels.Rels {
		if r.TargetMode == "External" {
			continue
		}
		r.Target = resolveTarget(part, r.Target)
		out[r.ID] = r
	}
	return out, nil
}

func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

func (p *pkg) slide(rel xRelationship) (*deck.Slide, error) {
	data, err := p.read(rel.Target)
	if err != nil {
		return nil, err
	}
	rels, err := p.rels(rel.Target)
	if err != nil {
		return nil, err
	}

	var bg xSlideBackground
	if err := xml.Unmarshal(data, &bg); err != nil {
		return nil, &PartError{Part: rel.Target, Cause: err}
	}

	slide := &deck.Slide{}
	if b := bg.CSld.Bg; b != nil && b.BgPr != nil {
		slide.Background = fillColor(b.BgPr.SolidFill)
	}

	media := func(rid string) ([]byte, string, bool) {
		r, ok := rels[rid]
		if !ok {
			return nil, "", false
		}
		blob, err := p.read(r.Target)
		if err != nil {
			return nil, "", false
		}
		return blob, strings.ToLower(strings.TrimPrefix(path.Ext(r.Target), ".")), true
	}

	shapes, err := decodeShapes(data, media)
	if err != nil {
		return nil, &PartError{Part: rel.Target, Cause: err}
	}
	slide.Shapes = shapes
	return slide, nil
}

// decodeShapes walks the children of p:spTree in document order. Each child
// is decoded into a probe for classification and also kept as the raw bytes
// it spans in the slide part.
func decodeShapes(data []byte, media func(rid string) ([]byte, string, bool)) ([]deck.Shape, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("slide has no shape tree")
			}
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Space == nsP && se.Name.Local == "spTree" {
			break
		}
	}

	var shapes []deck.Shape
	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return shapes, nil
		case xml.StartElement:
			if t.Name.Space == nsP && (t.Name.Local == "nvGrpSpPr" || t.Name.Local == "grpSpPr" || t.Name.Local == "extLst") {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}

			var probe xShape
			if err := dec.DecodeElement(&probe, &t); err != nil {
				return nil, err
			}
			raw := bytes.Clone(data[off:dec.InputOffset()])
			shapes = append(shapes, toShape(&probe, raw, media))
		}
	}
}

func toShape(probe *xShape, raw []byte, media func(rid string) ([]byte, string, bool)) deck.Shape {
	if probe.XMLName.Space != nsP {
		return &deck.Generic{Payload: raw}
	}

	switch probe.XMLName.Local {
	case "sp":
		if probe.NvSpPr == nil || probe.NvSpPr.NvPr.Ph == nil {
			break
		}
		ph := probe.NvSpPr.NvPr.Ph
		out := &deck.Placeholder{Slot: deck.Slot{Type: ph.Type, Idx: ph.Idx}}
		if probe.SpPr != nil && probe.SpPr.Xfrm != nil {
			f := frame(probe.SpPr.Xfrm)
			out.Frame = &f
		}
		if probe.TxBody != nil {
			out.Text, out.Font, out.Align = text(probe.TxBody.Paragraphs)
		}
		return out

	case "pic":
		if probe.BlipFill == nil || probe.BlipFill.Blip == nil {
			break
		}
		blob, format, ok := media(probe.BlipFill.Blip.Embed)
		if !ok {
			break
		}
		out := &deck.Picture{Data: blob}
		if _, err := ProbeImage(blob); err != nil {
			out.Format = format
		}
		if probe.NvPicPr != nil {
			out.Name = probe.NvPicPr.CNvPr.Name
		}
		if probe.SpPr != nil && probe.SpPr.Xfrm != nil {
			out.Frame = frame(probe.SpPr.Xfrm)
		}
		return out
	}

	return &deck.Generic{Payload: raw}
}

func frame(x *xXfrm) deck.Frame {
	return deck.Frame{X: x.Off.X, Y: x.Off.Y, W: x.Ext.Cx, H: x.Ext.Cy}
}

// text joins paragraph runs into newline separated text and reports the
// formatting of the first run and the first paragraph's alignment.
func text(paragraphs []xParagraph) (string, *deck.Font, string) {
	var (
		lines []string
		font  *deck.Font
		align string
	)
	for i, p := range paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			sb.WriteString(r.T)
			if font == nil && r.RPr != nil {
				font = runFont(r.RPr)
			}
		}
		lines = append(lines, sb.String())
		if i == 0 && p.PPr != nil {
			align = p.PPr.Algn
		}
	}
	return strings.Join(lines, "\n"), font, align
}

func runFont(r *xRPr) *deck.Font {
	f := &deck.Font{
		Size:  r.Sz,
		Bold:  r.B == "1" || r.B == "true",
		Color: fillColor(r.SolidFill),
	}
	if *f == (deck.Font{}) {
		return nil
	}
	return f
}

func fillColor(f *xSolidFill) string {
	if f == nil || f.SrgbClr == nil {
		return ""
	}
	return strings.ToUpper(f.SrgbClr.Val)
}
