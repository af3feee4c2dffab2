package drawing

import (
	"fmt"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/deck"
)

// Shape ids inside fragments are written as 0; the deck writer assigns
// unique ids when the slide is serialized.

// Rect returns a filled rectangle with optional single-line text.
func Rect(name string, frame deck.Frame, fill, line string, text string, font *deck.Font, align string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="0" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, Escape(name))
	b.WriteString("<p:spPr>")
	b.WriteString(Xfrm(frame))
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`)
	writeFill(&b, fill)
	if line != "" {
		fmt.Fprintf(&b, `<a:ln><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:ln>`, Escape(line))
	} else {
		b.WriteString(`<a:ln><a:noFill/></a:ln>`)
	}
	b.WriteString("</p:spPr>")
	b.WriteString(`<p:txBody><a:bodyPr rtlCol="0" anchor="ctr"/><a:lstStyle/>`)
	b.WriteString(Paragraph(text, font, align))
	b.WriteString("</p:txBody></p:sp>")
	return []byte(b.String())
}

// TextBox returns a borderless text box; each line of text becomes a paragraph.
func TextBox(name string, frame deck.Frame, text string, font *deck.Font) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="0" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, Escape(name))
	b.WriteString("<p:spPr>")
	b.WriteString(Xfrm(frame))
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)
	b.WriteString(`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:spAutoFit/></a:bodyPr><a:lstStyle/>`)
	b.WriteString(Paragraphs(text, font, ""))
	b.WriteString("</p:txBody></p:sp>")
	return []byte(b.String())
}

func writeFill(b *strings.Builder, fill string) {
	if fill == "" {
		b.WriteString("<a:noFill/>")
		return
	}
	fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, Escape(fill))
}
