package drawing

import (
	"fmt"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/deck"
)

func runProps(tag string, f *deck.Font) string {
	var b strings.Builder
	b.WriteString("<a:")
	b.WriteString(tag)
	b.WriteString(` lang="en-US"`)
	if f != nil && f.Size > 0 {
		fmt.Fprintf(&b, ` sz="%d"`, f.Size)
	}
	if f != nil && f.Bold {
		b.WriteString(` b="1"`)
	}
	b.WriteString(` dirty="0"`)
	if f != nil && f.Color != "" {
		fmt.Fprintf(&b, `><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:%s>`, Escape(f.Color), tag)
	} else {
		b.WriteString("/>")
	}
	return b.String()
}

// Run returns a single text run.
func Run(text string, f *deck.Font) string {
	return "<a:r>" + runProps("rPr", f) + "<a:t>" + Escape(text) + "</a:t></a:r>"
}

// Paragraph returns one a:p holding text as a single run. Empty text yields
// an empty paragraph that still carries the font size.
func Paragraph(text string, f *deck.Font, align string) string {
	var b strings.Builder
	b.WriteString("<a:p>")
	if align != "" {
		fmt.Fprintf(&b, `<a:pPr algn="%s"/>`, Escape(align))
	}
	if text == "" {
		b.WriteString(runProps("endParaRPr", f))
	} else {
		b.WriteString(Run(text, f))
	}
	b.WriteString("</a:p>")
	return b.String()
}

// Paragraphs splits text on newlines and returns one paragraph per line.
func Paragraphs(text string, f *deck.Font, align string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(Paragraph(strings.TrimSuffix(line, "\r"), f, align))
	}
	return b.String()
}

// Xfrm returns the a:xfrm element for a frame.
func Xfrm(f deck.Frame) string {
	return fmt.Sprintf(`<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, f.X, f.Y, f.W, f.H)
}
