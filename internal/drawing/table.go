package drawing

import (
	"fmt"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/deck"
)

// MediumStyle2Accent1 is the built-in "Medium Style 2 - Accent 1" table style.
const MediumStyle2Accent1 = "{5940675A-B579-460E-94D1-54222C63F5DA}"

// TableCell is one cell of a table fragment.
type TableCell struct {
	Text string
	Font *deck.Font
	Fill string // RRGGBB, empty keeps the table style fill
}

// TableSpec describes a table graphic frame.
type TableSpec struct {
	Name      string
	Frame     deck.Frame
	StyleID   string
	RowHeight int64
	Rows      [][]TableCell // first row is the header
}

// Table returns a p:graphicFrame holding an a:tbl. Columns share the frame
// width evenly.
func Table(spec TableSpec) []byte {
	cols := 0
	for _, r := range spec.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		cols = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="0" name="%s"/>`, Escape(spec.Name))
	b.WriteString(`<p:cNvGraphicFramePr><a:graphicFrameLocks noGrp="1"/></p:cNvGraphicFramePr><p:nvPr/></p:nvGraphicFramePr>`)
	fmt.Fprintf(&b, `<p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`,
		spec.Frame.X, spec.Frame.Y, spec.Frame.W, spec.Frame.H)
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>`)
	b.WriteString(`<a:tblPr firstRow="1" bandRow="1">`)
	if spec.StyleID != "" {
		fmt.Fprintf(&b, "<a:tableStyleId>%s</a:tableStyleId>", Escape(spec.StyleID))
	}
	b.WriteString("</a:tblPr><a:tblGrid>")

	colWidth := spec.Frame.W / int64(cols)
	for i := 0; i < cols; i++ {
		w := colWidth
		if i == cols-1 {
			w = spec.Frame.W - colWidth*int64(cols-1)
		}
		fmt.Fprintf(&b, `<a:gridCol w="%d"/>`, w)
	}
	b.WriteString("</a:tblGrid>")

	for _, row := range spec.Rows {
		fmt.Fprintf(&b, `<a:tr h="%d">`, spec.RowHeight)
		for i := 0; i < cols; i++ {
			var cell TableCell
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString("<a:tc><a:txBody><a:bodyPr/><a:lstStyle/>")
			b.WriteString(Paragraph(cell.Text, cell.Font, ""))
			b.WriteString("</a:txBody>")
			if cell.Fill != "" {
				fmt.Fprintf(&b, `<a:tcPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:tcPr>`, Escape(cell.Fill))
			} else {
				b.WriteString("<a:tcPr/>")
			}
			b.WriteString("</a:tc>")
		}
		b.WriteString("</a:tr>")
	}

	b.WriteString("</a:tbl></a:graphicData></a:graphic></p:graphicFrame>")
	return []byte(b.String())
}
