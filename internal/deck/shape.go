package deck

import "bytes"

// Kind identifies a shape variant.
type Kind int

const (
	KindPlaceholder Kind = iota
	KindPicture
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "placeholder"
	case KindPicture:
		return "picture"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Shape is one of *Placeholder, *Picture or *Generic.
type Shape interface {
	Kind() Kind
	// Clone returns an independent copy suitable for placing on another
	// slide, possibly in another deck.
	Clone() Shape
	shape()
}

// Slot identifies the layout placeholder a shape is bound to.
type Slot struct {
	Type string // "title", "ctrTitle", "body", ... empty means an untyped object slot
	Idx  int
}

// TitleSlot is the slot of the layout title.
var TitleSlot = Slot{Type: "title"}

// IsTitle reports whether the slot holds a slide title.
func (s Slot) IsTitle() bool {
	return s.Type == "title" || s.Type == "ctrTitle"
}

// Placeholder is a text shape bound to a layout slot. Lines of Text are
// separated by "\n".
type Placeholder struct {
	Slot  Slot
	Text  string
	Frame *Frame
	Font  *Font
	Align string // "l", "ctr" or "r"; empty inherits
}

func (*Placeholder) Kind() Kind { return KindPlaceholder }
func (*Placeholder) shape()     {}

// Clone copies the slot binding and text only. Position and formatting
// come from the target layout, or from a later restyle.
func (p *Placeholder) Clone() Shape {
	return &Placeholder{Slot: p.Slot, Text: p.Text}
}

// Picture is an embedded image.
type Picture struct {
	Name  string
	Frame Frame
	Data  []byte
	// Format is the media extension the image was read with ("emf", "svg", ...).
	// It only matters for bytes that are not PNG, JPEG or GIF.
	Format string
}

func (*Picture) Kind() Kind { return KindPicture }
func (*Picture) shape()     {}

// Clone copies the image bytes and frame.
func (p *Picture) Clone() Shape {
	return &Picture{Name: p.Name, Frame: p.Frame, Data: bytes.Clone(p.Data), Format: p.Format}
}

// Generic is an opaque DrawingML element (p:sp, p:graphicFrame, p:grpSp,
// ...) kept as raw XML. The payload uses the conventional a/p/r prefixes.
type Generic struct {
	Payload []byte
}

func (*Generic) Kind() Kind { return KindGeneric }
func (*Generic) shape()     {}

// Clone copies the payload verbatim.
func (g *Generic) Clone() Shape {
	return &Generic{Payload: bytes.Clone(g.Payload)}
}
