// Package deck models a slide deck as plain values: slides holding a
// closed set of shape variants.
package deck

import "math"

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

// Slide size of every deck this module writes (10in x 7.5in).
const (
	SlideWidth  int64 = 10 * EMUPerInch
	SlideHeight int64 = 7.5 * EMUPerInch
)

// Inches converts inches to EMU.
func Inches(v float64) int64 {
	return int64(math.Round(v * EMUPerInch))
}

// Points converts a font size in points to hundredths of a point.
func Points(v float64) int {
	return int(math.Round(v * 100))
}

// Frame is a shape's position and size in EMU.
type Frame struct {
	X int64
	Y int64
	W int64
	H int64
}

// Box builds a frame from inch values.
func Box(x, y, w, h float64) Frame {
	return Frame{X: Inches(x), Y: Inches(y), W: Inches(w), H: Inches(h)}
}

// Font describes run formatting. Zero values inherit from the layout.
type Font struct {
	Size  int // hundredths of a point
	Bold  bool
	Color string // RRGGBB
}

// Slide is an ordered list of shapes over an optional solid background.
type Slide struct {
	Index      int
	Background string // RRGGBB, empty for the layout default
	Shapes     []Shape
}

// Add appends shapes to the slide, above everything already on it.
func (s *Slide) Add(shapes ...Shape) {
	s.Shapes = append(s.Shapes, shapes...)
}

// Title returns the slide's title placeholder, or nil.
func (s *Slide) Title() *Placeholder {
	for _, sh := range s.Shapes {
		if ph, ok := sh.(*Placeholder); ok && ph.Slot.IsTitle() {
			return ph
		}
	}
	return nil
}

// Deck is an ordered sequence of slides.
type Deck struct {
	Slides []*Slide
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Slides)
}

// Append adds slide to the end of the deck.
func (d *Deck) Append(s *Slide) {
	d.Slides = append(d.Slides, s)
}
