package skeleton

import (
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/drawing"
)

// Layout selects one of the two slide skeletons.
type Layout int

const (
	// LayoutTitle is a centered, large bold title over the background color
	// with a full-width ribbon.
	LayoutTitle Layout = iota
	// LayoutContent has a small top-left title, a two-part ribbon and a corner logo.
	LayoutContent
)

func (l Layout) String() string {
	if l == LayoutTitle {
		return "title"
	}
	return "content"
}

// Geometry shared by both layouts.
var (
	RibbonHeight = deck.Inches(0.28)
	ribbonTop    = deck.SlideHeight - RibbonHeight

	TitleSlideTitleFrame = deck.Box(1, 2.6, 8, 2)
	ContentTitleFrame    = deck.Box(0.5, 0.2, 9, 0.5)
)

// Font sizes in hundredths of a point.
const (
	TitleSlideTitleSize = 4200
	ContentTitleSize    = 2200
	RibbonTextSize      = 900
)

// Reserved shape names for skeleton decorations.
const (
	NameRibbon        = "Ribbon"
	NameRibbonCaption = "Ribbon Caption"
	NameRibbonIndex   = "Ribbon Index"
	NameLogo          = "Logo"
)

// NewSlide returns a fresh slide of the given layout carrying the running
// slide index. The title placeholder is empty; callers set its text.
// The same arguments always produce the same slide.
func NewSlide(layout Layout, index int, r Resolved) *deck.Slide {
	s := &deck.Slide{Index: index}
	title := &deck.Placeholder{Slot: deck.TitleSlot}
	s.Add(title)

	switch layout {
	case LayoutTitle:
		s.Background = r.BackgroundColor
		styleTitleSlideTitle(title, r)
		s.Add(titleLogoPicture(r), fullRibbon(index, r))
	default:
		styleContentTitle(title, r)
		s.Add(splitRibbon(index, r)...)
		s.Add(contentLogoPicture(r))
	}
	return s
}

func styleTitleSlideTitle(title *deck.Placeholder, r Resolved) {
	f := TitleSlideTitleFrame
	title.Frame = &f
	title.Font = &deck.Font{Size: TitleSlideTitleSize, Bold: true, Color: r.TitleSlideFontColor}
	title.Align = "ctr"
}

func styleContentTitle(title *deck.Placeholder, r Resolved) {
	f := ContentTitleFrame
	title.Frame = &f
	title.Font = &deck.Font{Size: ContentTitleSize, Color: r.TitleFontColor}
	title.Align = "l"
}

// IndexLabel is the ribbon text that carries a slide index.
func IndexLabel(index int) string {
	return fmt.Sprintf(" %d\t", index)
}

func fullRibbon(index int, r Resolved) deck.Shape {
	frame := deck.Frame{X: 0, Y: ribbonTop, W: deck.SlideWidth, H: RibbonHeight}
	font := &deck.Font{Size: RibbonTextSize, Color: r.TitleRibbonFontColor}
	return &deck.Generic{Payload: drawing.Rect(NameRibbon, frame, r.BackgroundColor, r.BackgroundColor, IndexLabel(index), font, "r")}
}

func splitRibbon(index int, r Resolved) []deck.Shape {
	half := deck.SlideWidth / 2
	left := deck.Frame{X: 0, Y: ribbonTop, W: half, H: RibbonHeight}
	right := deck.Frame{X: half, Y: ribbonTop, W: deck.SlideWidth - half, H: RibbonHeight}

	return []deck.Shape{
		&deck.Generic{Payload: drawing.Rect(NameRibbonCaption, left, r.RibbonColor1, r.RibbonColor1,
			"\t"+r.RibbonCaption, &deck.Font{Size: RibbonTextSize, Color: r.RibbonFontColor1}, "l")},
		&deck.Generic{Payload: drawing.Rect(NameRibbonIndex, right, r.RibbonColor2, r.RibbonColor2,
			IndexLabel(index), &deck.Font{Size: RibbonTextSize, Color: r.RibbonFontColor2}, "r")},
	}
}

// logoFrame places img at (x, y) scaled to height h, keeping its aspect ratio.
func logoFrame(img Image, x, y, h int64) deck.Frame {
	w := h
	if img.Height > 0 {
		w = h * int64(img.Width) / int64(img.Height)
	}
	return deck.Frame{X: x, Y: y, W: w, H: h}
}

func titleLogoPicture(r Resolved) deck.Shape {
	return &deck.Picture{
		Name:  NameLogo,
		Frame: logoFrame(r.TitleLogo, deck.Inches(0.6), deck.Inches(0.25), deck.Inches(0.6)),
		Data:  r.TitleLogo.Data,
	}
}

func contentLogoPicture(r Resolved) deck.Shape {
	return &deck.Picture{
		Name:  NameLogo,
		Frame: logoFrame(r.Logo, deck.SlideWidth-deck.Inches(0.6), deck.Inches(0.15), deck.Inches(0.45)),
		Data:  r.Logo.Data,
	}
}
