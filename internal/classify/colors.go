package classify

import "github.com/jonathan/monitoring-deck/internal/types"

// Fill colors used when a band is painted into a deck or spreadsheet.
const (
	FillGreen = "00FF00"
	FillAmber = "FFBF00"
	FillRed   = "FF0000"
)

// FillColor returns the RRGGBB fill for band. Unclassified cells keep
// whatever fill the table style gives them.
func FillColor(b types.Band) (string, bool) {
	switch b {
	case types.BandGreen:
		return FillGreen, true
	case types.BandAmber:
		return FillAmber, true
	case types.BandRed:
		return FillRed, true
	default:
		return "", false
	}
}

// CSSColor returns the background color for band in an HTML table.
func CSSColor(b types.Band) string {
	switch b {
	case types.BandGreen:
		return "green"
	case types.BandAmber:
		return "orange"
	case types.BandRed:
		return "red"
	default:
		return "white"
	}
}

// CSSStyle returns the inline style attribute value for a highlighted cell.
func CSSStyle(b types.Band) string {
	return "background-color: " + CSSColor(b)
}
