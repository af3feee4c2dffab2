// Package drawing builds DrawingML fragments for shapes placed on slides.
package drawing

import "strings"

// Escape escapes text for XML character data and attribute values.
// Control characters that XML 1.0 cannot carry are dropped.
func Escape(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) + len(text)/4)

	for _, r := range text {
		switch r {
		case '&':
			result.WriteString("&amp;")
		case '<':
			result.WriteString("&lt;")
		case '>':
			result.WriteString("&gt;")
		case '"':
			result.WriteString("&quot;")
		case '\'':
			result.WriteString("&apos;")
		case '\t', '\n', '\r':
			result.WriteRune(r)
		default:
			if r < 0x20 || r == 0xFFFE || r == 0xFFFF {
				continue
			}
			result.WriteRune(r)
		}
	}

	return result.String()
}
