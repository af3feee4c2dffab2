// Package skeleton builds the fixed slide scaffold (background, title,
// ribbon, slide index and logo) from one resolved style configuration.
package skeleton

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/schemas"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
	"gopkg.in/yaml.v3"
)

// Style holds user overrides for the slide skeleton. Colors are hex
// strings with or without a leading '#'. Empty fields use Defaults.
type Style struct {
	BackgroundColor      string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	TitleFontColor       string `json:"title_font_color,omitempty" yaml:"title_font_color,omitempty"`
	TitleSlideFontColor  string `json:"title_slide_font_color,omitempty" yaml:"title_slide_font_color,omitempty"`
	TitleRibbonFontColor string `json:"title_ribbon_font_color,omitempty" yaml:"title_ribbon_font_color,omitempty"`
	RibbonColor1         string `json:"ribbon_color_1,omitempty" yaml:"ribbon_color_1,omitempty"`
	RibbonColor2         string `json:"ribbon_color_2,omitempty" yaml:"ribbon_color_2,omitempty"`
	RibbonFontColor1     string `json:"ribbon_font_color_1,omitempty" yaml:"ribbon_font_color_1,omitempty"`
	RibbonFontColor2     string `json:"ribbon_font_color_2,omitempty" yaml:"ribbon_font_color_2,omitempty"`
	RowBackgroundColor   string `json:"row_background_color,omitempty" yaml:"row_background_color,omitempty"`
	RowFontColor         string `json:"row_font_color,omitempty" yaml:"row_font_color,omitempty"`
	ContentFontColor     string `json:"content_font_color,omitempty" yaml:"content_font_color,omitempty"`
	RibbonCaption        string `json:"ribbon_caption,omitempty" yaml:"ribbon_caption,omitempty"`
	LogoPath             string `json:"logo_path,omitempty" yaml:"logo_path,omitempty"`
	TitleLogoPath        string `json:"title_logo_path,omitempty" yaml:"title_logo_path,omitempty"`
}

// Defaults is the documented default for every style option.
var Defaults = Style{
	BackgroundColor:      "#06357A",
	TitleFontColor:       "#000000",
	TitleSlideFontColor:  "#FFFFFF",
	TitleRibbonFontColor: "#FFFFFF",
	RibbonColor1:         "#FFBF00",
	RibbonColor2:         "#06357A",
	RibbonFontColor1:     "#000000",
	RibbonFontColor2:     "#FFFFFF",
	RowBackgroundColor:   "#008080",
	RowFontColor:         "#FFFFFF",
	ContentFontColor:     "#000000",
	RibbonCaption:        "Model Monitoring",
}

// Image is a logo ready for embedding.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Resolved is a Style with every option filled in and colors normalized to
// upper-case RRGGBB. All skeleton drawing reads from a Resolved value.
type Resolved struct {
	BackgroundColor      string
	TitleFontColor       string
	TitleSlideFontColor  string
	TitleRibbonFontColor string
	RibbonColor1         string
	RibbonColor2         string
	RibbonFontColor1     string
	RibbonFontColor2     string
	RowBackgroundColor   string
	RowFontColor         string
	ContentFontColor     string
	RibbonCaption        string
	Logo                 Image
	TitleLogo            Image
}

// Resolve fills s from Defaults. Bad colors and unreadable logo files fall
// back to the default and are reported as warnings, never as errors.
func Resolve(s Style) (Resolved, []string) {
	var (
		r        Resolved
		warnings []string
	)

	colors := []struct {
		name string
		in   string
		def  string
		out  *string
	}{
		{"background_color", s.BackgroundColor, Defaults.BackgroundColor, &r.BackgroundColor},
		{"title_font_color", s.TitleFontColor, Defaults.TitleFontColor, &r.TitleFontColor},
		{"title_slide_font_color", s.TitleSlideFontColor, Defaults.TitleSlideFontColor, &r.TitleSlideFontColor},
		{"title_ribbon_font_color", s.TitleRibbonFontColor, Defaults.TitleRibbonFontColor, &r.TitleRibbonFontColor},
		{"ribbon_color_1", s.RibbonColor1, Defaults.RibbonColor1, &r.RibbonColor1},
		{"ribbon_color_2", s.RibbonColor2, Defaults.RibbonColor2, &r.RibbonColor2},
		{"ribbon_font_color_1", s.RibbonFontColor1, Defaults.RibbonFontColor1, &r.RibbonFontColor1},
		{"ribbon_font_color_2", s.RibbonFontColor2, Defaults.RibbonFontColor2, &r.RibbonFontColor2},
		{"row_background_color", s.RowBackgroundColor, Defaults.RowBackgroundColor, &r.RowBackgroundColor},
		{"row_font_color", s.RowFontColor, Defaults.RowFontColor, &r.RowFontColor},
		{"content_font_color", s.ContentFontColor, Defaults.ContentFontColor, &r.ContentFontColor},
	}
	for _, c := range colors {
		def, _ := NormalizeColor(c.def)
		*c.out = def
		if c.in == "" {
			continue
		}
		norm, ok := NormalizeColor(c.in)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not a hex color, using #%s", c.name, c.in, def))
			continue
		}
		*c.out = norm
	}

	r.RibbonCaption = s.RibbonCaption
	if r.RibbonCaption == "" {
		r.RibbonCaption = Defaults.RibbonCaption
	}

	r.Logo = defaultLogo()
	r.TitleLogo = defaultTitleLogo()
	if s.LogoPath != "" {
		img, err := loadImage(s.LogoPath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("logo_path: %v, using built-in logo", err))
		} else {
			r.Logo = img
		}
	}
	if s.TitleLogoPath != "" {
		img, err := loadImage(s.TitleLogoPath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("title_logo_path: %v, using built-in logo", err))
		} else {
			r.TitleLogo = img
		}
	}

	return r, warnings
}

// DefaultResolved returns the resolved default style.
func DefaultResolved() Resolved {
	r, _ := Resolve(Style{})
	return r
}

// NormalizeColor turns "#abc", "abc", "#aabbcc" or "aabbcc" into "AABBCC".
func NormalizeColor(c string) (string, bool) {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	for _, r := range c {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}
	switch len(c) {
	case 3:
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	case 6:
	default:
		return "", false
	}
	return strings.ToUpper(c), true
}

func loadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	info, err := pptx.ProbeImage(data)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return Image{Data: data, Width: info.Width, Height: info.Height}, nil
}

// LoadStyle reads a style file. YAML and JSON are both accepted.
func LoadStyle(path string) (Style, error) {
	if path == "" {
		return Style{}, fmt.Errorf("style path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, fmt.Errorf("failed to read style file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Style{}, fmt.Errorf("failed to parse style file %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := schemas.ValidateValue(schemafiles.Style, raw); err != nil {
		return Style{}, fmt.Errorf("invalid style file %s: %w", path, err)
	}

	var s Style
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Style{}, fmt.Errorf("failed to parse style file %s: %w", path, err)
	}

	// logo paths are relative to the style file
	base := filepath.Dir(path)
	if s.LogoPath != "" && !filepath.IsAbs(s.LogoPath) {
		s.LogoPath = filepath.Join(base, s.LogoPath)
	}
	if s.TitleLogoPath != "" && !filepath.IsAbs(s.TitleLogoPath) {
		s.TitleLogoPath = filepath.Join(base, s.TitleLogoPath)
	}
	return s, nil
}
