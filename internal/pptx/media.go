package pptx

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"sort"

	// decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ImageInfo describes raster bytes accepted for embedding.
type ImageInfo struct {
	Format string // "png", "jpeg" or "gif"
	Width  int
	Height int
}

// ProbeImage checks that data is a PNG, JPEG or GIF image and returns its format and pixel size.
func ProbeImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: zero-sized image", ErrUnsupportedImage)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

var mediaContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
	"svg":  "image/svg+xml",
}

// mediaSet assigns package names to image bytes, sharing one part between
// identical images.
type mediaSet struct {
	byHash map[[sha256.Size]byte]string
	parts  []mediaPart
	exts   map[string]bool
}

type mediaPart struct {
	Name string
	Data []byte
}

func newMediaSet() *mediaSet {
	return &mediaSet{
		byHash: make(map[[sha256.Size]byte]string),
		exts:   map[string]bool{"png": true, "jpeg": true, "gif": true},
	}
}

// add registers data and returns its part name. Bytes that are not a
// decodable raster image are accepted only when format names a known
// media type, which is how pictures copied from other decks keep their
// original encoding.
func (m *mediaSet) add(data []byte, format string) (string, error) {
	sum := sha256.Sum256(data)
	if name, ok := m.byHash[sum]; ok {
		return name, nil
	}
	ext := ""
	info, err := ProbeImage(data)
	switch {
	case err == nil:
		ext = info.Format
	case format != "" && mediaContentTypes[format] != "":
		ext = format
	default:
		return "", err
	}
	m.exts[ext] = true
	name := fmt.Sprintf("image%d.%s", len(m.parts)+1, ext)
	m.byHash[sum] = name
	m.parts = append(m.parts, mediaPart{Name: name, Data: data})
	return name, nil
}

type mediaType struct {
	Ext  string
	Type string
}

func (m *mediaSet) types() []mediaType {
	exts := make([]string, 0, len(m.exts))
	for ext := range m.exts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	out := make([]mediaType, 0, len(exts))
	for _, ext := range exts {
		out = append(out, mediaType{Ext: ext, Type: mediaContentTypes[ext]})
	}
	return out
}
