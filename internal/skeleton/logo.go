package skeleton

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	navy  = color.RGBA{R: 0x06, G: 0x35, B: 0x7A, A: 0xFF}
	amber = color.RGBA{R: 0xFF, G: 0xBF, B: 0x00, A: 0xFF}
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

var (
	logoOnce      sync.Once
	logo          Image
	titleLogoOnce sync.Once
	titleLogo     Image
)

// defaultLogo is a 64x64 navy tile with an amber bar, used in the corner of content slides.
func defaultLogo() Image {
	logoOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				c := navy
				if y >= 40 && y < 52 && x >= 12 && x < 52 {
					c = amber
				}
				img.SetRGBA(x, y, c)
			}
		}
		logo = encodeLogo(img)
	})
	return logo
}

// defaultTitleLogo is a 192x64 banner used on title slides.
func defaultTitleLogo() Image {
	titleLogoOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 192, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 192; x++ {
				c := white
				switch {
				case x < 64:
					c = navy
				case y >= 48:
					c = amber
				}
				img.SetRGBA(x, y, c)
			}
		}
		titleLogo = encodeLogo(img)
	})
	return titleLogo
}

func encodeLogo(img *image.RGBA) Image {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// encoding an in-memory RGBA image cannot fail
		panic(err)
	}
	b := img.Bounds()
	return Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}
}
