package tensor

import (
	"image"
	"image/color"
)

// FromImage converts img to an array valued in [0, 1]. Three bands take the
// RGB channels; any other band count replicates luminance.
func FromImage(img image.Image, bands int) *Array {
	b := img.Bounds()
	a := New(b.Dx(), b.Dy(), bands)
	for x := 0; x < b.Dx(); x++ {
		for y := 0; y < b.Dy(); y++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			p := a.Pixel(x, y)
			if bands == 3 {
				r, g, bl, _ := c.RGBA()
				p[0] = float64(r) / 0xffff
				p[1] = float64(g) / 0xffff
				p[2] = float64(bl) / 0xffff
				continue
			}
			lum := float64(color.Gray16Model.Convert(c).(color.Gray16).Y) / 0xffff
			for k := range p {
				p[k] = lum
			}
		}
	}
	return a
}

// Band extracts channel c as a 16-bit grayscale image, clamping to [0, 1].
func (a *Array) Band(c int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, a.W, a.H))
	for x := 0; x < a.W; x++ {
		for y := 0; y < a.H; y++ {
			v := a.At(x, y, c)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v*0xffff + 0.5)})
		}
	}
	return img
}

// SetBand overwrites channel c from img, which must be W x H.
func (a *Array) SetBand(c int, img *image.Gray16) {
	b := img.Bounds()
	for x := 0; x < a.W && x < b.Dx(); x++ {
		for y := 0; y < a.H && y < b.Dy(); y++ {
			a.Set(x, y, c, float64(img.Gray16At(b.Min.X+x, b.Min.Y+y).Y)/0xffff)
		}
	}
}
