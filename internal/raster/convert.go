package raster

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Grayscale weights of the R, G and B channels, in tenths.
const (
	weightR = 3
	weightG = 6
	weightB = 1
)

// FromImage converts any decoded image into an 8-bit gray raster using the
// luminance produced by imaging.Grayscale.
func FromImage(img image.Image, workers int) *Raster {
	g := imaging.Grayscale(img)
	b := g.Bounds()
	r := New(b.Dx(), b.Dy(), KindGray)
	ForRows(r.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			off := y * g.Stride
			row := r.Pix[y*r.Width : (y+1)*r.Width]
			for x := range row {
				row[x] = int(g.Pix[off+x*4])
			}
		}
	})
	return r
}

// FromImageRGB converts any decoded image into a 24-bit raster holding 0xRRGGBB values.
func FromImageRGB(img image.Image) *Raster {
	src := imaging.Clone(img)
	b := src.Bounds()
	r := New(b.Dx(), b.Dy(), KindRGB)
	ForRows(r.Height, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			off := y * src.Stride
			row := r.Pix[y*r.Width : (y+1)*r.Width]
			for x := range row {
				p := src.Pix[off+x*4 : off+x*4+3]
				row[x] = int(p[0])<<16 | int(p[1])<<8 | int(p[2])
			}
		}
	})
	return r
}

// Grayscale converts an RGB raster into a gray raster using integer weights
// (3R + 6G + 1B) / 10. Gray and binary rasters are returned as a clone.
func Grayscale(r *Raster, workers int) *Raster {
	if r.Kind() != KindRGB {
		return r.Clone()
	}
	out := New(r.Width, r.Height, KindGray)
	ForRows(r.Height, workers, func(y0, y1 int) {
		for i := y0 * r.Width; i < y1*r.Width; i++ {
			c := r.RGB(r.Pix[i])
			out.Pix[i] = (weightR*int(c.R) + weightG*int(c.G) + weightB*int(c.B)) / 10
		}
	})
	return out
}

// Invert returns a copy with every value complemented within the raster's
// depth: v -> (2^depth - 1) &^ v.
func Invert(r *Raster, workers int) *Raster {
	out := r.NewLike()
	mask := (1 << r.Depth) - 1
	ForRows(r.Height, workers, func(y0, y1 int) {
		for i := y0 * r.Width; i < y1*r.Width; i++ {
			out.Pix[i] = mask & ^r.Pix[i]
		}
	})
	return out
}

// InvertImage returns the colour negative of a decoded image.
func InvertImage(img image.Image) *image.RGBA {
	return effect.Invert(img)
}

// ToImage renders the raster through its palette (or 0xRRGGBB encoding).
// Gray rasters with the identity palette become *image.Gray.
func ToImage(r *Raster) image.Image {
	if r.Kind() == KindGray && isIdentityGray(r.Palette) {
		g := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
		for i, v := range r.Pix {
			g.Pix[i] = uint8(clamp8(v))
		}
		return g
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	ForRows(r.Height, 0, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < r.Width; x++ {
				out.SetRGBA(x, y, r.RGB(r.Pix[y*r.Width+x]))
			}
		}
	})
	return out
}

func isIdentityGray(p []color.RGBA) bool {
	if len(p) != 256 {
		return false
	}
	for i, c := range p {
		if int(c.R) != i || c.R != c.G || c.G != c.B {
			return false
		}
	}
	return true
}

func clamp8(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
