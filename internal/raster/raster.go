// Package raster provides the integer pixel grid shared by every analysis stage.
package raster

import (
	"fmt"
	"image/color"
)

// Reserved two-valued encoding used by binarization, morphology and labeling.
const (
	Background = 0
	Foreground = 1
)

// Kind describes how pixel values of a Raster are interpreted.
type Kind int

const (
	KindBinary Kind = iota // depth 1, values {Background, Foreground}
	KindGray               // depth 8, values 0..255 (or label IDs after labeling)
	KindRGB                // depth 24, values 0xRRGGBB
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindGray:
		return "gray"
	case KindRGB:
		return "rgb"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Raster is an owned width×height grid of integer pixel values stored row-major.
// A Raster must not be read and written by two goroutines concurrently; stages
// hand rasters on to the next stage or clone them first.
type Raster struct {
	Width   int
	Height  int
	Depth   int
	Palette []color.RGBA // optional index -> RGB lookup
	Pix     []int
}

// New allocates a zeroed raster of the given kind.
func New(width, height int, kind Kind) *Raster {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: negative size %dx%d", width, height))
	}
	r := &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]int, width*height),
	}
	switch kind {
	case KindBinary:
		r.Depth = 1
		r.Palette = BinaryPalette()
	case KindGray:
		r.Depth = 8
		r.Palette = GrayPalette()
	case KindRGB:
		r.Depth = 24
	}
	return r
}

// BinaryPalette returns the two-entry palette of binary rasters:
// background white, foreground black.
func BinaryPalette() []color.RGBA {
	return []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
	}
}

// GrayPalette returns the identity 256-entry grayscale palette.
func GrayPalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		v := uint8(i)
		p[i] = color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return p
}

// Kind reports the raster kind derived from its depth.
func (r *Raster) Kind() Kind {
	switch {
	case r.Depth == 1:
		return KindBinary
	case r.Depth <= 8:
		return KindGray
	default:
		return KindRGB
	}
}

// InBounds reports whether (x, y) lies inside the raster.
func (r *Raster) InBounds(x, y int) bool {
	return x >= 0 && x < r.Width && y >= 0 && y < r.Height
}

// At returns the pixel value at (x, y). It panics on out-of-range coordinates.
func (r *Raster) At(x, y int) int {
	r.check(x, y)
	return r.Pix[y*r.Width+x]
}

// Set stores v at (x, y). It panics on out-of-range coordinates.
func (r *Raster) Set(x, y, v int) {
	r.check(x, y)
	r.Pix[y*r.Width+x] = v
}

func (r *Raster) check(x, y int) {
	if !r.InBounds(x, y) {
		panic(fmt.Sprintf("raster: coordinate (%d,%d) outside %dx%d", x, y, r.Width, r.Height))
	}
}

// RGB resolves a pixel value to a colour using the palette when present and
// the 0xRRGGBB encoding otherwise.
func (r *Raster) RGB(v int) color.RGBA {
	if len(r.Palette) > 0 {
		if v >= 0 && v < len(r.Palette) {
			return r.Palette[v]
		}
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	c := &Raster{
		Width:  r.Width,
		Height: r.Height,
		Depth:  r.Depth,
		Pix:    make([]int, len(r.Pix)),
	}
	copy(c.Pix, r.Pix)
	if r.Palette != nil {
		c.Palette = append([]color.RGBA(nil), r.Palette...)
	}
	return c
}

// NewLike allocates a zeroed raster with the same size, depth and palette as r.
func (r *Raster) NewLike() *Raster {
	c := &Raster{
		Width:  r.Width,
		Height: r.Height,
		Depth:  r.Depth,
		Pix:    make([]int, len(r.Pix)),
	}
	if r.Palette != nil {
		c.Palette = append([]color.RGBA(nil), r.Palette...)
	}
	return c
}

// Equal reports whether both rasters have the same size and pixel values.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Width != o.Width || r.Height != o.Height {
		return false
	}
	for i, v := range r.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// Count returns the number of pixels equal to v.
func (r *Raster) Count(v int) int {
	n := 0
	for _, p := range r.Pix {
		if p == v {
			n++
		}
	}
	return n
}

// FromRows builds a gray raster from a slice of rows. All rows must have the
// same length. It is mainly useful for small hand-written fixtures.
func FromRows(rows [][]int) *Raster {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	r := New(w, h, KindGray)
	for y, row := range rows {
		if len(row) != w {
			panic(fmt.Sprintf("raster: row %d has length %d, want %d", y, len(row), w))
		}
		copy(r.Pix[y*w:(y+1)*w], row)
	}
	return r
}

// BinaryFromRows is FromRows for binary fixtures: the result has depth 1 and
// the binary palette. Values are copied as given.
func BinaryFromRows(rows [][]int) *Raster {
	r := FromRows(rows)
	r.Depth = 1
	r.Palette = BinaryPalette()
	return r
}
