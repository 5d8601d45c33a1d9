// Package render turns a labeled raster into a false-colour image and draws
// particle annotations on top of it.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/particles/internal/particle"
	"github.com/MeKo-Tech/particles/internal/raster"
)

var (
	Black = color.RGBA{A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
)

// OverlayOptions selects which annotations Overlay draws and in which colour.
type OverlayOptions struct {
	FalseColor    bool
	BoundingBox   bool
	ConvexHull    bool
	Centroid      bool
	Labels        bool
	BoxColor      color.RGBA
	HullColor     color.RGBA
	CentroidColor color.RGBA
	LabelColor    color.RGBA
	Workers       int // row goroutines for the background (<= 0 uses raster.DefaultWorkers)
}

// DefaultOverlayOptions draws every annotation except label numbers on a
// false-colour background.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		FalseColor:    true,
		BoundingBox:   true,
		ConvexHull:    true,
		Centroid:      true,
		BoxColor:      Red,
		HullColor:     Green,
		CentroidColor: White,
		LabelColor:    White,
	}
}

// Palette returns n saturated colours with hues evenly spread over the circle:
// colour i has hue i*360/n.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		r, g, b := colorful.Hsv(float64(i)*360/float64(n), 1, 1).RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// FalseColor paints every labeled pixel with the palette colour of its
// particle: the i-th particle gets Palette(len(particles))[i]. Background is
// black; values that belong to no particle are white.
func FalseColor(labels *raster.Raster, particles []particle.Particle) *image.RGBA {
	return falseColor(labels, particles, 0)
}

func falseColor(labels *raster.Raster, particles []particle.Particle, workers int) *image.RGBA {
	lut := labelColors(particles)
	dst := image.NewRGBA(image.Rect(0, 0, labels.Width, labels.Height))
	raster.ForRows(labels.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < labels.Width; x++ {
				v := labels.Pix[y*labels.Width+x]
				col := White
				switch i := v - particle.FirstLabel; {
				case v == raster.Background:
					col = Black
				case i >= 0 && i < len(lut) && lut[i].A != 0:
					col = lut[i]
				}
				dst.SetRGBA(x, y, col)
			}
		}
	})
	return dst
}

// labelColors maps label-FirstLabel to the colour of the particle carrying
// that label. Unused entries stay transparent.
func labelColors(particles []particle.Particle) []color.RGBA {
	maxLabel := particle.FirstLabel - 1
	for _, p := range particles {
		maxLabel = max(maxLabel, p.Label)
	}
	pal := Palette(len(particles))
	lut := make([]color.RGBA, maxLabel-particle.FirstLabel+1)
	for i, p := range particles {
		if p.Label >= particle.FirstLabel {
			lut[p.Label-particle.FirstLabel] = pal[i]
		}
	}
	return lut
}

// Mask renders a binary or labeled raster as black foreground on white.
func Mask(labels *raster.Raster) *image.RGBA {
	return mask(labels, 0)
}

func mask(labels *raster.Raster, workers int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, labels.Width, labels.Height))
	raster.ForRows(labels.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < labels.Width; x++ {
				col := Black
				if labels.Pix[y*labels.Width+x] == raster.Background {
					col = White
				}
				dst.SetRGBA(x, y, col)
			}
		}
	})
	return dst
}

// Overlay draws the selected annotations of every particle onto dst.
// Particles are only read.
func Overlay(dst *image.RGBA, particles []particle.Particle, opts OverlayOptions) {
	for _, p := range particles {
		if opts.BoundingBox {
			DrawBox(dst, p.BoundingBox, opts.BoxColor)
		}
		if opts.ConvexHull {
			DrawPolygon(dst, p.ConvexHull, opts.HullColor)
		}
		if opts.Centroid {
			DrawCross(dst, p.Centroid, 1, opts.CentroidColor)
		}
		if opts.Labels {
			DrawText(dst, image.Pt(p.BoundingBox.Min.X+2, p.BoundingBox.Min.Y+2),
				strconv.Itoa(p.Label), opts.LabelColor)
		}
	}
}

// Render produces the annotated visualization of a labeled raster.
func Render(labels *raster.Raster, particles []particle.Particle, opts OverlayOptions) *image.RGBA {
	var dst *image.RGBA
	if opts.FalseColor {
		dst = falseColor(labels, particles, opts.Workers)
	} else {
		dst = mask(labels, opts.Workers)
	}
	Overlay(dst, particles, opts)
	return dst
}

// ParseColor parses "#rrggbb", "rrggbb" or "#rgb" into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// FormatColor is the inverse of ParseColor.
func FormatColor(c color.RGBA) string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}
