package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/particles/internal/particle"
)

// DrawLine draws an integer Bresenham line from a to b, both ends included.
// Pixels outside dst are skipped.
func DrawLine(dst *image.RGBA, a, b image.Point, col color.RGBA) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		setPixel(dst, x0, y0, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawBox outlines an inclusive bounding box.
func DrawBox(dst *image.RGBA, b particle.Box, col color.RGBA) {
	tl, br := b.Min, b.Max
	tr := image.Pt(br.X, tl.Y)
	bl := image.Pt(tl.X, br.Y)
	DrawLine(dst, tl, tr, col)
	DrawLine(dst, bl, br, col)
	DrawLine(dst, tl, bl, col)
	DrawLine(dst, tr, br, col)
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []particle.Point, col color.RGBA) {
	switch len(pts) {
	case 0:
		return
	case 1:
		p := roundPoint(pts[0])
		setPixel(dst, p.X, p.Y, col)
		return
	}
	for i := range pts {
		DrawLine(dst, roundPoint(pts[i]), roundPoint(pts[(i+1)%len(pts)]), col)
	}
}

// DrawCross marks c with a plus sign reaching radius pixels in each direction.
func DrawCross(dst *image.RGBA, c particle.Point, radius int, col color.RGBA) {
	p := roundPoint(c)
	for d := -radius; d <= radius; d++ {
		setPixel(dst, p.X+d, p.Y, col)
		setPixel(dst, p.X, p.Y+d, col)
	}
}

// DrawText writes s with the 7x13 bitmap font, top-left corner at p.
func DrawText(dst *image.RGBA, p image.Point, s string, col color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(p.X, p.Y+face.Ascent),
	}
	d.DrawString(s)
}

func setPixel(dst *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(dst.Rect) {
		dst.SetRGBA(x, y, col)
	}
}

func roundPoint(p particle.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
