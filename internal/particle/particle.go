// Package particle labels 4-connected foreground regions of a binary raster
// and derives shape descriptors for each of them.
package particle

import (
	"errors"
	"image"
)

// FirstLabel is the ID given to the first region; later regions count up from it.
// Labels 0 and 1 stay reserved for background and unlabeled foreground.
const FirstLabel = 2

// ErrNotBinary is returned when a raster handed to Label holds values other
// than background and foreground.
var ErrNotBinary = errors.New("raster is not binary")

// Point is a position in continuous image coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Box is an inclusive pixel bounding box.
type Box struct {
	Min image.Point `json:"min" yaml:"min"`
	Max image.Point `json:"max" yaml:"max"`
}

// Width returns the number of pixel columns covered by the box.
func (b Box) Width() int { return b.Max.X - b.Min.X + 1 }

// Height returns the number of pixel rows covered by the box.
func (b Box) Height() int { return b.Max.Y - b.Min.Y + 1 }

// Particle holds the descriptors of one labeled region.
type Particle struct {
	Label        int     `json:"label" yaml:"label"`
	Area         int     `json:"area" yaml:"area"`
	BoundingBox  Box     `json:"bounding_box" yaml:"bounding_box"`
	Centroid     Point   `json:"centroid" yaml:"centroid"`
	Eccentricity float64 `json:"eccentricity" yaml:"eccentricity"`
	// Perimeter counts boundary pixels, not arc length. Circularity derived
	// from it is only meaningful when comparing particles with each other.
	Perimeter      int     `json:"perimeter" yaml:"perimeter"`
	Circularity    float64 `json:"circularity" yaml:"circularity"`
	ConvexHull     []Point `json:"convex_hull" yaml:"convex_hull"`
	ConvexHullArea float64 `json:"convex_hull_area" yaml:"convex_hull_area"`
	Density        float64 `json:"density" yaml:"density"`
	Diameter       float64 `json:"diameter" yaml:"diameter"`
}

// Stats are the raw per-region accumulators filled during flood fill.
// Moment sums are taken relative to Origin (the seed pixel) to keep them small.
type Stats struct {
	Label     int
	Area      int
	Origin    image.Point
	SumDX     int64
	SumDY     int64
	SumDXX    int64
	SumDYY    int64
	SumDXY    int64
	Min       image.Point
	Max       image.Point
	Perimeter int
	// Rows holds the horizontal extent of the region per row, indexed by
	// y-Origin.Y. The seed is the first pixel in row-major order, so no
	// region pixel lies above it.
	Rows []Span
}

// Span is the inclusive x range a region covers on one row.
type Span struct {
	MinX, MaxX int
}

func newStats(label int, seed image.Point) *Stats {
	return &Stats{Label: label, Origin: seed, Min: seed, Max: seed}
}

func (s *Stats) add(x, y int) {
	dx, dy := int64(x-s.Origin.X), int64(y-s.Origin.Y)
	s.Area++
	s.SumDX += dx
	s.SumDY += dy
	s.SumDXX += dx * dx
	s.SumDYY += dy * dy
	s.SumDXY += dx * dy
	s.Min.X = min(s.Min.X, x)
	s.Min.Y = min(s.Min.Y, y)
	s.Max.X = max(s.Max.X, x)
	s.Max.Y = max(s.Max.Y, y)

	row := y - s.Origin.Y
	for len(s.Rows) <= row {
		s.Rows = append(s.Rows, Span{MinX: x, MaxX: x})
	}
	sp := &s.Rows[row]
	sp.MinX = min(sp.MinX, x)
	sp.MaxX = max(sp.MaxX, x)
}

// extremePoints returns the leftmost and rightmost pixel of every row. Their
// convex hull equals the hull of the whole region.
func (s *Stats) extremePoints() []Point {
	pts := make([]Point, 0, 2*len(s.Rows))
	for i, sp := range s.Rows {
		y := float64(s.Origin.Y + i)
		pts = append(pts, Point{X: float64(sp.MinX), Y: y})
		if sp.MaxX != sp.MinX {
			pts = append(pts, Point{X: float64(sp.MaxX), Y: y})
		}
	}
	return pts
}

func (s *Stats) addBoundary() {
	s.Perimeter++
}
