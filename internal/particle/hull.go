package particle

import (
	"math"
	"slices"
)

// cross returns the z component of (a-o) x (b-o). Positive means o, a, b
// turn counter-clockwise.
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func dist2(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// ConvexHull computes the convex hull of pts with a Graham scan and returns
// its vertices in counter-clockwise order starting at the lowest point
// (minimum Y, then minimum X). Collinear and duplicate points are dropped.
// pts is not modified; one or zero points are returned as a copy.
func ConvexHull(pts []Point) []Point {
	if len(pts) <= 1 {
		return slices.Clone(pts)
	}

	sorted := slices.Clone(pts)
	pivot := 0
	for i, p := range sorted {
		if p.Y < sorted[pivot].Y || (p.Y == sorted[pivot].Y && p.X < sorted[pivot].X) {
			pivot = i
		}
	}
	sorted[0], sorted[pivot] = sorted[pivot], sorted[0]
	p0 := sorted[0]

	// Every point lies in the half-plane above the pivot, so the sign of the
	// cross product orders them by polar angle without trigonometry.
	rest := sorted[1:]
	slices.SortStableFunc(rest, func(a, b Point) int {
		c := cross(p0, a, b)
		switch {
		case c > 0:
			return -1
		case c < 0:
			return 1
		}
		da, db := dist2(p0, a), dist2(p0, b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	stack := make([]Point, 0, len(sorted))
	stack = append(stack, p0, rest[0])
	for _, p := range rest[1:] {
		for len(stack) >= 2 && cross(stack[len(stack)-2], stack[len(stack)-1], p) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, p)
	}
	// Points identical to the pivot collapse onto it.
	if len(stack) == 2 && stack[1] == p0 {
		stack = stack[:1]
	}
	return stack
}

// HullArea returns the shoelace area of a polygon. Polygons with fewer than
// three vertices have area 1 so that densities stay finite.
func HullArea(hull []Point) float64 {
	if len(hull) < 3 {
		return 1
	}
	sum := 0.0
	for i, p := range hull {
		q := hull[(i+1)%len(hull)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// Diameter returns the largest distance between two vertices of a convex
// polygon given in counter-clockwise order, found with rotating calipers.
func Diameter(hull []Point) float64 {
	n := len(hull)
	switch n {
	case 0, 1:
		return 0
	case 2:
		return math.Sqrt(dist2(hull[0], hull[1]))
	}

	best := 0.0
	k := 1
	for i := range n {
		j := (i + 1) % n
		for math.Abs(cross(hull[i], hull[j], hull[(k+1)%n])) > math.Abs(cross(hull[i], hull[j], hull[k])) {
			k = (k + 1) % n
		}
		// k+1 covers an edge parallel to (i, j).
		k1 := (k + 1) % n
		best = max(best, dist2(hull[i], hull[k]), dist2(hull[j], hull[k]),
			dist2(hull[i], hull[k1]), dist2(hull[j], hull[k1]))
	}
	return math.Sqrt(best)
}
