package particle

import "math"

// Describe derives the descriptors of one region from its raw statistics.
// It never fails: degenerate regions take the fallback values documented on
// the individual helpers.
func Describe(s *Stats) Particle {
	p := Particle{
		Label:       s.Label,
		Area:        s.Area,
		BoundingBox: Box{Min: s.Min, Max: s.Max},
		Perimeter:   s.Perimeter,
	}
	if s.Area == 0 {
		return p
	}

	a := float64(s.Area)
	mx, my := float64(s.SumDX)/a, float64(s.SumDY)/a
	p.Centroid = Point{X: float64(s.Origin.X) + mx, Y: float64(s.Origin.Y) + my}

	sxx := float64(s.SumDXX)/a - mx*mx
	syy := float64(s.SumDYY)/a - my*my
	sxy := float64(s.SumDXY)/a - mx*my
	p.Eccentricity = Eccentricity(s.Area, sxx, syy, sxy)
	p.Circularity = Circularity(s.Area, s.Perimeter)

	p.ConvexHull = ConvexHull(s.extremePoints())
	p.ConvexHullArea = HullArea(p.ConvexHull)
	p.Density = a / p.ConvexHullArea
	p.Diameter = Diameter(p.ConvexHull)
	return p
}

// Eccentricity returns sqrt(1 - lmin/lmax) for the eigenvalues of the
// covariance matrix [[sxx sxy] [sxy syy]]. A single pixel and a zero
// covariance both give 1.
func Eccentricity(area int, sxx, syy, sxy float64) float64 {
	if area <= 1 {
		return 1
	}
	tr := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Max(tr*tr-4*det, 0)
	root := math.Sqrt(disc)
	lmax := (tr + root) / 2
	lmin := (tr - root) / 2
	if lmax <= 0 {
		return 1
	}
	return math.Sqrt(math.Max(1-math.Max(lmin, 0)/lmax, 0))
}

// Circularity returns 4*pi*area/perimeter^2, with 1 for a perimeter of 1
// and 0 for a region without boundary pixels.
func Circularity(area, perimeter int) float64 {
	switch {
	case perimeter == 1:
		return 1
	case perimeter <= 0:
		return 0
	}
	return 4 * math.Pi * float64(area) / float64(perimeter*perimeter)
}
