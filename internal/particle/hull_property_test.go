package particle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func randomPoints(seed int64, n, span int) []Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: float64(rng.Intn(span)), Y: float64(rng.Intn(span))}
	}
	return pts
}

// TestConvexHull_ContainsAllPoints verifies every input point lies inside or on the hull.
func TestConvexHull_ContainsAllPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull is convex and encloses the input", prop.ForAll(
		func(seed int64, n, span int) bool {
			pts := randomPoints(seed, n, span)
			hull := ConvexHull(pts)
			if len(hull) < 3 {
				return true
			}
			for i := range hull {
				if cross(hull[i], hull[(i+1)%len(hull)], hull[(i+2)%len(hull)]) <= 0 {
					return false
				}
			}
			for _, p := range pts {
				for i := range hull {
					if cross(hull[i], hull[(i+1)%len(hull)], p) < 0 {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// TestDiameter_MatchesBruteForce compares rotating calipers with an all-pairs search.
func TestDiameter_MatchesBruteForce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("calipers find the farthest pair", prop.ForAll(
		func(seed int64, n, span int) bool {
			pts := randomPoints(seed, n, span)
			best := 0.0
			for i := range pts {
				for j := i + 1; j < len(pts); j++ {
					best = math.Max(best, dist2(pts[i], pts[j]))
				}
			}
			return math.Abs(Diameter(ConvexHull(pts))-math.Sqrt(best)) < 1e-9
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
