// Package threshold selects a global gray-level threshold and binarizes rasters with it.
package threshold

import (
	"fmt"

	"github.com/MeKo-Tech/particles/internal/raster"
)

// Otsu returns the threshold t that maximizes the between-class variance of
// the histogram when bins 0..t form one class and bins t+1.. the other.
// total is the pixel count; total <= 0 sums the histogram instead. The scan
// is bounded by len(hist) and ties keep the lowest t. A histogram with a
// single populated bin (or no pixels) yields 0.
func Otsu(hist []int, total int) int {
	sum, weighted := 0, 0
	for v, c := range hist {
		sum += c
		weighted += v * c
	}
	if total <= 0 {
		total = sum
	}
	if total == 0 {
		return 0
	}

	best, bestVar := 0, 0.0
	cntFg, sumFg := 0, 0
	tot2 := float64(total) * float64(total)
	for t, c := range hist {
		cntFg += c
		sumFg += t * c
		cntBg := total - cntFg
		if cntFg == 0 || cntBg == 0 {
			continue
		}
		meanFg := float64(sumFg) / float64(cntFg)
		meanBg := float64(weighted-sumFg) / float64(cntBg)
		d := meanFg - meanBg
		variance := float64(cntFg) * float64(cntBg) * d * d / tot2
		if variance > bestVar {
			bestVar = variance
			best = t
		}
	}
	return best
}

// OtsuRaster computes the histogram of r with r.Classes() bins and returns
// its Otsu threshold expressed in pixel values. workers bounds the histogram
// goroutines (<= 0 uses raster.DefaultWorkers).
func OtsuRaster(r *raster.Raster, workers int) (int, error) {
	classes := r.Classes()
	hist, err := raster.Histogram(r, classes, workers)
	if err != nil {
		return 0, fmt.Errorf("otsu: %w", err)
	}
	return Otsu(hist, len(r.Pix)), nil
}
