package raster

import "fmt"

// Classes returns the histogram class count used for a raster: min(256, 2^depth).
func (r *Raster) Classes() int {
	if r.Depth >= 8 {
		return 256
	}
	if r.Depth <= 0 {
		return 1
	}
	return 1 << r.Depth
}

// Histogram counts pixel values of a gray or binary raster into nClasses bins.
// Values are mapped with v*nClasses/2^min(depth,8). Rows are processed in
// parallel on up to workers goroutines, each with a private histogram, and
// summed after all finish.
func Histogram(r *Raster, nClasses, workers int) ([]int, error) {
	maxClasses := r.Classes()
	if nClasses <= 0 || nClasses > maxClasses {
		return nil, fmt.Errorf("invalid number of classes %d (must be in 1..%d)", nClasses, maxClasses)
	}
	if r.Kind() == KindRGB {
		return nil, fmt.Errorf("histogram of %s raster is not supported", r.Kind())
	}

	hist := make([]int, nClasses)
	var bad error
	ReduceRows(r.Height, workers,
		func() *histAcc { return &histAcc{bins: make([]int, nClasses)} },
		func(acc *histAcc, y0, y1 int) {
			for _, v := range r.Pix[y0*r.Width : y1*r.Width] {
				if v < 0 || v >= maxClasses {
					acc.outOfRange = v
					acc.bad = true
					continue
				}
				acc.bins[v*nClasses/maxClasses]++
			}
		},
		func(acc *histAcc) {
			if acc.bad && bad == nil {
				bad = fmt.Errorf("pixel value %d outside 0..%d", acc.outOfRange, maxClasses-1)
			}
			for i, c := range acc.bins {
				hist[i] += c
			}
		},
	)
	if bad != nil {
		return nil, bad
	}
	return hist, nil
}

type histAcc struct {
	bins       []int
	bad        bool
	outOfRange int
}
