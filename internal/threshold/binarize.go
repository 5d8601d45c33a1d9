package threshold

import "github.com/MeKo-Tech/particles/internal/raster"

// Binarize maps every pixel to raster.Foreground or raster.Background.
// With foregroundIsLow a pixel is foreground when v <= t, otherwise when
// v > t. asBinary selects a 1-bit result; without it the result keeps depth 8
// but holds the same two values. The input is never modified. Rows are split
// over up to workers goroutines.
func Binarize(r *raster.Raster, t int, foregroundIsLow, asBinary bool, workers int) *raster.Raster {
	out := &raster.Raster{
		Width:   r.Width,
		Height:  r.Height,
		Depth:   8,
		Palette: raster.BinaryPalette(),
		Pix:     make([]int, len(r.Pix)),
	}
	if asBinary {
		out.Depth = 1
	}
	raster.ForRows(r.Height, workers, func(y0, y1 int) {
		for i := y0 * r.Width; i < y1*r.Width; i++ {
			v := r.Pix[i]
			if (foregroundIsLow && v <= t) || (!foregroundIsLow && v > t) {
				out.Pix[i] = raster.Foreground
			} else {
				out.Pix[i] = raster.Background
			}
		}
	})
	return out
}
