package particle

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/particles/internal/mempool"
	"github.com/MeKo-Tech/particles/internal/raster"
)

// neighbors4 lists the 4-connected offsets in visiting order: left, right, top, bottom.
var neighbors4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Label finds every 4-connected foreground region of r in row-major seed
// order, overwrites its pixels with labels FirstLabel, FirstLabel+1, ... and
// returns one Particle per region in label order.
//
// Label mutates r in place and must have exclusive access to it. A raster
// holding values other than raster.Background and raster.Foreground is
// rejected with ErrNotBinary before any pixel is touched.
func Label(r *raster.Raster) ([]Particle, error) {
	stats, err := LabelStats(r)
	if err != nil {
		return nil, err
	}
	particles := make([]Particle, len(stats))
	for i, s := range stats {
		particles[i] = Describe(s)
	}
	return particles, nil
}

// LabelStats is Label without the descriptor step.
func LabelStats(r *raster.Raster) ([]*Stats, error) {
	if ok, x, y, v := raster.IsBinary(r); !ok {
		return nil, fmt.Errorf("%w: value %d at (%d,%d)", ErrNotBinary, v, x, y)
	}

	n := r.Width * r.Height
	visited := mempool.GetBool(n)
	defer mempool.PutBool(visited)
	// Each pixel is queued at most once overall, so a single linear buffer
	// serves every region.
	queue := mempool.GetInt(n)
	defer mempool.PutInt(queue)

	var out []*Stats
	label := FirstLabel
	for i := range n {
		if r.Pix[i] != raster.Foreground || visited[i] {
			continue
		}
		out = append(out, flood(r, i, label, visited, queue))
		label++
	}
	return out, nil
}

// flood labels the region containing seed with a breadth-first fill.
// Neighbors already in visited (queued or rejected earlier) are skipped;
// every other non-matching neighbor makes the current pixel a boundary pixel.
func flood(r *raster.Raster, seed, label int, visited []bool, queue []int) *Stats {
	w := r.Width
	st := newStats(label, image.Point{X: seed % w, Y: seed / w})

	head, tail := 0, 0
	queue[tail] = seed
	tail++
	visited[seed] = true

	for head < tail {
		p := queue[head]
		head++
		x, y := p%w, p/w
		r.Pix[p] = label
		st.add(x, y)

		boundary := false
		for _, d := range neighbors4 {
			nx, ny := x+d[0], y+d[1]
			if !r.InBounds(nx, ny) {
				boundary = true
				continue
			}
			q := ny*w + nx
			if visited[q] {
				continue
			}
			visited[q] = true
			if r.Pix[q] == raster.Foreground {
				queue[tail] = q
				tail++
			} else {
				boundary = true
			}
		}
		if boundary {
			st.addBoundary()
		}
	}
	return st
}
