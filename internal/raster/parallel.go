package raster

import (
	"runtime"
	"sync"
)

// minRowsPerWorker keeps tiny rasters on a single goroutine.
const minRowsPerWorker = 16

// DefaultWorkers is the row-parallel worker count used when a caller passes
// workers <= 0.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ForRows partitions [0, height) into contiguous row ranges and calls fn once per
// range, concurrently. fn must only write state owned by its own rows. ForRows
// returns after every call finished. workers <= 0 uses DefaultWorkers.
func ForRows(height, workers int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if maxW := (height + minRowsPerWorker - 1) / minRowsPerWorker; workers > maxW {
		workers = maxW
	}
	if workers <= 1 {
		fn(0, height)
		return
	}

	chunk := (height + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += chunk {
		y1 := min(y0+chunk, height)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}

// ReduceRows runs a row-parallel accumulation. Each worker gets a private
// accumulator from newAcc, fills it in body, and merge is called sequentially
// with every accumulator once all workers are done.
func ReduceRows[T any](height, workers int, newAcc func() T, body func(acc T, y0, y1 int), merge func(acc T)) {
	var mu sync.Mutex
	var parts []T
	ForRows(height, workers, func(y0, y1 int) {
		acc := newAcc()
		body(acc, y0, y1)
		mu.Lock()
		parts = append(parts, acc)
		mu.Unlock()
	})
	for _, p := range parts {
		merge(p)
	}
}
