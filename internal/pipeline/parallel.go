package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/particles/internal/utils"
)

// ParallelConfig holds configuration for multi-image processing.
type ParallelConfig struct {
	MaxWorkers       int                        // images analyzed concurrently (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback           // optional progress reporting
	ErrorHandler     func(index int, err error) // optional per-image error handler
}

// DefaultParallelConfig returns defaults for multi-image processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxWorkers: runtime.NumCPU(),
	}
}

// analyzeJob produces the result of the job with the given index.
type analyzeJob func(index int) (*Result, error)

type jobResult struct {
	index  int
	result *Result
	err    error
}

// AnalyzeImages analyzes images one after another.
func (p *Pipeline) AnalyzeImages(images []image.Image) ([]*Result, error) {
	cfg := p.cfg.Parallel
	cfg.MaxWorkers = 1
	return p.AnalyzeImagesParallel(context.Background(), images, cfg)
}

// AnalyzeImagesParallel analyzes images on a pool of workers and returns the
// results in input order. A failed image leaves a nil entry; the first error
// is returned wrapped with its index.
//
// Cancelling ctx stops handing out further images. Images already being
// analyzed run to completion, their results are discarded and ctx.Err() is
// returned.
func (p *Pipeline) AnalyzeImagesParallel(ctx context.Context, images []image.Image, config ParallelConfig) ([]*Result, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil {
		return nil, errors.New("pipeline not initialized")
	}
	return p.runJobs(ctx, len(images), config, func(i int) (*Result, error) {
		return p.Analyze(images[i])
	})
}

// AnalyzeFilesParallel loads and analyzes image files on a pool of workers.
// Each result carries its path as Source. Ordering, error and cancellation
// behaviour match AnalyzeImagesParallel.
func (p *Pipeline) AnalyzeFilesParallel(ctx context.Context, paths []string, config ParallelConfig) ([]*Result, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	if p == nil {
		return nil, errors.New("pipeline not initialized")
	}
	return p.runJobs(ctx, len(paths), config, func(i int) (*Result, error) {
		return p.AnalyzeFile(paths[i])
	})
}

// AnalyzeFile loads one image file and analyzes it.
func (p *Pipeline) AnalyzeFile(path string) (*Result, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	res, err := p.Analyze(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Source = path
	return res, nil
}

func (p *Pipeline) runJobs(ctx context.Context, n int, config ParallelConfig, job analyzeJob) ([]*Result, error) {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, n)

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(n)
		defer config.ProgressCallback.OnComplete()
	}

	// Unbuffered so that cancellation stops dispatch at the next image.
	jobs := make(chan int)
	results := make(chan jobResult, n)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := job(i)
				results <- jobResult{index: i, result: res, err: err}
			}
		}()
	}

	// Dispatch stops at cancellation; workers drain what they already took.
	go func() {
		defer close(jobs)
		for i := range n {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Result, n)
	errs := make([]error, n)
	done := 0
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
		done++
		if config.ProgressCallback != nil {
			if r.err != nil {
				config.ProgressCallback.OnError(r.index, r.err)
			}
			config.ProgressCallback.OnProgress(done, n)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		ordered[i] = nil
		if firstError == nil {
			firstError = fmt.Errorf("image %d: %w", i, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, err)
		}
	}
	return ordered, firstError
}

// ParallelStats holds statistics about multi-image processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	TotalParticles   int           `json:"total_particles"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats calculates performance statistics for a run.
func CalculateParallelStats(results []*Result, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ProcessedImages++
		stats.TotalParticles += len(r.Particles)
	}
	if stats.ProcessedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
	}
	return stats
}
