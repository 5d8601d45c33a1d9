// Package batch analyzes many image files with one pipeline: file
// discovery, parallel analysis, overlay output and report formatting.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to analyze.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers the images named by args (files or directories)
// and analyzes them. Unless ContinueOnError is set the first failing image
// aborts the batch; otherwise failures are collected in Result.Failures.
func ProcessBatch(ctx context.Context, args []string, config *Config) (*Result, error) {
	if config == nil {
		def := DefaultConfig()
		config = &def
	}

	files, err := discoverImageFiles(args, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	slog.Debug("batch discovered images", "count", len(files), "recursive", config.Recursive)

	var progress pipeline.ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progress = pipeline.NewConsoleProgressCallback(config.stderr(), "Analyzing: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	pl, err := buildPipeline(config, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	start := time.Now()
	result, err := processImagesParallel(ctx, pl, files, config)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	result.Duration = time.Since(start)

	if config.OverlayDir != "" {
		overlays, err := saveOverlays(result.Results, config.OverlayDir)
		result.Overlays = overlays
		if err != nil {
			return result, fmt.Errorf("failed to save overlays: %w", err)
		}
	}

	slog.Info("batch finished",
		"images", len(files),
		"failed", len(result.Failures),
		"workers", result.WorkerCount,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}
