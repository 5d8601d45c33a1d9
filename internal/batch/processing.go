package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/utils"
)

// processImagesParallel analyzes files on the pipeline's worker pool and
// sorts the outcome into results and failures.
func processImagesParallel(ctx context.Context, pl *pipeline.Pipeline, files []string,
	config *Config) (*Result, error) {
	parallel := pl.Config().Parallel
	if parallel.MaxWorkers <= 0 {
		parallel.MaxWorkers = runtime.NumCPU()
	}
	result := &Result{
		ImagePaths:  files,
		WorkerCount: min(parallel.MaxWorkers, len(files)),
	}
	parallel.ErrorHandler = func(index int, err error) {
		result.Failures = append(result.Failures, Failure{Index: index, Path: files[index], Err: err})
		slog.Warn("image analysis failed", "file", files[index], "error", err)
	}

	results, err := pl.AnalyzeFilesParallel(ctx, files, parallel)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && !config.ContinueOnError {
		return nil, err
	}
	result.Results = results
	return result, nil
}

// OverlayPath maps an input image to its overlay file in dir.
func OverlayPath(dir, source string) string {
	base := filepath.Base(source)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+overlaySuffix)
}

// saveOverlays writes the rendered image of every result into dir and
// returns the written paths.
func saveOverlays(results []*pipeline.Result, dir string) ([]string, error) {
	var written []string
	for _, res := range results {
		if res == nil || res.Image == nil {
			continue
		}
		path := OverlayPath(dir, res.Source)
		if err := utils.SaveImage(path, res.Image); err != nil {
			return written, fmt.Errorf("%s: %w", res.Source, err)
		}
		written = append(written, path)
	}
	return written, nil
}
