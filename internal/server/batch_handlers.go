package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"runtime"
	"time"

	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// maxBatchItems limits the number of files in one batch request.
const maxBatchItems = 20

// analyzeBatchHandler analyzes several uploaded images on the worker pool.
// Files that fail to decode or analyze are reported per item; the request
// itself only fails on malformed input or timeout.
func (s *Server) analyzeBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		s.writeFormError(w, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		s.writeBatchError(w, "No image files provided", http.StatusBadRequest)
		return
	}
	if len(files) > maxBatchItems {
		s.writeBatchError(w, fmt.Sprintf("Batch size too large (maximum %d items)", maxBatchItems), http.StatusBadRequest)
		return
	}

	rc, err := parseRequestConfig(r.FormValue)
	if err != nil {
		s.writeBatchError(w, err.Error(), http.StatusBadRequest)
		return
	}
	pl, err := s.pipelineFor(rc)
	if err != nil {
		s.writeBatchError(w, fmt.Sprintf("Invalid analysis options: %v", err), http.StatusBadRequest)
		return
	}

	items := make([]BatchItem, len(files))
	images := make([]image.Image, 0, len(files))
	itemOf := make([]int, 0, len(files)) // image index -> item index
	for i, fh := range files {
		items[i].Filename = fh.Filename
		uploadSizeBytes.Observe(float64(fh.Size))

		f, err := fh.Open()
		if err != nil {
			items[i].Error = "Failed to read image data"
			continue
		}
		img, err := decodeUpload(f)
		_ = f.Close()
		if err != nil {
			items[i].Error = err.Error()
			analysisRequestsTotal.WithLabelValues("batch", "error").Inc()
			continue
		}
		images = append(images, img)
		itemOf = append(itemOf, i)
	}

	results := make([]*pipeline.Result, len(items))
	workers := 0
	start := time.Now()
	if len(images) > 0 {
		ctx := r.Context()
		if s.timeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
			defer cancel()
		}

		cfg := pl.Config().Parallel
		cfg.ProgressCallback = nil
		cfg.ErrorHandler = func(index int, err error) {
			items[itemOf[index]].Error = fmt.Sprintf("Analysis failed: %v", err)
		}
		if cfg.MaxWorkers <= 0 {
			cfg.MaxWorkers = runtime.NumCPU()
		}
		workers = min(cfg.MaxWorkers, len(images))

		analyzed, err := pl.AnalyzeImagesParallel(ctx, images, cfg)
		if errors.Is(err, context.DeadlineExceeded) {
			s.writeBatchError(w, "Batch processing timed out", http.StatusGatewayTimeout)
			return
		}
		if errors.Is(err, context.Canceled) {
			s.writeBatchError(w, "Batch processing cancelled", http.StatusServiceUnavailable)
			return
		}
		for j, res := range analyzed {
			if res == nil {
				continue
			}
			results[itemOf[j]] = res
		}
	}
	duration := time.Since(start)

	success := true
	for i := range items {
		res := results[i]
		if res == nil {
			success = false
			continue
		}
		res.Source = items[i].Filename
		summary := res.Summarize()
		items[i].Result = res
		items[i].Summary = &summary
		observeAnalysis("batch", res.Duration.Seconds(), len(res.Particles), nil)
	}
	analysisDuration.WithLabelValues("batch_request").Observe(duration.Seconds())

	stats := pipeline.CalculateParallelStats(results, duration, workers)
	writeJSON(w, http.StatusOK, BatchResponse{
		Success: success,
		Items:   items,
		Stats:   &stats,
	})
}

func (s *Server) writeBatchError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, BatchResponse{Success: false, Error: message})
}
