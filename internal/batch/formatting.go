package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// formatBatchResults renders results in one of the pipeline output formats.
func formatBatchResults(results []*pipeline.Result, format string, precision int) (string, error) {
	var output strings.Builder
	if err := pipeline.WriteResults(&output, format, results, precision); err != nil {
		return "", err
	}
	return output.String(), nil
}

// formatStats summarizes a batch run.
func formatStats(r *Result) string {
	stats := pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
	var b strings.Builder
	b.WriteString("\nProcessing Statistics:\n")
	fmt.Fprintf(&b, "  Total images: %d\n", len(r.ImagePaths))
	fmt.Fprintf(&b, "  Processed: %d\n", stats.ProcessedImages)
	fmt.Fprintf(&b, "  Failed: %d\n", stats.FailedImages)
	fmt.Fprintf(&b, "  Particles: %d\n", stats.TotalParticles)
	fmt.Fprintf(&b, "  Workers: %d\n", stats.WorkerCount)
	fmt.Fprintf(&b, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  Error: %s\n", f.Error())
	}
	return b.String()
}
