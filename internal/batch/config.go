package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Analysis settings shared by every image
	Pipeline pipeline.Config

	// Output settings
	OverlayDir string
	Format     string
	OutputFile string
	Precision  int

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration

	// Progress and messages go here; os.Stderr when nil.
	Stderr io.Writer
}

// DefaultConfig returns a batch configuration on the default pipeline.
func DefaultConfig() Config {
	return Config{
		Pipeline:         pipeline.DefaultConfig(),
		Format:           pipeline.FormatTable,
		Precision:        4,
		Workers:          4,
		ProgressInterval: 100 * time.Millisecond,
	}
}

func (c *Config) stderr() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}

// Failure records an image that could not be analyzed.
type Failure struct {
	Index int
	Path  string
	Err   error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Path, f.Err) }

// Result holds the result of batch processing. Results is parallel to
// ImagePaths; entries of failed images are nil.
type Result struct {
	Results     []*pipeline.Result
	ImagePaths  []string
	Failures    []Failure
	Overlays    []string
	Duration    time.Duration
	WorkerCount int
}

// Succeeded returns the results of the images that were analyzed.
func (r *Result) Succeeded() []*pipeline.Result {
	out := make([]*pipeline.Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string, precision int) (string, error) {
	return formatBatchResults(r.Succeeded(), format, precision)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, precision int, quiet bool) error {
	output, err := r.FormatResults(format, precision)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = io.WriteString(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	_, _ = io.WriteString(w, formatStats(r))
}
