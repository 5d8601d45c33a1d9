package batch

import (
	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// buildPipeline creates the analysis pipeline from the batch configuration.
// Overlays are only rendered when they will be written.
func buildPipeline(config *Config, progressCallback pipeline.ProgressCallback) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilderFrom(config.Pipeline).
		WithParallelWorkers(config.Workers).
		WithProgressCallback(progressCallback).
		WithRender(config.OverlayDir != "").
		Build()
}
