// Package pipeline wires the analysis stages together: threshold,
// binarization, morphological cleanup, labeling, description and rendering.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/particles/internal/common"
	"github.com/MeKo-Tech/particles/internal/morphology"
	"github.com/MeKo-Tech/particles/internal/particle"
	"github.com/MeKo-Tech/particles/internal/raster"
	"github.com/MeKo-Tech/particles/internal/render"
	"github.com/MeKo-Tech/particles/internal/threshold"
)

// AutoThreshold selects Otsu's method instead of a fixed threshold.
const AutoThreshold = -1

// Config holds configuration for the analysis pipeline and its stages.
type Config struct {
	Threshold       int  // fixed threshold 0..255, or AutoThreshold
	ForegroundIsLow bool // foreground is v <= t instead of v > t
	Invert          bool // invert the input before grayscale conversion
	Morphology      morphology.MorphConfig
	MinArea         int  // particles with a smaller area are dropped
	Workers         int  // row workers per stage (0 = raster.DefaultWorkers())
	KeepMask        bool // keep a copy of the cleaned mask in the result
	Render          bool // produce the annotated image
	Overlay         render.OverlayOptions

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns the default particle analysis: Otsu threshold,
// bright foreground, one closing with diamond5, rendering enabled.
func DefaultConfig() Config {
	return Config{
		Threshold:  AutoThreshold,
		Morphology: morphology.DefaultMorphConfig(),
		MinArea:    1,
		Render:     true,
		Overlay:    render.DefaultOverlayOptions(),
		Parallel:   DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFrom starts a builder from an existing configuration.
func NewBuilderFrom(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithThreshold fixes the binarization threshold. Negative values select Otsu.
func (b *Builder) WithThreshold(t int) *Builder {
	if t < 0 {
		t = AutoThreshold
	}
	b.cfg.Threshold = t
	return b
}

// WithForegroundIsLow selects dark particles on a bright background.
func (b *Builder) WithForegroundIsLow(low bool) *Builder {
	b.cfg.ForegroundIsLow = low
	return b
}

// WithInvert inverts the input image before analysis.
func (b *Builder) WithInvert(invert bool) *Builder {
	b.cfg.Invert = invert
	return b
}

// WithMorphology sets the cleanup operation, element preset and iteration count.
func (b *Builder) WithMorphology(op morphology.MorphologicalOp, element string, iterations int) *Builder {
	b.cfg.Morphology.Operation = op
	if element != "" {
		b.cfg.Morphology.Element = element
	}
	if iterations >= 0 {
		b.cfg.Morphology.Iterations = iterations
	}
	return b
}

// WithMinArea drops particles smaller than area pixels.
func (b *Builder) WithMinArea(area int) *Builder {
	if area >= 0 {
		b.cfg.MinArea = area
	}
	return b
}

// WithWorkers sets the number of row workers used inside each stage.
func (b *Builder) WithWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Workers = n
	}
	return b
}

// WithKeepMask keeps a copy of the cleaned binary mask in every result.
func (b *Builder) WithKeepMask(keep bool) *Builder {
	b.cfg.KeepMask = keep
	return b
}

// WithRender enables or disables the annotated output image.
func (b *Builder) WithRender(enabled bool) *Builder {
	b.cfg.Render = enabled
	return b
}

// WithOverlay sets the rendering options.
func (b *Builder) WithOverlay(opts render.OverlayOptions) *Builder {
	b.cfg.Overlay = opts
	return b
}

// WithParallelWorkers sets the number of images analyzed concurrently.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for multi-image processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration is usable.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Build validates the configuration and returns a ready pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.cfg)
}

// Validate checks value ranges and that the element preset exists.
func (c Config) Validate() error {
	if c.Threshold < AutoThreshold || c.Threshold > 255 {
		return fmt.Errorf("threshold %d out of range (-1 for Otsu, or 0..255)", c.Threshold)
	}
	if c.MinArea < 0 {
		return errors.New("min area must be >= 0")
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if c.Morphology.Iterations < 0 {
		return errors.New("morphology iterations must be >= 0")
	}
	if c.Morphology.Operation != morphology.MorphNone {
		if _, err := morphology.Preset(c.Morphology.Element); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline runs the analysis stages with a fixed configuration. It holds no
// per-image state and may be shared by goroutines.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline after validating cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{cfg: cfg}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Analyze converts a decoded image to grayscale and runs the full analysis.
func (p *Pipeline) Analyze(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	var stages common.Stages
	var gray *raster.Raster
	stages.Time("grayscale", func() {
		if p.cfg.Invert {
			img = raster.InvertImage(img)
		}
		gray = raster.FromImage(img, p.cfg.Workers)
	})
	return p.run(gray, &stages)
}

// AnalyzeRaster runs the analysis on a raster of any kind. RGB rasters are
// converted with the integer grayscale weights. The input is not modified.
func (p *Pipeline) AnalyzeRaster(r *raster.Raster) (*Result, error) {
	if r == nil {
		return nil, errors.New("nil raster")
	}
	var stages common.Stages
	var gray *raster.Raster
	stages.Time("grayscale", func() {
		gray = raster.Grayscale(r, p.cfg.Workers)
		if p.cfg.Invert {
			gray = raster.Invert(gray, p.cfg.Workers)
		}
	})
	return p.run(gray, &stages)
}

func (p *Pipeline) run(gray *raster.Raster, stages *common.Stages) (*Result, error) {
	res := &Result{
		Width:  gray.Width,
		Height: gray.Height,
	}

	var err error
	stages.Time("threshold", func() {
		if p.cfg.Threshold == AutoThreshold {
			res.Threshold, err = threshold.OtsuRaster(gray, p.cfg.Workers)
			res.AutoThreshold = true
			return
		}
		res.Threshold = p.cfg.Threshold
	})
	if err != nil {
		return nil, err
	}

	var mask *raster.Raster
	stages.Time("binarize", func() {
		mask = threshold.Binarize(gray, res.Threshold, p.cfg.ForegroundIsLow, false, p.cfg.Workers)
	})

	stages.Time("morphology", func() {
		mc := p.cfg.Morphology
		mc.Workers = p.cfg.Workers
		mask, err = morphology.Apply(mask, mc)
	})
	if err != nil {
		return nil, fmt.Errorf("morphology: %w", err)
	}
	if p.cfg.KeepMask {
		res.Mask = mask.Clone()
	}

	var particles []particle.Particle
	stages.Time("label", func() {
		particles, err = particle.Label(mask)
	})
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	res.Labels = mask
	res.Particles, res.Filtered = filterByArea(mask, particles, p.cfg.MinArea)

	if p.cfg.Render {
		stages.Time("render", func() {
			opts := p.cfg.Overlay
			opts.Workers = p.cfg.Workers
			res.Image = render.Render(res.Labels, res.Particles, opts)
		})
	}

	res.Timings = stages.List()
	res.Duration = stages.Total()
	slog.Debug("analysis finished",
		"width", res.Width, "height", res.Height,
		"threshold", res.Threshold, "particles", len(res.Particles),
		"filtered", res.Filtered, "timings", stages.String())
	return res, nil
}

// filterByArea drops particles below minArea and clears their pixels so the
// rendered image shows only the kept ones. Labels are not renumbered.
func filterByArea(labels *raster.Raster, particles []particle.Particle, minArea int) ([]particle.Particle, int) {
	if minArea <= 1 {
		return particles, 0
	}
	kept := particles[:0:0]
	dropped := make(map[int]bool)
	for _, p := range particles {
		if p.Area >= minArea {
			kept = append(kept, p)
		} else {
			dropped[p.Label] = true
		}
	}
	if len(dropped) == 0 {
		return particles, 0
	}
	for i, v := range labels.Pix {
		if dropped[v] {
			labels.Pix[i] = raster.Background
		}
	}
	return kept, len(dropped)
}
