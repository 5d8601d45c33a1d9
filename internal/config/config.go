package config

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/particles/internal/morphology"
	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/render"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pc := pipeline.DefaultConfig()
	overlay := pc.Overlay
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Analysis: AnalysisConfig{
			ForegroundIsLow: pc.ForegroundIsLow,
			Threshold:       pc.Threshold,
			Invert:          pc.Invert,
			Morphology: MorphologyConfig{
				Operation:  pc.Morphology.Operation.String(),
				Element:    pc.Morphology.Element,
				Iterations: pc.Morphology.Iterations,
			},
			Workers: pc.Workers,
			MinArea: pc.MinArea,
		},
		Render: RenderConfig{
			FalseColor:    overlay.FalseColor,
			BoundingBox:   overlay.BoundingBox,
			ConvexHull:    overlay.ConvexHull,
			Centroid:      overlay.Centroid,
			Labels:        overlay.Labels,
			BoxColor:      render.FormatColor(overlay.BoxColor),
			HullColor:     render.FormatColor(overlay.HullColor),
			CentroidColor: render.FormatColor(overlay.CentroidColor),
			LabelColor:    render.FormatColor(overlay.LabelColor),
		},
		Output: OutputConfig{
			Format:    pipeline.FormatTable,
			Precision: 4,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
		},
		Batch: BatchConfig{
			Workers:         4,
			Include:         []string{},
			Exclude:         []string{},
			ContinueOnError: false,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := pipeline.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	if c.Output.Precision < 0 || c.Output.Precision > 12 {
		return fmt.Errorf("invalid output precision: %d (must be between 0 and 12)", c.Output.Precision)
	}

	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if _, err := c.Render.toOverlayOptions(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	for _, l := range []int{c.Server.RateLimitPerMinute, c.Server.RateLimitPerHour, c.Server.MaxRequestsPerDay, c.Server.MaxDataPerDayMB} {
		if l < 0 {
			return fmt.Errorf("invalid rate limit: %d (must not be negative)", l)
		}
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	for _, pattern := range slices.Concat(c.Batch.Include, c.Batch.Exclude) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid batch pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (a AnalysisConfig) validate() error {
	if a.Threshold < pipeline.AutoThreshold || a.Threshold > 255 {
		return fmt.Errorf("invalid threshold: %d (must be -1 for Otsu or between 0 and 255)", a.Threshold)
	}
	if a.Workers < 0 {
		return fmt.Errorf("invalid analysis workers: %d (must not be negative)", a.Workers)
	}
	if a.MinArea < 0 {
		return fmt.Errorf("invalid min area: %d (must not be negative)", a.MinArea)
	}
	if _, err := a.Morphology.toMorphConfig(); err != nil {
		return fmt.Errorf("invalid morphology: %w", err)
	}
	return nil
}

func (m MorphologyConfig) toMorphConfig() (morphology.MorphConfig, error) {
	op, err := morphology.ParseOp(m.Operation)
	if err != nil {
		return morphology.MorphConfig{}, err
	}
	if m.Iterations < 0 {
		return morphology.MorphConfig{}, fmt.Errorf("iterations %d must not be negative", m.Iterations)
	}
	if op != morphology.MorphNone {
		if _, err := morphology.Preset(m.Element); err != nil {
			return morphology.MorphConfig{}, err
		}
	}
	return morphology.MorphConfig{Operation: op, Element: m.Element, Iterations: m.Iterations}, nil
}

func (r RenderConfig) toOverlayOptions() (render.OverlayOptions, error) {
	opts := render.OverlayOptions{
		FalseColor:  r.FalseColor,
		BoundingBox: r.BoundingBox,
		ConvexHull:  r.ConvexHull,
		Centroid:    r.Centroid,
		Labels:      r.Labels,
	}
	colors := []struct {
		key string
		val string
		dst *color.RGBA
	}{
		{"render.box_color", r.BoxColor, &opts.BoxColor},
		{"render.hull_color", r.HullColor, &opts.HullColor},
		{"render.centroid_color", r.CentroidColor, &opts.CentroidColor},
		{"render.label_color", r.LabelColor, &opts.LabelColor},
	}
	for _, c := range colors {
		col, err := render.ParseColor(c.val)
		if err != nil {
			return render.OverlayOptions{}, fmt.Errorf("invalid %s: %w", c.key, err)
		}
		*c.dst = col
	}
	return opts, nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	if c == nil {
		return pipeline.Config{}, errors.New("nil config")
	}
	morph, err := c.Analysis.Morphology.toMorphConfig()
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid morphology: %w", err)
	}
	overlay, err := c.Render.toOverlayOptions()
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig()
	cfg.Threshold = c.Analysis.Threshold
	cfg.ForegroundIsLow = c.Analysis.ForegroundIsLow
	cfg.Invert = c.Analysis.Invert
	cfg.Morphology = morph
	cfg.MinArea = c.Analysis.MinArea
	cfg.Workers = c.Analysis.Workers
	cfg.Overlay = overlay
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg, nil
}
