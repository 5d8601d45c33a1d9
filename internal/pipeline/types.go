package pipeline

import (
	"image"
	"time"

	"github.com/MeKo-Tech/particles/internal/common"
	"github.com/MeKo-Tech/particles/internal/particle"
	"github.com/MeKo-Tech/particles/internal/raster"
)

// Result holds the outcome of analyzing one image.
type Result struct {
	Source        string               `json:"source,omitempty" yaml:"source,omitempty"`
	Width         int                  `json:"width" yaml:"width"`
	Height        int                  `json:"height" yaml:"height"`
	Threshold     int                  `json:"threshold" yaml:"threshold"`
	AutoThreshold bool                 `json:"auto_threshold" yaml:"auto_threshold"`
	Particles     []particle.Particle  `json:"particles" yaml:"particles"`
	Filtered      int                  `json:"filtered,omitempty" yaml:"filtered,omitempty"` // particles dropped by the min-area filter
	Timings       []common.StageTiming `json:"timings,omitempty" yaml:"timings,omitempty"`
	Duration      time.Duration        `json:"duration_ns" yaml:"duration_ns"`

	Labels *raster.Raster `json:"-" yaml:"-"` // labeled raster, filtered particles cleared
	Mask   *raster.Raster `json:"-" yaml:"-"` // cleaned binary mask, only with KeepMask
	Image  *image.RGBA    `json:"-" yaml:"-"` // annotated rendering, only with Render
}

// Summary aggregates particle statistics of one result.
type Summary struct {
	Count        int     `json:"count" yaml:"count"`
	TotalArea    int     `json:"total_area" yaml:"total_area"`
	MeanArea     float64 `json:"mean_area" yaml:"mean_area"`
	MinArea      int     `json:"min_area" yaml:"min_area"`
	MaxArea      int     `json:"max_area" yaml:"max_area"`
	AreaFraction float64 `json:"area_fraction" yaml:"area_fraction"` // foreground share of the image
}

// Summarize computes aggregate statistics over the particles of r.
func (r *Result) Summarize() Summary {
	s := Summary{Count: len(r.Particles)}
	for i, p := range r.Particles {
		s.TotalArea += p.Area
		if i == 0 || p.Area < s.MinArea {
			s.MinArea = p.Area
		}
		if p.Area > s.MaxArea {
			s.MaxArea = p.Area
		}
	}
	if s.Count > 0 {
		s.MeanArea = float64(s.TotalArea) / float64(s.Count)
	}
	if px := r.Width * r.Height; px > 0 {
		s.AreaFraction = float64(s.TotalArea) / float64(px)
	}
	return s
}
