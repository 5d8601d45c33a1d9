package server

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/particles/internal/common"
	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/version"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline       *pipeline.Pipeline
	baseConfig     pipeline.Config
	corsOrigin     string
	maxUploadMB    int64
	timeoutSec     int
	overlayEnabled bool
	rateLimiter    *RateLimiter
	requestSeq     atomic.Uint64
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int
	PipelineConfig  pipeline.Config
	OverlayEnabled  bool
	RateLimit       RateLimitConfig
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string             `json:"status"`
	Version string             `json:"version,omitempty"`
	Time    string             `json:"time"`
	Memory  common.MemoryStats `json:"memory"`
}

// ElementInfo describes a structuring element preset.
type ElementInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mask   string `json:"mask"`
}

// PresetsResponse is returned by /presets.
type PresetsResponse struct {
	Elements   []ElementInfo `json:"elements"`
	Operations []string      `json:"operations"`
}

// AnalyzeResponse is the JSON body of /analyze.
type AnalyzeResponse struct {
	Success bool              `json:"success"`
	Result  *pipeline.Result  `json:"result,omitempty"`
	Summary *pipeline.Summary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// BatchItem is the outcome for one uploaded file of /analyze/batch.
type BatchItem struct {
	Filename string            `json:"filename"`
	Result   *pipeline.Result  `json:"result,omitempty"`
	Summary  *pipeline.Summary `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// BatchResponse is the JSON body of /analyze/batch.
type BatchResponse struct {
	Success bool                    `json:"success"`
	Items   []BatchItem             `json:"items,omitempty"`
	Stats   *pipeline.ParallelStats `json:"stats,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// NewServer creates a new analysis server instance.
func NewServer(config Config) (*Server, error) {
	cfg := config.PipelineConfig
	cfg.Render = config.OverlayEnabled
	pl, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}

	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}

	s := &Server{
		pipeline:       pl,
		baseConfig:     cfg,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    maxUpload,
		timeoutSec:     config.TimeoutSec,
		overlayEnabled: config.OverlayEnabled,
	}
	if config.RateLimit.Enabled() {
		s.rateLimiter = NewRateLimiter(config.RateLimit)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/presets", s.corsMiddleware(s.presetsHandler))
	mux.HandleFunc("/analyze", s.corsMiddleware(s.rateLimitMiddleware(s.analyzeHandler)))
	mux.HandleFunc("/analyze/batch", s.corsMiddleware(s.rateLimitMiddleware(s.analyzeBatchHandler)))
	mux.HandleFunc("/ws/analyze", s.corsMiddleware(s.analyzeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}

func (s *Server) nextRequestID() string {
	return fmt.Sprintf("req-%d", s.requestSeq.Add(1))
}

func versionString() string {
	v, _, _ := version.Info()
	return v
}
