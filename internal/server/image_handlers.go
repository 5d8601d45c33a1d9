package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/particles/internal/morphology"
	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/render"
	"github.com/MeKo-Tech/particles/internal/utils"
)

const formatOverlay = "overlay"

var errInvalidImage = errors.New("invalid image format")

// RequestConfig holds per-request overrides of the server's analysis
// settings. Nil and empty fields keep the server defaults.
type RequestConfig struct {
	Threshold  *int
	Foreground string // "bright" or "dark"
	Invert     *bool
	Operation  string
	Element    string
	Iterations *int
	MinArea    *int
	Labels     *bool
	BoxColor   string
	HullColor  string
}

// parseRequestConfig reads overrides through get, which returns "" for
// absent keys.
func parseRequestConfig(get func(key string) string) (*RequestConfig, error) {
	rc := &RequestConfig{
		Operation: strings.TrimSpace(get("operation")),
		Element:   strings.TrimSpace(get("element")),
		BoxColor:  strings.TrimSpace(get("box")),
		HullColor: strings.TrimSpace(get("hull")),
	}

	if v := strings.TrimSpace(get("threshold")); v != "" {
		t := pipeline.AutoThreshold
		if !strings.EqualFold(v, "auto") {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid threshold %q", v)
			}
			t = n
		}
		rc.Threshold = &t
	}

	switch fg := strings.ToLower(strings.TrimSpace(get("foreground"))); fg {
	case "", "bright", "dark":
		rc.Foreground = fg
	default:
		return nil, fmt.Errorf("invalid foreground %q (must be bright or dark)", fg)
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"iterations", &rc.Iterations},
		{"min_area", &rc.MinArea},
	}
	for _, f := range ints {
		if v := strings.TrimSpace(get(f.key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", f.key, v)
			}
			*f.dst = &n
		}
	}

	bools := []struct {
		key string
		dst **bool
	}{
		{"invert", &rc.Invert},
		{"labels", &rc.Labels},
	}
	for _, f := range bools {
		if v := strings.TrimSpace(get(f.key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", f.key, v)
			}
			*f.dst = &b
		}
	}
	return rc, nil
}

// empty reports whether rc overrides nothing.
func (rc *RequestConfig) empty() bool {
	return rc == nil || *rc == RequestConfig{}
}

// apply returns base with the overrides of rc.
func (rc *RequestConfig) apply(base pipeline.Config) (pipeline.Config, error) {
	cfg := base
	if rc.empty() {
		return cfg, nil
	}
	if rc.Threshold != nil {
		cfg.Threshold = *rc.Threshold
	}
	switch rc.Foreground {
	case "bright":
		cfg.ForegroundIsLow = false
	case "dark":
		cfg.ForegroundIsLow = true
	}
	if rc.Invert != nil {
		cfg.Invert = *rc.Invert
	}
	if rc.Operation != "" {
		op, err := morphology.ParseOp(rc.Operation)
		if err != nil {
			return cfg, err
		}
		cfg.Morphology.Operation = op
	}
	if rc.Element != "" {
		cfg.Morphology.Element = rc.Element
	}
	if rc.Iterations != nil {
		cfg.Morphology.Iterations = *rc.Iterations
	}
	if rc.MinArea != nil {
		cfg.MinArea = *rc.MinArea
	}
	if rc.Labels != nil {
		cfg.Overlay.Labels = *rc.Labels
	}
	if rc.BoxColor != "" {
		c, err := render.ParseColor(rc.BoxColor)
		if err != nil {
			return cfg, fmt.Errorf("invalid box colour: %w", err)
		}
		cfg.Overlay.BoxColor = c
	}
	if rc.HullColor != "" {
		c, err := render.ParseColor(rc.HullColor)
		if err != nil {
			return cfg, fmt.Errorf("invalid hull colour: %w", err)
		}
		cfg.Overlay.HullColor = c
	}
	return cfg, cfg.Validate()
}

// pipelineFor returns the shared pipeline, or a fresh one when rc
// overrides any setting. Pipelines are stateless and cheap to build.
func (s *Server) pipelineFor(rc *RequestConfig) (*pipeline.Pipeline, error) {
	if rc.empty() {
		return s.pipeline, nil
	}
	cfg, err := rc.apply(s.baseConfig)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg)
}

// analyzeHandler analyzes one uploaded image.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, rc, err := s.parseImageRequest(w, r)
	if err != nil {
		analysisRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}

	format := requestFormat(r)
	if format == formatOverlay && !s.overlayEnabled {
		s.writeErrorResponse(w, "overlay output disabled", http.StatusForbidden)
		return
	}
	if format != formatOverlay {
		if _, err := pipeline.ParseFormat(format); err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	pl, err := s.pipelineFor(rc)
	if err != nil {
		analysisRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Invalid analysis options: %v", err), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := pl.Analyze(img)
	duration := time.Since(start)
	if err != nil {
		observeAnalysis("image", duration.Seconds(), 0, err)
		s.writeErrorResponse(w, fmt.Sprintf("Analysis failed: %v", err), http.StatusInternalServerError)
		return
	}
	observeAnalysis("image", duration.Seconds(), len(res.Particles), nil)

	s.writeImageResponse(w, format, res)
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, *RequestConfig, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		s.writeFormError(w, err)
		return nil, nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadBytes() {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, nil, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	img, err := decodeUpload(file)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, err
	}

	rc, err := parseRequestConfig(r.FormValue)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, err
	}
	return img, rc, nil
}

// writeFormError distinguishes an oversized body from a malformed form.
func (s *Server) writeFormError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
}

// decodeUpload decodes an uploaded image and checks its dimensions.
func decodeUpload(r io.Reader) (image.Image, error) {
	img, _, err := utils.DecodeImage(r)
	if err != nil {
		return nil, errInvalidImage
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, err
	}
	return img, nil
}

// requestFormat returns the output format from the form or query, json by default.
func requestFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == "" {
		return pipeline.FormatJSON
	}
	return strings.ToLower(format)
}

func (s *Server) writeImageResponse(w http.ResponseWriter, format string, res *pipeline.Result) {
	switch format {
	case formatOverlay:
		s.writeOverlayResponse(w, res)
	case pipeline.FormatJSON:
		summary := res.Summarize()
		writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Result: res, Summary: &summary})
	default:
		s.writeFormattedResponse(w, format, res)
	}
}

var contentTypes = map[string]string{
	pipeline.FormatCSV:   "text/csv",
	pipeline.FormatYAML:  "application/yaml",
	pipeline.FormatTable: "text/plain; charset=utf-8",
}

func (s *Server) writeFormattedResponse(w http.ResponseWriter, format string, res *pipeline.Result) {
	format, _ = pipeline.ParseFormat(format)
	var b strings.Builder
	if err := pipeline.WriteResults(&b, format, []*pipeline.Result{res}, 4); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) writeOverlayResponse(w http.ResponseWriter, res *pipeline.Result) {
	if res.Image == nil {
		s.writeErrorResponse(w, "overlay failed", http.StatusInternalServerError)
		return
	}
	data, err := utils.EncodePNG(res.Image)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("overlay failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}
