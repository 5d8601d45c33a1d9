package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/testutil"
)

func TestCORSMiddleware(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.CORSOrigin = "https://example.com" })

	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.RateLimit = RateLimitConfig{RequestsPerMinute: 1} })
	data := scenePNG(t, testutil.DefaultScene())

	rec := serve(s, imageRequest(t, data, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, imageRequest(t, data, nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "minute", rec.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	// health is not rate limited
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_Quota(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.RateLimit = RateLimitConfig{RequestsPerDay: 1} })
	data := scenePNG(t, testutil.DefaultScene())

	require.Equal(t, http.StatusOK, serve(s, imageRequest(t, data, nil)).Code)

	rec := serve(s, imageRequest(t, data, nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "requests", rec.Header().Get("X-Quota-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Quota-Used"))
	assert.NotEmpty(t, rec.Header().Get("X-Quota-Resets"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Nil(t, s.rateLimiter)
	data := scenePNG(t, testutil.DefaultScene())
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(s, imageRequest(t, data, nil)).Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"single forwarded", map[string]string{"X-Forwarded-For": " 203.0.113.6 "}, "10.0.0.1:80", "203.0.113.6"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:80", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestHandleRateLimitError_Unknown(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.handleRateLimitError(rec, io.EOF)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, serve(s, imageRequest(t, scenePNG(t, testutil.DefaultScene()), nil)).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "particles_http_requests_total")
	assert.Contains(t, body, `particles_analysis_requests_total{status="success",type="image"}`)
	assert.Contains(t, body, "particles_detected_per_image")
	assert.True(t, strings.Contains(body, "particles_upload_size_bytes"))
}

func TestRetryAfterRounding(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.handleRateLimitError(rec, &RateLimitError{Type: "hour", Limit: 10, RetryAfter: 90 * time.Second})
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
	assert.Equal(t, "hour", rec.Header().Get("X-RateLimit-Type"))
}
