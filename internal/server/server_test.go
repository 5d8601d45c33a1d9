package server

import (
	"bytes"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/testutil"
	"github.com/MeKo-Tech/particles/internal/utils"
)

func testServerConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           0,
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     10,
		PipelineConfig: pipeline.DefaultConfig(),
		OverlayEnabled: true,
	}
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testServerConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func scenePNG(t *testing.T, s testutil.Scene) []byte {
	t.Helper()
	return pngBytes(t, s.Render())
}

type upload struct {
	field    string
	filename string
	data     []byte
}

// multipartRequest builds a POST with the given files and form fields.
func multipartRequest(t *testing.T, target string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func imageRequest(t *testing.T, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	return multipartRequest(t, "/analyze", []upload{{"image", "scene.png", data}}, fields)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
