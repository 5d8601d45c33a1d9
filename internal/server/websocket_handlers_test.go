package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/testutil"
)

func dialWebSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyze"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WebSocketResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var resp WebSocketResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

// readUntilDone reads responses until a completed or error message.
func readUntilDone(t *testing.T, conn *websocket.Conn) (WebSocketResponse, []WebSocketResponse) {
	t.Helper()
	var seen []WebSocketResponse
	for {
		resp := readResponse(t, conn)
		seen = append(seen, resp)
		if resp.Status != "processing" {
			return resp, seen
		}
	}
}

func TestWebSocket_BinaryFrame(t *testing.T) {
	conn := dialWebSocket(t, newTestServer(t, nil))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, scenePNG(t, testutil.DefaultScene())))
	final, seen := readUntilDone(t, conn)

	require.Equal(t, "completed", final.Status, final.Error)
	assert.Equal(t, "analysis", final.Type)
	assert.InDelta(t, 1.0, final.Progress, 1e-9)
	require.NotNil(t, final.Result)
	assert.Len(t, final.Result.Particles, 4)
	assert.Equal(t, 4, final.Summary.Count)
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, "processing", seen[0].Status)
	for _, r := range seen {
		assert.Equal(t, final.RequestID, r.RequestID)
	}
}

func TestWebSocket_OptionsThenAnalyze(t *testing.T) {
	conn := dialWebSocket(t, newTestServer(t, nil))
	dark := scenePNG(t, testutil.DefaultScene().Inverted())

	require.NoError(t, conn.WriteJSON(WebSocketRequest{
		Type:    "options",
		Options: map[string]any{"foreground": "dark", "min_area": 10},
	}))
	ack := readResponse(t, conn)
	assert.Equal(t, "options", ack.Type)
	assert.Equal(t, "completed", ack.Status)

	// binary frames use the connection options
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, dark))
	final, _ := readUntilDone(t, conn)
	require.Equal(t, "completed", final.Status, final.Error)
	assert.Len(t, final.Result.Particles, 4)

	// per-message options replace them
	require.NoError(t, conn.WriteJSON(WebSocketRequest{
		Type:    "analyze",
		Image:   dark,
		Options: map[string]any{"foreground": "bright"},
	}))
	final, _ = readUntilDone(t, conn)
	require.Equal(t, "completed", final.Status, final.Error)
	assert.Len(t, final.Result.Particles, 1)
}

func TestWebSocket_Errors(t *testing.T) {
	conn := dialWebSocket(t, newTestServer(t, nil))

	tests := []struct {
		name      string
		send      func() error
		errorType string
	}{
		{"bad json", func() error { return conn.WriteMessage(websocket.TextMessage, []byte("{")) }, "invalid_request"},
		{"unknown type", func() error { return conn.WriteJSON(WebSocketRequest{Type: "pdf"}) }, "invalid_request"},
		{"no image", func() error { return conn.WriteJSON(WebSocketRequest{Type: "analyze"}) }, "invalid_request"},
		{"bad options", func() error {
			return conn.WriteJSON(WebSocketRequest{Type: "options", Options: map[string]any{"threshold": 999}})
		}, "invalid_options"},
		{"bad image", func() error { return conn.WriteMessage(websocket.BinaryMessage, []byte("nope")) }, "invalid_image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.send())
			final, _ := readUntilDone(t, conn)
			assert.Equal(t, "error", final.Status)
			assert.Equal(t, tt.errorType, final.ErrorType)
			assert.NotEmpty(t, final.Error)
		})
	}

	// the connection survives errors
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, scenePNG(t, testutil.DefaultScene())))
	final, _ := readUntilDone(t, conn)
	assert.Equal(t, "completed", final.Status)
}

func TestWebSocket_OversizedFrameClosesConnection(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadMB = 1 })
	conn := dialWebSocket(t, s)

	// the write may fail once the server has dropped the connection
	_ = conn.WriteMessage(websocket.BinaryMessage, make([]byte, s.wsReadLimit()+1))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not idle")
	}
}

func TestProcessWebSocketImage_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadMB = 1 })
	rc := &recordingConn{}

	s.processWebSocketImage(rc, make([]byte, s.maxUploadBytes()+1), nil)
	require.Len(t, rc.frames, 1)

	var resp WebSocketResponse
	require.NoError(t, json.Unmarshal(rc.frames[0], &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "file_too_large", resp.ErrorType)
}

func TestOptionGetter(t *testing.T) {
	var opts map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"threshold": 128, "invert": true, "element": "square3", "labels": null}`), &opts))
	get := optionGetter(opts)
	assert.Equal(t, "128", get("threshold"))
	assert.Equal(t, "true", get("invert"))
	assert.Equal(t, "square3", get("element"))
	assert.Empty(t, get("labels"))
	assert.Empty(t, get("missing"))
}

// recordingConn captures written frames.
type recordingConn struct {
	frames [][]byte
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.frames = append(c.frames, data)
	return nil
}

func TestProcessWebSocketImage_Writer(t *testing.T) {
	s := newTestServer(t, nil)
	rc := &recordingConn{}

	s.processWebSocketImage(rc, scenePNG(t, testutil.DefaultScene()), nil)
	require.Len(t, rc.frames, 3)

	var last WebSocketResponse
	require.NoError(t, json.Unmarshal(rc.frames[2], &last))
	assert.Equal(t, "completed", last.Status)
	assert.Equal(t, "req-1", last.RequestID)
}
