package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/particles/internal/pipeline"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are restricted by the CORS settings of the HTTP routes
		return true
	},
}

// WebSocketRequest is a text frame sent by the client. Binary frames carry
// raw image bytes and are analyzed with the connection options.
type WebSocketRequest struct {
	Type    string         `json:"type"` // "options" or "analyze"
	Image   []byte         `json:"image,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is sent back for every request.
type WebSocketResponse struct {
	Type      string            `json:"type"`
	Status    string            `json:"status"` // "processing", "completed", "error"
	Progress  float64           `json:"progress,omitempty"`
	Result    *pipeline.Result  `json:"result,omitempty"`
	Summary   *pipeline.Summary `json:"summary,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// wsSession is the per-connection state.
type wsSession struct {
	conn    *websocket.Conn
	options *RequestConfig
}

// analyzeWebSocketHandler handles WebSocket connections for streaming analysis.
func (s *Server) analyzeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(&wsSession{conn: conn})
}

// wsReadLimit bounds a single frame. Text frames carry the image base64
// encoded inside JSON, so they get the encoding overhead on top of the
// upload limit.
func (s *Server) wsReadLimit() int64 {
	return s.maxUploadBytes()/3*4 + 4096
}

// handleWebSocketConnection processes messages until the client goes away.
// A frame over wsReadLimit closes the connection.
func (s *Server) handleWebSocketConnection(sess *wsSession) {
	conn := sess.conn
	conn.SetReadLimit(s.wsReadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				slog.Warn("WebSocket frame exceeds upload limit", "limit_bytes", s.wsReadLimit())
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.BinaryMessage:
			s.processWebSocketImage(conn, data, sess.options)
		case websocket.TextMessage:
			s.handleWebSocketMessage(sess, data)
		}
	}
}

// handleWebSocketMessage processes a JSON text frame.
func (s *Server) handleWebSocketMessage(sess *wsSession, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(sess.conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err), "")
		return
	}

	switch req.Type {
	case "options":
		rc, err := parseRequestConfig(optionGetter(req.Options))
		if err == nil {
			_, err = s.pipelineFor(rc)
		}
		if err != nil {
			s.sendWebSocketError(sess.conn, "invalid_options", err.Error(), "")
			return
		}
		sess.options = rc
		s.sendWebSocketResponse(sess.conn, WebSocketResponse{Type: "options", Status: "completed"})
	case "analyze":
		rc := sess.options
		if req.Options != nil {
			var err error
			if rc, err = parseRequestConfig(optionGetter(req.Options)); err != nil {
				s.sendWebSocketError(sess.conn, "invalid_options", err.Error(), "")
				return
			}
		}
		s.processWebSocketImage(sess.conn, req.Image, rc)
	default:
		s.sendWebSocketError(sess.conn, "invalid_request", "Unsupported request type: "+req.Type, "")
	}
}

// processWebSocketImage analyzes image bytes and streams progress and the result.
func (s *Server) processWebSocketImage(conn WebSocketConnWriter, data []byte, rc *RequestConfig) {
	requestID := s.nextRequestID()
	if len(data) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided", requestID)
		return
	}
	if int64(len(data)) > s.maxUploadBytes() {
		s.sendWebSocketError(conn, "file_too_large",
			fmt.Sprintf("Image exceeds %d MB upload limit", s.maxUploadMB), requestID)
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "analysis",
		Status:    "processing",
		RequestID: requestID,
	})

	img, err := decodeUpload(bytes.NewReader(data))
	if err != nil {
		analysisRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "invalid_image", err.Error(), requestID)
		return
	}

	pl, err := s.pipelineFor(rc)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_options", err.Error(), requestID)
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "analysis",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	start := time.Now()
	res, err := pl.Analyze(img)
	duration := time.Since(start)
	if err != nil {
		observeAnalysis("websocket", duration.Seconds(), 0, err)
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Analysis failed: %v", err), requestID)
		return
	}
	observeAnalysis("websocket", duration.Seconds(), len(res.Particles), nil)

	summary := res.Summarize()
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "analysis",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		Summary:   &summary,
		RequestID: requestID,
	})
}

// optionGetter adapts decoded JSON options to parseRequestConfig.
func optionGetter(options map[string]any) func(string) string {
	return func(key string) string {
		v, ok := options[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message, requestID string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
