package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/particles/internal/common"
	"github.com/MeKo-Tech/particles/internal/morphology"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: versionString(),
		Time:    time.Now().UTC().Format(time.RFC3339),
		Memory:  common.GetMemoryStats(),
	}
	writeJSON(w, http.StatusOK, response)
}

// presetsHandler lists the structuring element presets and morphology operations.
func (s *Server) presetsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := morphology.PresetNames()
	elements := make([]ElementInfo, 0, len(names))
	for _, name := range names {
		se := morphology.MustPreset(name)
		w, h := se.Size()
		elements = append(elements, ElementInfo{
			Name:   name,
			Width:  w,
			Height: h,
			Mask:   se.String(),
		})
	}

	writeJSON(w, http.StatusOK, PresetsResponse{
		Elements:   elements,
		Operations: morphology.OperationNames(),
	})
}

// writeJSON encodes v as the JSON body of a response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log error, but can't send another response
		slog.Error("Error encoding response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, AnalyzeResponse{Success: false, Error: message})
}
