package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleProcess runs the transcription pipeline for the url query parameter
// and streams its events as server-sent events. The stream carries zero or
// more progress events followed by exactly one terminal event, then closes.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for ev := range s.runner.Run(r.Context(), sourceURL) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
