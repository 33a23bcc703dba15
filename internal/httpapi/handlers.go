package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/keytrace/keytrace/pkg/file"
	"github.com/keytrace/keytrace/pkg/log"
)

const midiContentType = "audio/midi"

// handleDownload serves a previously produced artifact by its path segment.
// Paths are confined to the cache directory; the suggested filename is a
// constant, not derived from the original title.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/download/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	if rel == "" {
		writeError(w, http.StatusBadRequest, "missing artifact path")
		return
	}

	// Clients send back the midiPath from the complete event verbatim, so
	// the segment may be the bare artifact name or a path that already
	// includes the cache directory. Try both readings, confined to the
	// cache directory either way.
	stripped := strings.TrimPrefix(strings.TrimPrefix(rel, "/"), strings.TrimPrefix(s.cacheDir, "/"))
	path := ""
	for _, candidate := range []string{rel, stripped} {
		p, ok := file.WithinDir(s.cacheDir, candidate)
		if !ok {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}

	log.Info("serving artifact %s", path)
	w.Header().Set("Content-Type", midiContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.downloadName))
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
