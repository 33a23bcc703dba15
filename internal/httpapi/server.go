package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/keytrace/keytrace/internal/pipeline"
)

// Runner produces the ordered event stream of one pipeline run. Satisfied by
// *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, url string) <-chan pipeline.Event
}

type Server struct {
	runner   Runner
	cacheDir string

	downloadName string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithDownloadName overrides the constant filename suggested for served
// artifacts.
func WithDownloadName(name string) Option {
	return func(s *Server) {
		s.downloadName = name
	}
}

func NewServer(runner Runner, cacheDir string, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		cacheDir:     cacheDir,
		downloadName: "output.mid",
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return allowAllCORS(s.mux)
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/process", s.handleProcess)
	s.mux.HandleFunc("/download/", s.handleDownload)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

// allowAllCORS opens the transport boundary to any origin, method and
// header. A deployment concern, kept out of the handlers.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
