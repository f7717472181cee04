// Package server is a local stand-in for the VoiceFit analysis service. It speaks
// the same multipart contract and error envelope, answers mock=true with a canned
// result and derives a rough profile from spectral statistics otherwise.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

const (
	DefaultPort           = 8000
	DefaultMaxUploadBytes = 5 * 1024 * 1024
	DefaultMinDuration    = 3.0
	Version               = "1.0.0"
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type Config struct {
	Port           int
	AllowedOrigins []string
	MaxUploadBytes int64
	MinDuration    float64
	// LogRequests enables the per-request access log.
	LogRequests bool
	Logger      Logger
	// Registry receives the server's collectors. A private registry is created
	// when nil so that several servers can live in one process.
	Registry *prometheus.Registry
}

type Server struct {
	cfg     Config
	log     Logger
	metrics *metrics
	router  *mux.Router
	handler http.Handler
	now     func() time.Time
}

func New(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = DefaultMinDuration
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: newMetrics(cfg.Registry),
		now:     time.Now,
	}
	s.router = s.routes()
	s.handler = corsMiddleware(cfg.AllowedOrigins)(s.router)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx ends, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("VoiceFit dev server starting on %s", srv.Addr)
	s.log.Infof("   CORS Origins: %v", s.cfg.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health    - Health check")
	s.log.Infof("   POST   /analyze   - Analyze a voice sample")
	s.log.Infof("   GET    /metrics   - Prometheus metrics")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// apiError is a failure with a stable code, rendered as the error envelope.
type apiError struct {
	status  int
	code    string
	message string
	hint    string
}

func (e *apiError) Error() string { return e.code + ": " + e.message }

func (s *Server) respondError(w http.ResponseWriter, e *apiError) {
	s.respondJSON(w, e.status, model.ErrorEnvelope{Error: &model.ErrorBody{
		Code:    e.code,
		Message: e.message,
		Hint:    e.hint,
	}})
}
