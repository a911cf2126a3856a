package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gormi/internal/analysis"
	"gormi/internal/errors"
)

// maxBodyBytes bounds request bodies; raw RT arrays of a few thousand
// trials per subject fit comfortably.
const maxBodyBytes = 16 << 20

// Config holds HTTP server configuration and the analysis defaults applied
// to requests that leave options out.
type Config struct {
	Port     string
	Analysis analysis.Config
}

// Server exposes the race model operations as JSON endpoints.
type Server struct {
	router *chi.Mux
	cfg    Config
}

// NewServer creates a server with middleware and routes installed.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if len(cfg.Analysis.Estimator.Grid) == 0 {
		cfg.Analysis = analysis.DefaultConfig()
	}
	s := &Server{router: chi.NewRouter(), cfg: cfg}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/percentiles", s.handlePercentiles)
		r.Post("/race", s.handleRace)
		r.Post("/aggregate", s.handleAggregate)
		r.Post("/compare", s.handleCompare)
		r.Post("/analyze", s.handleAnalyze)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured port until the server fails.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
	}
	log.Printf("[API] Starting race model API on %s", srv.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.IsAppError(err) {
			return err
		}
		return errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "decode request body"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] Internal error: %v", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeEmptySample, errors.CodeInvalidSample, errors.CodeInvalidInput, errors.CodeConfigInvalid:
		return http.StatusBadRequest
	case errors.CodeShapeMismatch:
		return http.StatusConflict
	case errors.CodeInsufficientSamples, errors.CodeTestNotComputable:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
