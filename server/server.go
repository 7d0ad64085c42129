// Package server exposes imports, hook dispatch and job lookups over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/poiesic/kernelci"
	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/hooks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Backend is what the server needs from a kernelci.Service.
type Backend interface {
	ImportJob(ctx context.Context, job, kernel string, notify bool) (*kernelci.ImportReport, error)
	Dispatch(ctx context.Context, eventType core.EventType, payload any) []hooks.Outcome
	Lookup(ctx context.Context, id string) (*kernelci.JobView, error)
}

// Server routes HTTP requests to a Backend.
type Server struct {
	backend Backend
	router  *mux.Router
	logger  *slog.Logger
}

// New creates a Server. A nil logger uses slog.Default().
func New(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		router:  mux.NewRouter(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/import", s.handleImport).Methods("POST")
	api.HandleFunc("/hooks/{event}", s.handleHook).Methods("POST")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// ImportRequest is the body of POST /v1/import.
type ImportRequest struct {
	Job    string `json:"job"`
	Kernel string `json:"kernel"`
	Notify bool   `json:"notify"`
}

// ImportResponse reports a completed import.
type ImportResponse struct {
	JobID    string          `json:"job_id"`
	Saved    int             `json:"saved"`
	Variants []*core.Variant `json:"variants"`
	Hooks    []hooks.Outcome `json:"hooks,omitempty"`
}

// HookResponse reports a dispatch.
type HookResponse struct {
	Event    core.EventType  `json:"event"`
	Outcomes []hooks.Outcome `json:"outcomes"`
}

// handleImport handles POST /v1/import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Job = strings.TrimSpace(req.Job)
	req.Kernel = strings.TrimSpace(req.Kernel)
	if req.Job == "" || req.Kernel == "" {
		writeError(w, http.StatusBadRequest, "job and kernel are required")
		return
	}

	report, err := s.backend.ImportJob(r.Context(), req.Job, req.Kernel, req.Notify)
	if err != nil {
		s.logger.Error("import failed", "job", req.Job, "kernel", req.Kernel, "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInvalidJob) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		JobID:    report.Result.JobID,
		Saved:    report.Result.Saved,
		Variants: report.Result.Variants,
		Hooks:    report.Outcomes,
	})
}

// handleHook handles POST /v1/hooks/{event}
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	eventType, err := core.ParseEventType(mux.Vars(r)["event"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "payload must be JSON")
		return
	}

	outcomes := s.backend.Dispatch(r.Context(), eventType, json.RawMessage(body))
	writeJSON(w, http.StatusOK, HookResponse{Event: eventType, Outcomes: outcomes})
}

// handleGetJob handles GET /v1/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	view, err := s.backend.Lookup(r.Context(), id)
	if err != nil {
		if kernelci.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("lookup failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
