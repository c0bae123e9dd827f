// Package api exposes the tracer over HTTP so dashboards and other
// services can resolve flow paths without shelling out to the CLI.
//
// The surface is deliberately small: one trace endpoint and a health
// check. Hop failures are part of the flow graph, not HTTP errors, so a
// trace of a broken topology still returns 200 with error nodes inline.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
	"github.com/vsundar/flowtrace/pkg/trace"
)

// Server handles trace requests over HTTP.
type Server struct {
	runner *trace.Runner
	logger *log.Logger
}

// NewServer creates an HTTP server around the given runner.
func NewServer(runner *trace.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/trace", s.handleTrace)
	return r
}

// traceRequest is the trace endpoint's request body. Field names match
// the flow graph's own JSON so clients round-trip naturally.
type traceRequest struct {
	Manager string `json:"queue_manager"`
	Object  string `json:"object_name"`
	Type    string `json:"object_type"`
	Refresh bool   `json:"refresh"`
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req traceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  string(apperrors.ErrCodeInvalidInput),
		})
		return
	}

	objType, err := trace.ParseObjectType(req.Type)
	if err != nil {
		s.writeError(w, err)
		return
	}
	start := trace.Ref{Manager: req.Manager, Object: req.Object, Type: objType}

	graph, cached, err := s.runner.Run(r.Context(), start, trace.RunOptions{Refresh: req.Refresh})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, graph)
}

// writeError maps an application error onto an HTTP status. Only bad
// input from the caller is a 4xx; everything else is on us.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeInvalidObjectType,
		apperrors.ErrCodeInvalidManager,
		apperrors.ErrCodeInvalidFormat:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeManagerNotFound,
		apperrors.ErrCodeObjectNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: apperrors.UserMessage(err), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs one line per request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
		)
	})
}
