// Package server exposes scans over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/scamdar/internal/inflight"
	"github.com/hyperifyio/scamdar/internal/llm"
	"github.com/hyperifyio/scamdar/internal/metrics"
	"github.com/hyperifyio/scamdar/internal/reply"
	"github.com/hyperifyio/scamdar/internal/scan"
	"github.com/hyperifyio/scamdar/internal/target"
)

// Opener loads a page and returns a target for it plus a cleanup func.
type Opener func(ctx context.Context, pageURL string) (target.Target, func(), error)

// Server serves the scan API.
type Server struct {
	Scanner  *scan.Scanner
	Open     Opener
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer
	// ScanTimeout bounds one request's scan. Zero means no extra bound.
	ScanTimeout time.Duration
}

type scanRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}
	u, err := target.CheckURL(req.URL)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	id := uuid.New()
	if err := s.Scanner.Precondition(); err != nil {
		s.respondOutcome(w, scan.NewOutcome(id, reply.Result{}, err))
		return
	}

	ctx := r.Context()
	if s.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ScanTimeout)
		defer cancel()
	}
	pageURL := u.String()
	o := s.Scanner.Run(ctx, scan.Request{
		ID:  id,
		Key: target.Key(u),
		Open: func(ctx context.Context) (target.Target, func(), error) {
			return s.Open(ctx, pageURL)
		},
	})
	s.respondOutcome(w, o)
}

func (s *Server) respondOutcome(w http.ResponseWriter, o scan.Outcome) {
	respondJSON(w, statusFor(o), o)
}

// statusFor maps an outcome to an HTTP status.
func statusFor(o scan.Outcome) int {
	if o.Success {
		return http.StatusOK
	}
	err := o.Err
	var pe *scan.PreconditionError
	var te *llm.TransportError
	switch {
	case errors.Is(err, inflight.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &pe):
		return http.StatusPreconditionFailed
	case errors.As(err, &te):
		return http.StatusBadGateway
	}
	switch o.Stage {
	case scan.StageExtraction, scan.StageParsing:
		return http.StatusUnprocessableEntity
	case scan.StageTransport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// requestLogger logs each request with zerolog and records HTTP metrics
// under the matched route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		took := time.Since(start)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Metrics.ObserveHTTP(r.Method, route, status, took)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("took", took).
			Msg("http request")
	})
}
