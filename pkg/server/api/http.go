// Package api serves round results over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/metrics"
)

// Server represents the HTTP status API.
type Server struct {
	addr    string
	results ResultSource
	server  *http.Server
	logger  *logging.Logger
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, results ResultSource, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Server{
		addr:    addr,
		results: results,
		logger:  logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/round", s.handleRound)
	mux.HandleFunc("/v1/feeds", s.handleFeeds)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health. The process is healthy once it serves;
// the last round outcome is reported alongside.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	body := map[string]interface{}{"status": "ok"}
	if last := s.results.Last(); last != nil {
		body["last_round"] = last.Round
		if last.Error != "" {
			body["last_error"] = last.Error
		}
	}
	s.sendJSON(w, http.StatusOK, body)
}

// handleRound handles /v1/round.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(status), time.Since(start))
	}()

	last := s.results.Last()
	if last == nil {
		status = http.StatusServiceUnavailable
		http.Error(w, "No round completed yet", status)
		return
	}
	s.sendJSON(w, status, summarize(last))
}

// handleFeeds handles /v1/feeds.
func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(status), time.Since(start))
	}()

	last := s.results.Last()
	if last == nil {
		status = http.StatusServiceUnavailable
		http.Error(w, "No round completed yet", status)
		return
	}
	s.sendJSON(w, status, feedViews(last))
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
