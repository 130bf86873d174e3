// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/gateway"
	"github.com/jeranaias/lumen/internal/title"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes int64 = 1 << 20

	// Version is the server version.
	Version = "0.3.0"

	msgInternal         = "Internal Server Error"
	msgMethodNotAllowed = "Method Not Allowed"
	msgInvalidJSON      = "Invalid JSON body"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats tracks server usage.
type Stats struct {
	Turns         atomic.Int64
	Fragments     atomic.Int64
	TitleRequests atomic.Int64
	Failures      atomic.Int64
	Aborted       atomic.Int64
	StartTime     time.Time
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Turns         int64  `json:"turns"`
	Fragments     int64  `json:"fragments"`
	TitleRequests int64  `json:"title_requests"`
	Failures      int64  `json:"failures"`
	Aborted       int64  `json:"aborted"`
	Uptime        string `json:"uptime"`
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsResponse {
	return StatsResponse{
		Turns:         s.Turns.Load(),
		Fragments:     s.Fragments.Load(),
		TitleRequests: s.TitleRequests.Load(),
		Failures:      s.Failures.Load(),
		Aborted:       s.Aborted.Load(),
		Uptime:        time.Since(s.StartTime).Round(time.Second).String(),
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server exposes the gateway and title service over HTTP.
type Server struct {
	addr    string
	router  *http.ServeMux
	gateway *gateway.Gateway
	titles  *title.Service
	cors    *CORSConfig
	maxBody int64
	stats   *Stats

	mu     sync.Mutex
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithCORS enables CORS handling.
func WithCORS(config *CORSConfig) Option {
	return func(s *Server) {
		s.cors = config
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a server for gw and titles.
func New(gw *gateway.Gateway, titles *title.Service, opts ...Option) *Server {
	s := &Server{
		addr:    DefaultAddr,
		router:  http.NewServeMux(),
		gateway: gw,
		titles:  titles,
		maxBody: DefaultMaxBodyBytes,
		stats:   &Stats{StartTime: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Stats returns the live counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/sendMessage", s.handleSendMessage)
	s.router.HandleFunc("/api/sendMessage", s.handleMethodNotAllowed)
	s.router.HandleFunc("POST /api/generateTitle", s.handleGenerateTitle)
	s.router.HandleFunc("/api/generateTitle", s.handleMethodNotAllowed)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(),
	}
	if s.cors != nil {
		middlewares = append(middlewares, CORSMiddleware(s.cors))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// SEND MESSAGE HANDLER
// ============================================================================

// handleSendMessage handles POST /api/sendMessage.
//
// The reply is streamed as raw UTF-8 text. Headers are committed with the
// first fragment, so a model failure before any output is still reported as
// a JSON 500. A failure after that aborts the connection, which the client
// sees as a truncated body.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req gateway.SendMessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	turns, lang, err := req.Turns()
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	s.stats.Turns.Add(1)
	rc := http.NewResponseController(w)
	started := false

	err = s.gateway.SendTurn(r.Context(), turns, lang, func(frag string) error {
		if !started {
			h := w.Header()
			h.Set("Content-Type", "text/plain; charset=utf-8")
			h.Set("Cache-Control", "no-cache")
			h.Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		s.stats.Fragments.Add(1)
		if _, err := w.Write([]byte(frag)); err != nil {
			return err
		}
		return rc.Flush()
	})

	switch {
	case err == nil:
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		}
	case !started:
		s.writeGatewayError(w, err)
	default:
		s.stats.Failures.Add(1)
		s.stats.Aborted.Add(1)
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("aborting stream after partial reply")
		panic(http.ErrAbortHandler)
	}
}

// ============================================================================
// GENERATE TITLE HANDLER
// ============================================================================

// handleGenerateTitle handles POST /api/generateTitle.
func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req gateway.GenerateTitleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	lang, err := req.Validate()
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	s.stats.TitleRequests.Add(1)
	t, err := s.titles.Generate(r.Context(), req.FirstUserMessage, req.FirstAIResponse, lang)
	if err != nil {
		s.stats.Failures.Add(1)
		log.Warn().Err(err).Msg("title generation failed")
		writeError(w, http.StatusInternalServerError, msgInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gateway.GenerateTitleResponse{Title: t})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, "")
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Provider: s.gateway.Provider().Name(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Serve accepts connections on l until Shutdown is called.
// It returns nil after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	log.Info().Str("addr", l.Addr().String()).Str("version", Version).Msg("server started")
	if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(l) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	log.Info().Msg("server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "")
			return false
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return false
	}
	return true
}

func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Kind == gateway.KindValidation {
		writeError(w, http.StatusBadRequest, gwErr.Message, "")
		return
	}
	s.stats.Failures.Add(1)
	log.Warn().Err(err).Msg("turn failed before streaming")
	writeError(w, http.StatusInternalServerError, msgInternal, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, gateway.ErrorResponse{Error: message, Details: details})
}
