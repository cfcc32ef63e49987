package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/slotbus/config"
	"github.com/goclaw/slotbus/pkg/logger"
)

// Server defines the interface for HTTP server lifecycle management.
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// HTTPServer implements the Server interface.
type HTTPServer struct {
	config   config.AdminConfig
	server   *http.Server
	router   chi.Router
	logger   logger.Logger
	handlers *Handlers

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewHTTPServer creates a new HTTP server instance.
func NewHTTPServer(cfg config.AdminConfig, log logger.Logger, h *Handlers) *HTTPServer {
	if h == nil {
		h = &Handlers{}
	}
	log = logger.Named(log, "admin")
	router := NewRouter(cfg, log, h)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		config:   cfg,
		server:   srv,
		router:   router,
		logger:   log,
		handlers: h,
		ready:    make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.logger.Error("HTTP server failed", "error", err, "addr", s.server.Addr)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	s.logger.Info("Starting HTTP server",
		"addr", ln.Addr().String(),
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server failed", "error", err)
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Ready is closed once the server is listening.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before the server started.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the router serving the admin API.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Shutdown gracefully shuts down the HTTP server. Websocket clients are
// hijacked connections the HTTP server does not track, so they are closed
// explicitly.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.handlers.WebSocket != nil {
		s.handlers.WebSocket.Close()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
