package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/tools"
	"github.com/IQAIcom/mcp-near-agent/internal/watcher"
)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and the watch API
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	watcher    *watcher.EventWatcher
	tools      *tools.Service
	port       int
}

// NewServer creates a new API server instance
// The watcher and tool service are made available to all handlers
func NewServer(port int, w *watcher.EventWatcher, toolService *tools.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		watcher: w,
		tools:   toolService,
		port:    port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Watch endpoints
	s.mux.HandleFunc("/watch", s.handleWatch)
	s.mux.HandleFunc("/stats", s.handleStats)
}

// handleWatch routes the watch collection endpoint by method
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListWatches(w, r)
	case http.MethodPost:
		s.handleStartWatch(w, r)
	case http.MethodDelete:
		s.handleStopWatch(w, r)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/watch", "/stats"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
