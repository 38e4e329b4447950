// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
)

// Deps are the collaborators the handlers call. Results may be nil.
type Deps struct {
	Runner   interfaces.Runner
	Analyzer interfaces.Analyzer
	Results  interfaces.ResultStore
}

type Server struct {
	runner       interfaces.Runner
	analyzer     interfaces.Analyzer
	results      interfaces.ResultStore
	agentTimeout time.Duration
	server       *http.Server
}

func New(cfg store.ServerConfig, deps Deps) *Server {
	s := &Server{
		runner:       deps.Runner,
		analyzer:     deps.Analyzer,
		results:      deps.Results,
		agentTimeout: time.Duration(cfg.AgentTimeoutSeconds) * time.Second,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      applyMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	logger.Info(context.Background(), "Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// agentContext bounds one agent run
func (s *Server) agentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.agentTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.agentTimeout)
}
