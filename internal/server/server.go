// Package server provides the HTTP API for Kusuri.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kusuri/internal/config"
	"github.com/hyperjump/kusuri/internal/graph"
	"github.com/hyperjump/kusuri/internal/resolver"
	"github.com/hyperjump/kusuri/internal/storage"
)

// Server is the HTTP server for the Kusuri API.
type Server struct {
	graph    *graph.Graph
	resolver resolver.DrugResolver
	store    *storage.SQLiteStore
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. store may be nil
// when snapshot persistence is disabled.
func NewServer(
	g *graph.Graph,
	res resolver.DrugResolver,
	store *storage.SQLiteStore,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		graph:    g,
		resolver: res,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/interactions/search", s.handleInteractionSearch)
	r.Post("/api/v1/interactions", s.handleAddInteraction)
	r.Get("/api/v1/drugs/{name}/interactions", s.handleDrugInteractions)
	r.Post("/api/v1/resolve", s.handleResolve)
	r.Post("/api/v1/suggest", s.handleSuggest)
	r.Get("/api/v1/available", s.handleAvailable)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
