// Package server provides the HTTP API for clausematch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tenderlab/clausematch/internal/config"
	"github.com/tenderlab/clausematch/internal/ensemble"
	"github.com/tenderlab/clausematch/internal/storage"
)

// Server is the HTTP server for the clausematch API.
type Server struct {
	cfg    *config.Config
	store  *storage.Store
	logger *zap.Logger
	server *http.Server

	mu        sync.RWMutex
	ens       *ensemble.Ensemble
	corpusLen int
}

// NewServer creates a server with the given dependencies. The ensemble may be
// nil at startup and set later once it is built.
func NewServer(cfg *config.Config, store *storage.Store, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// SetEnsemble swaps the ensemble serving retrieval requests. Called at
// startup and whenever the watcher rebuilds the indexes.
func (s *Server) SetEnsemble(ens *ensemble.Ensemble, corpusLen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ens = ens
	s.corpusLen = corpusLen
}

func (s *Server) ensemble() (*ensemble.Ensemble, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ens, s.corpusLen
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/retrieve", s.handleRetrieve)
	r.Get("/api/v1/report", s.handleReport)
	r.Get("/api/v1/runs", s.handleRuns)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
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
