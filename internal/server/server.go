// Package server provides the HTTP API for proposal review and title suggestions.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/extract"
	"github.com/hyperjump/fypmatch/internal/review"
	"github.com/hyperjump/fypmatch/internal/storage"
	"github.com/hyperjump/fypmatch/internal/suggest"
	"github.com/hyperjump/fypmatch/internal/vectorize"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// Server is the HTTP server for the fypmatch API.
type Server struct {
	reviewer   *review.Reviewer
	suggester  *suggest.Suggester
	vectorizer *vectorize.Vectorizer
	storage    storage.Storage
	corpus     *corpus.Store
	extractor  *extract.Extractor
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. vectorizer may be nil, in which
// case the proposal write and corpus reload endpoints answer 501.
func NewServer(
	reviewer *review.Reviewer,
	suggester *suggest.Suggester,
	vectorizer *vectorize.Vectorizer,
	storage storage.Storage,
	corpus *corpus.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		reviewer:   reviewer,
		suggester:  suggester,
		vectorizer: vectorizer,
		storage:    storage,
		corpus:     corpus,
		extractor:  extract.NewExtractor(),
		config:     cfg,
		logger:     logger,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/review", s.handleReview)
		r.Post("/review/upload", s.handleReviewUpload)
		r.Post("/suggestions", s.handleSuggestions)
		r.Post("/corpus/reload", s.handleCorpusReload)

		r.Get("/proposals", s.handleListProposals)
		r.Post("/proposals", s.handleCreateProposal)
		r.Get("/proposals/{id}", s.handleGetProposal)
		r.Put("/proposals/{id}/status", s.handleSetStatus)
		r.Delete("/proposals/{id}", s.handleDeleteProposal)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
