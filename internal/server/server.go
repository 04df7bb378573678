// Package server exposes case generation, saved-case management,
// snippet search, share links and streaming discussions over HTTP.
package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/editor"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/generate"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/snippets"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	AllowAll bool // allow all CORS origins (dev mode)

	// TrialLimit caps generations when > 0; the counter lives in the
	// record store. Bootstrapping from a share code bypasses it.
	TrialLimit int
}

// Server wires the generation pipeline, record store and discussion
// provider behind a chi router.
type Server struct {
	cfg        Config
	orch       *generate.Orchestrator
	records    *storage.Records
	index      *snippets.Index
	provider   llm.StreamProvider
	model      string
	router     chi.Router
	httpServer *http.Server

	// One editing session at a time; it opens only while the pipeline
	// is idle and a new generation run discards it.
	editMu      sync.Mutex
	editSession *editor.Editor
}

// New creates a Server with all dependencies. The snippet index may be
// nil; snippet search then falls back to the persisted list.
func New(cfg Config, orch *generate.Orchestrator, records *storage.Records, index *snippets.Index, provider llm.StreamProvider, model string) *Server {
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		records:  records,
		index:    index,
		provider: provider,
		model:    model,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/bootstrap", s.handleBootstrap)
	r.Post("/api/cases", s.handleGenerate)
	r.Get("/api/cases", s.handleListCases)
	r.Post("/api/cases/save", s.handleSaveCase)
	r.Get("/api/cases/{id}", s.handleGetCase)
	r.Delete("/api/cases/{id}", s.handleDeleteCase)
	r.Get("/api/cases/{id}/export", s.handleExportCase)
	r.Get("/api/history", s.handleHistory)
	r.Post("/api/editor", s.handleOpenEditor)
	r.Post("/api/editor/ops", s.handleEditOp)
	r.Post("/api/editor/commit", s.handleCommitEditor)
	r.Delete("/api/editor", s.handleDiscardEditor)
	r.Post("/api/share", s.handleEncodeShare)
	r.Get("/api/share/{code}", s.handleDecodeShare)
	r.Get("/api/snippets", s.handleSearchSnippets)
	r.Post("/api/snippets", s.handleAddSnippet)
	r.Delete("/api/snippets/{id}", s.handleDeleteSnippet)
	r.Get("/ws/discussion", s.handleDiscussion)

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ungana server listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
