// Package server exposes the billchat HTTP API: bill listings, title
// search, summaries, on-demand vectorization and the chat endpoint.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/chat"
	"github.com/openlegis/billchat/internal/llm"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for cached PDFs
	AllowAll bool   // allow all CORS origins (dev mode)
}

// BillStore is the read surface of the bill database. Satisfied by
// *bills.Store.
type BillStore interface {
	Get(ctx context.Context, key bills.Key) (*bills.Bill, error)
	List(ctx context.Context, sortBy, order string, limit int) ([]bills.Bill, error)
	SearchTitle(ctx context.Context, query string, limit int) ([]bills.Bill, error)
}

// Asker answers questions. Satisfied by *chat.Orchestrator.
type Asker interface {
	Ask(ctx context.Context, key *bills.Key, question string, history []llm.Message) (*chat.Answer, error)
}

// Summarizer produces cached bill summaries. Satisfied by *chat.Summarizer.
type Summarizer interface {
	Summary(ctx context.Context, key bills.Key) (string, error)
}

// Ensurer triggers on-demand indexing. Satisfied by *indexer.Indexer.
type Ensurer interface {
	EnsureIndexed(ctx context.Context, key bills.Key) error
}

// FileFetcher downloads binary assets. Satisfied by *congress.TextFetcher.
type FileFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Deps bundles everything the API handlers need.
type Deps struct {
	Store     BillStore
	Sessions  *chat.SessionStore
	Chat      Asker
	Summaries Summarizer
	Indexer   Ensurer
	Fetcher   FileFetcher
}

// Server is the billchat HTTP server.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
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
	r.Use(middleware.Timeout(60 * time.Second))

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
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/bills", s.handleListBills)
	r.Get("/api/trending-bills", s.handleTrendingBills)
	r.Get("/api/search", s.handleSearch)
	r.Post("/api/chat", s.handleChat)

	r.Route("/api/bills/{congress}/{type}/{number}", func(r chi.Router) {
		r.Get("/", s.handleGetBill)
		r.Get("/pdf", s.handleBillPDF)
		r.Post("/vectorize", s.handleVectorize)
	})
	r.Get("/api/summary/{congress}/{type}/{number}", s.handleSummary)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("billchat server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
