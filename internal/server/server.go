// Package server exposes the ingestion and QA pipeline over HTTP:
// document upload, per-user document listing, stored analyses, and
// chat (request/response and WebSocket).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/claro-ai/claro/internal/pipeline"
	"github.com/claro-ai/claro/internal/store"
	"github.com/claro-ai/claro/internal/summarizer"
	"github.com/claro-ai/claro/internal/textcache"
)

// Config holds server configuration.
type Config struct {
	Port          int
	AllowAll      bool // allow all CORS origins (dev mode)
	HistoryWindow int  // chat turns loaded per WebSocket message
}

// Server is the claro HTTP API server.
type Server struct {
	cfg        Config
	store      store.Store
	pipe       *pipeline.Pipeline
	texts      *textcache.Cache
	summarizer *summarizer.Summarizer
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, st store.Store, pipe *pipeline.Pipeline, texts *textcache.Cache, sum *summarizer.Summarizer) *Server {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	s := &Server{
		cfg:        cfg,
		store:      st,
		pipe:       pipe,
		texts:      texts,
		summarizer: sum,
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
	r.Use(middleware.Timeout(120 * time.Second))

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

	r.Post("/documents/upload", s.handleUpload)
	r.Get("/documents/user/{userID}", s.handleUserDocuments)
	r.Get("/analysis/{docID}", s.handleAnalysis)
	r.Post("/chat/user", s.handleChat)
	r.Get("/chat/ws", s.handleWebSocket)

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
		WriteTimeout:      300 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("claro server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
