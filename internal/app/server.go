package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/officerag/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/officerag/internal/api/middlewares"
	"github.com/markdave123-py/officerag/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, docs handlers.DocumentStore, queries handlers.Answerer, embeddingModel string) *Server {
	maxUpload := int64(cfg.MaxUploadMB) << 20

	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, docs, queries, embeddingModel, maxUpload),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func newRouter(cfg *config.Config, docs handlers.DocumentStore, queries handlers.Answerer, embeddingModel string, maxUpload int64) http.Handler {
	healthHandler := handlers.NewHealthHandler(cfg, embeddingModel)
	docHandler := handlers.NewDocumentHandler(docs, maxUpload)
	queryHandler := handlers.NewQueryHandler(queries)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(slog.With("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler.Health)
		api.Get("/info", healthHandler.Info)

		api.Route("/documents", func(d chi.Router) {
			d.Get("/", docHandler.GetDocuments)
			d.Get("/{filename}", docHandler.GetDocument)
			d.Delete("/{filename}", docHandler.DeleteDocument)
			d.Post("/upload", docHandler.UploadDocument)
		})

		api.With(appMiddleware.MaxBodySize(1<<20)).Post("/query", queryHandler.Query)
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
