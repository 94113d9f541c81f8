// Package main provides the Lectern API server entrypoint.
package main

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lectern-ai/lectern/cmd/lectern-api/handlers"
	"github.com/lectern-ai/lectern/cmd/lectern-api/middleware"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
	"github.com/lectern-ai/lectern/internal/tasks"
)

// NewRouter wires the API routes over the shared dependencies.
func NewRouter(cfg *config.Config, logger *observability.Logger, db storage.DB, store tasks.Store, orchestrator *tasks.Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"lectern"}`))
	})

	reporter := ledger.NewReporter(db)
	uploadDir := filepath.Join(cfg.Pipeline.WorkDir, "uploads")

	uploadHandler := handlers.NewUploadHandler(logger, orchestrator, uploadDir, cfg.Server.MaxUploadBytes)
	taskHandler := handlers.NewTaskHandler(logger, store)
	settingsHandler := handlers.NewSettingsHandler(logger, db)
	usageHandler := handlers.NewUsageHandler(logger, reporter)
	userHandler := handlers.NewUserHandler(logger, reporter, db)
	presentationHandler := handlers.NewPresentationHandler(logger, db)

	r.Route("/api", func(r chi.Router) {
		r.Post("/uploads", uploadHandler.Upload)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Get("/{taskID}", taskHandler.Get)
			r.Get("/{taskID}/download/{kind}", taskHandler.Download)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/keys", settingsHandler.GetKeys)
			r.Put("/keys", settingsHandler.PutKeys)
		})

		r.Route("/usage", func(r chi.Router) {
			r.Get("/", usageHandler.Global)
			r.Get("/{sessionID}", usageHandler.Session)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Get("/{userName}", userHandler.Get)
		})

		r.Get("/presentations", presentationHandler.List)
	})

	return r
}
