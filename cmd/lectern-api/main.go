package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
	"github.com/lectern-ai/lectern/internal/tasks"
)

func main() {
	// A missing .env is fine; the environment may be set by the host.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "lectern-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("task_store", cfg.Tasks.Store).
		Msg("Starting Lectern API")

	ctx := context.Background()

	db, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	store, closeStore, err := newTaskStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create task store")
	}
	defer closeStore()

	recorder := ledger.NewRecorder(db, logger)
	factory := tasks.NewProviderFactory(cfg, db, recorder, logger)
	orchestrator := tasks.NewOrchestrator(store, factory, db, cfg.Tasks.MaxConcurrent, cfg.Pipeline.WorkDir, logger)

	router := NewRouter(cfg, logger, db, store, orchestrator)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	// Let running generations finish writing their artifacts.
	orchestrator.Wait()

	logger.Info().Msg("Server stopped")
}

// newTaskStore builds the configured task store. The Redis store keeps
// task records across restarts; the memory store is the development
// default.
func newTaskStore(cfg *config.Config) (tasks.Store, func(), error) {
	if cfg.Tasks.Store == "redis" {
		store, err := tasks.NewRedisStore(cfg.Tasks.Redis, cfg.Tasks.Retention)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return tasks.NewMemoryStore(), func() {}, nil
}
