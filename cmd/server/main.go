package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/filmlake/ingest/internal/config"
	"github.com/filmlake/ingest/internal/database"
	"github.com/filmlake/ingest/internal/ingest"
	"github.com/filmlake/ingest/internal/logging"
	"github.com/filmlake/ingest/internal/storage"
	"github.com/filmlake/ingest/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()
	logger.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Migrate {
		if err := database.MigrateUp(cfg.Database.URL, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL,
		int32(cfg.Database.MaxConns), int32(cfg.Database.MinConns))
	if err != nil {
		return fmt.Errorf("connect warehouse: %w", err)
	}
	defer pool.Close()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	service := ingest.NewService(pool, store, ingest.Options{
		Bucket:             cfg.Storage.Bucket,
		SourcePrefix:       cfg.Ingest.SourcePrefix,
		MaxFileSize:        cfg.Ingest.MaxFileSize,
		BatchSize:          cfg.Ingest.BatchSize,
		MaxConcurrentLoads: cfg.Ingest.MaxConcurrentLoads,
		LoadWait:           cfg.Ingest.LoadWait,
	})

	server := web.NewServer(service, cfg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildStore selects the object store backend from configuration.
func buildStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Driver {
	case "fs":
		return storage.NewFSStore(cfg.Storage.FSRoot)
	default:
		store, err := storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Secure:    cfg.Storage.Secure,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx, cfg.Storage.Bucket); err != nil {
			return nil, err
		}
		return store, nil
	}
}
