package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MD412/project-arceus/internal/api"
	"github.com/MD412/project-arceus/internal/config"
	"github.com/MD412/project-arceus/internal/resilience"
	"github.com/MD412/project-arceus/internal/service"
	"github.com/MD412/project-arceus/internal/storage"
)

// errRemoteUnsupported is returned by commands that need direct database access.
var errRemoteUnsupported = errors.New("command requires a local database; unset backend.url")

// initStorage opens the local database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	if cfg.Backend.Remote() {
		return nil, errRemoteUnsupported
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initBackend returns the review backend for the configured mode: a REST
// client when backend.url is set, the local database otherwise. The returned
// func releases it.
func initBackend(ctx context.Context, cfg *config.Config) (service.ReviewBackend, func(), error) {
	if !cfg.Backend.Remote() {
		store, err := initStorage(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close storage", "error", err)
			}
		}, nil
	}

	httpClient := &http.Client{Timeout: cfg.Backend.Timeout}
	client, err := api.NewClient(cfg.Backend.URL,
		api.WithHTTPClient(httpClient),
		api.WithExecutor(resilience.NewExecutor(cfg.Resilience)),
		api.WithSearchRateLimit(cfg.Search.RateLimit, cfg.Search.Burst),
		api.WithSearchCacheTTL(cfg.Search.CacheTTL),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	slog.Debug("Using remote backend", "url", cfg.Backend.URL)
	return client, httpClient.CloseIdleConnections, nil
}
