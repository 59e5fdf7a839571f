package main

import (
	"fmt"
	"log/slog"

	"github.com/MD412/project-arceus/internal/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API over HTTP",
		Long: `Expose the local database through the REST API so that other machines
can run 'arceus review --backend http://host:port'.

Prometheus metrics are served on /metrics and a liveness probe on /healthz.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := api.NewServer(store, registry, api.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	slog.Info("Serving review API",
		"addr", appConfig.Server.Addr,
		"database", store.Path())

	return srv.ListenAndServe(ctx, appConfig.Server.Addr)
}
