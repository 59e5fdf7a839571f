package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MD412/project-arceus/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const apiPrefix = "/api/v1"

// Server serves a review backend over HTTP.
type Server struct {
	echo     *echo.Echo
	backend  service.ReviewBackend
	metrics  *Metrics
	validate *validator.Validate
	logger   *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer builds the HTTP API over backend. Metrics are registered with
// registry, or with a fresh registry when nil.
func NewServer(backend service.ReviewBackend, registry *prometheus.Registry, opts ...ServerOption) (*Server, error) {
	if backend == nil {
		return nil, errors.New("api: backend is required")
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		echo:     echo.New(),
		backend:  backend,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.metrics.middleware)
	s.echo.Use(s.requestLogger)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	g := s.echo.Group(apiPrefix)
	g.GET("/inbox", s.listPending)
	g.GET("/history", s.listHistory)
	g.GET("/cards/search", s.searchCards)
	g.GET("/scans/:id/detections", s.listDetections)
	g.POST("/scans/:id/approve", s.approveScan)
	g.POST("/scans/:id/reject", s.rejectScan)
	g.PUT("/scans/:id/status", s.updateStatus)
	g.PATCH("/scans/:id", s.renameScan)
	g.DELETE("/scans/:id", s.deleteScan)
	g.PUT("/detections/:id/card", s.correctDetection)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	<-errCh
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		s.logger.Debug("HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start))
		return err
	}
}
