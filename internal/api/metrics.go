package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the review API.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActionsTotal     *prometheus.CounterVec
	CardsApproved    prometheus.Counter
	CorrectionsTotal prometheus.Counter
	registry         *prometheus.Registry
}

// NewMetrics creates the API metrics and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arceus_http_requests_total",
		Help: "Total number of API requests by route and status code",
	}, []string{"method", "route", "status"})

	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arceus_http_request_duration_seconds",
		Help:    "API request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arceus_review_actions_total",
		Help: "Review actions applied to scans by action and result",
	}, []string{"action", "result"})

	m.CardsApproved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arceus_cards_approved_total",
		Help: "Collection entries created by scan approvals",
	})

	m.CorrectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arceus_detection_corrections_total",
		Help: "Detections relinked to a different card",
	})

	for _, c := range []prometheus.Collector{
		m.RequestsTotal, m.RequestDuration, m.ActionsTotal, m.CardsApproved, m.CorrectionsTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register API metrics: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// recordAction counts one review action.
func (m *Metrics) recordAction(action string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ActionsTotal.WithLabelValues(action, result).Inc()
}

// middleware records request counts and latency per route pattern.
func (m *Metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method

		m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
