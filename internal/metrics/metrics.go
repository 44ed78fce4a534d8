// Package metrics exposes Prometheus instrumentation for TeamLedger.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/config"
)

// Metrics holds all Prometheus collectors for the server.
type Metrics struct {
	registry *prometheus.Registry

	authzDecisions  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	sessionsSwept   prometheus.Counter
	exportsFinished *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamledger_authz_decisions_total",
			Help: "Authorization decisions by outcome and denial reason.",
		}, []string{"allowed", "reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamledger_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamledger_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamledger_sessions_swept_total",
			Help: "Expired sessions removed by the background sweeper.",
		}),
		exportsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamledger_exports_total",
			Help: "Item exports by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.authzDecisions,
		m.httpRequests,
		m.httpDuration,
		m.sessionsSwept,
		m.exportsFinished,
	)

	return m
}

// RecordDecision implements authz.DecisionRecorder.
func (m *Metrics) RecordDecision(allowed bool, reason string) {
	m.authzDecisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// RecordRequest records a finished HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSessionsSwept records expired sessions removed by the sweeper.
func (m *Metrics) RecordSessionsSwept(n int64) {
	m.sessionsSwept.Add(float64(n))
}

// RecordExport records a finished item export.
func (m *Metrics) RecordExport(outcome string) {
	m.exportsFinished.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server wraps a dedicated HTTP server for the metrics endpoint.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server on the configured port.
func NewServer(cfg config.MetricsConfig, m *Metrics, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics_server").Logger(),
	}
}

// Start starts the metrics server. Blocks until the server exits.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("metrics server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
