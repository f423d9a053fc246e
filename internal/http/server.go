// Package http serves health checks and Prometheus metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"odeslibot/internal/core"
)

const (
	serviceName     = "odeslibot"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
	ready   *atomic.Bool
}

// Metrics collects bot activity on a private registry.
type Metrics struct {
	registry           *prometheus.Registry
	MessagesTotal      *prometheus.CounterVec
	InlineQueriesTotal *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	CacheLookupsTotal  *prometheus.CounterVec
	ThrottlesTotal     prometheus.Counter
	ProcessingTime     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odeslibot_messages_total",
				Help: "Total number of chat messages handled, by outcome",
			},
			[]string{"frontend", "outcome"},
		),
		InlineQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odeslibot_inline_queries_total",
				Help: "Total number of inline queries answered, by outcome",
			},
			[]string{"frontend", "outcome"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odeslibot_resolutions_total",
				Help: "Total number of link lookups, by result",
			},
			[]string{"result"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odeslibot_cache_lookups_total",
				Help: "Total number of song cache lookups",
			},
			[]string{"result"},
		),
		ThrottlesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "odeslibot_throttles_total",
				Help: "Total number of rate limit responses from the resolution service",
			},
		),
		ProcessingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "odeslibot_processing_duration_seconds",
				Help:    "Time spent handling a message or inline query",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"frontend"},
		),
	}

	m.registry.MustRegister(
		m.MessagesTotal,
		m.InlineQueriesTotal,
		m.ResolutionsTotal,
		m.CacheLookupsTotal,
		m.ThrottlesTotal,
		m.ProcessingTime,
	)

	return m
}

// RegisterCacheSize exports the number of cached songs.
func (m *Metrics) RegisterCacheSize(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "odeslibot_cache_entries",
			Help: "Current number of cached songs",
		},
		func() float64 { return float64(size()) },
	))
}

// RegisterSeenSize exports the number of remembered update ids.
func (m *Metrics) RegisterSeenSize(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "odeslibot_seen_updates",
			Help: "Current number of remembered update ids",
		},
		func() float64 { return float64(size()) },
	))
}

func (m *Metrics) RecordMessage(frontend, outcome string) {
	m.MessagesTotal.WithLabelValues(frontend, outcome).Inc()
}

func (m *Metrics) RecordInlineQuery(frontend, outcome string) {
	m.InlineQueriesTotal.WithLabelValues(frontend, outcome).Inc()
}

func (m *Metrics) RecordProcessingTime(frontend string, d time.Duration) {
	m.ProcessingTime.WithLabelValues(frontend).Observe(d.Seconds())
}

func (m *Metrics) ObserveResolution(outcome string) {
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveThrottle() {
	m.ThrottlesTotal.Inc()
}

func NewServer(config *core.ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	ready := &atomic.Bool{}

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, setupRoutes(metrics, ready, logger)),
		metrics: metrics,
		ready:   ready,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(metrics *Metrics, ready *atomic.Bool, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", logger)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, "starting", logger)
			return
		}
		writeStatus(w, http.StatusOK, "ready", logger)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))

	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := fmt.Fprintf(w, `{"status":%q,"service":%q}`, status, serviceName); err != nil {
		logger.Debug("Failed to write status response", zap.Error(err))
	}
}

// SetReady switches the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
