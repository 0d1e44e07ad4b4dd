package output

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/soctools/logwarden/internal/domain"
)

// PrometheusMetrics exposes pipeline counters over HTTP. Line, parse-error,
// batch and rotation totals are read straight from the shared RunStats via
// CounterFunc, so the hot path never touches a Prometheus client type.
type PrometheusMetrics struct {
	linesProcessed prometheus.CounterFunc
	parseErrors    prometheus.CounterFunc
	batches        prometheus.CounterFunc
	rotations      prometheus.CounterFunc
	findingsByKind *prometheus.CounterVec
	sessionSize    prometheus.GaugeFunc

	server *http.Server
	mu     sync.Mutex
}

type MetricsConfig struct {
	Addr string
	Path string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Addr: ":9090",
		Path: "/metrics",
	}
}

// NewPrometheusMetrics registers all collectors. sessionLen reports the
// current number of tracked addresses; pass nil outside watch mode.
func NewPrometheusMetrics(namespace string, stats *domain.RunStats, sessionLen func() int) *PrometheusMetrics {
	if namespace == "" {
		namespace = "logwarden"
	}

	m := &PrometheusMetrics{}

	m.linesProcessed = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_processed_total",
		Help:      "Total number of log lines processed",
	}, func() float64 {
		return float64(stats.Lines())
	})

	m.parseErrors = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Total number of malformed lines skipped",
	}, func() float64 {
		return float64(stats.ParseErrors())
	})

	m.batches = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Total number of analysis batches completed",
	}, func() float64 {
		return float64(stats.Batches())
	})

	m.rotations = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rotations_total",
		Help:      "Total number of log rotations detected",
	}, func() float64 {
		return float64(stats.Rotations())
	})

	m.findingsByKind = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "findings_total",
		Help:      "Total threat findings by kind",
	}, []string{"kind"})

	m.sessionSize = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_addresses",
		Help:      "Addresses currently tracked in the cumulative session",
	}, func() float64 {
		if sessionLen != nil {
			return float64(sessionLen())
		}
		return 0
	})

	return m
}

// OnBatch implements ports.BatchObserver: each merged batch bumps the
// per-kind finding counters.
func (m *PrometheusMetrics) OnBatch(results map[string]*domain.ScoredResult) {
	for _, res := range results {
		for _, f := range res.Findings {
			m.findingsByKind.WithLabelValues(string(f.Kind)).Inc()
		}
	}
}

func (m *PrometheusMetrics) StartServer(config MetricsConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.Handler())

	m.server = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", config.Addr).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
