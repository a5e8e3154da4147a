package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nearme",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Discovery metrics
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "discovery",
		Name:      "searches_total",
		Help:      "Searches by final status (results, empty, failed, superseded)",
	}, []string{"status"})

	StaleCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "discovery",
		Name:      "stale_completions_total",
		Help:      "Gateway completions discarded because a newer search had started",
	})

	MalformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "discovery",
		Name:      "malformed_payloads_total",
		Help:      "Provider candidates dropped for missing required fields",
	})

	SelectionChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "discovery",
		Name:      "selection_changes_total",
		Help:      "Select and clear-selection operations applied",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nearme",
		Subsystem: "discovery",
		Name:      "active_sessions",
		Help:      "Current number of open discovery sessions",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nearme",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Gateway metrics
	GatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nearme",
		Subsystem: "gateway",
		Name:      "search_duration_seconds",
		Help:      "Duration of search provider calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "gateway",
		Name:      "errors_total",
		Help:      "Search provider calls that failed, timed out or were cancelled",
	}, []string{"provider"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nearme",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
