package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_cache_hits_total",
			Help: "Total number of quote cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_cache_misses_total",
			Help: "Total number of quote cache misses",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_evictions_total",
			Help: "Total number of cache entries removed by cleanup",
		},
		[]string{"reason"}, // reason: expired, lru
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_cache_entries",
			Help: "Current number of entries in the quote cache",
		},
	)

	CacheStaleFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_cache_stale_fallbacks_total",
			Help: "Total number of expired entries served after a batch fetch failure",
		},
	)

	// Rate limiter metrics
	RateLimitAllowed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		},
		[]string{"endpoint"},
	)

	RateLimitDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_denied_total",
			Help: "Total number of requests denied by the rate limiter",
		},
		[]string{"endpoint"},
	)

	RateLimitWindows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_active_windows",
			Help: "Number of active rate limit windows per endpoint",
		},
		[]string{"endpoint"},
	)

	// Upstream market data API metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_http_requests_total",
			Help: "Total number of HTTP requests made to the market data API",
		},
		[]string{"status"}, // status: success, retry, error
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_http_retries_total",
			Help: "Total number of upstream HTTP request retries",
		},
	)

	UpstreamThrottleWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_throttle_waits_total",
			Help: "Total number of times the client waited on the upstream throttle",
		},
	)

	UpstreamRetryAfterWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"name"},
	)

	// Alert job metrics
	AlertsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_evaluated_total",
			Help: "Total number of price alerts evaluated",
		},
	)

	AlertsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total number of price alerts triggered",
		},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)
