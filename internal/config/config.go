package config

import (
	"os"
	"strings"
	"time"

	"github.com/tblake/finboard/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Upstream market data provider
	MarketBaseURL  string
	MarketAPIKey   string
	UserAgent      string
	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool
	// Upstream throttle (requests per second to the finance API)
	UpstreamRPS       float64
	UpstreamBurstSize int
	// Quote cache
	CacheMaxSize         int
	CacheDefaultTTL      time.Duration
	CacheCleanupInterval time.Duration
	CacheEnableStats     bool
	QuoteTTL             time.Duration
	CandleTTL            time.Duration
	// Response cache (serialized payloads)
	ResponseCacheMaxMB    int
	ResponseCacheEntries  int
	ResponseCacheTTL      time.Duration
	EnableResponseCache   bool
	// Rate limiting policies (fixed window)
	EnableRateLimit       bool
	RateLimitAPIMax       int
	RateLimitAPIWindow    time.Duration
	RateLimitAuthMax      int
	RateLimitAuthWindow   time.Duration
	RateLimitChatMax      int
	RateLimitChatWindow   time.Duration
	RateLimitMarketMax    int
	RateLimitMarketWindow time.Duration
	// Alert evaluation
	AlertCheckInterval time.Duration
	DisableAlertJob    bool
	// Admin API token for gating admin endpoints (Bearer token)
	AdminAPIToken string
	// HTTP surface
	CORSAllowedOrigins []string
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("FINBOARD_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "finboard/0.1"
	}
	base := strings.TrimSpace(os.Getenv("MARKET_API_BASE_URL"))
	if base == "" {
		base = "https://finnhub.io/api/v1"
	}
	cached = &Config{
		MarketBaseURL:  base,
		MarketAPIKey:   strings.TrimSpace(os.Getenv("MARKET_API_KEY")),
		UserAgent:      ua,
		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:  utils.GetEnvAsDurationMs("HTTP_RETRY_BASE_MS", 300*time.Millisecond),
		HTTPTimeout:    utils.GetEnvAsDurationMs("HTTP_TIMEOUT_MS", 15000*time.Millisecond),
		LogHTTPRetries: utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),
		// Most free-tier finance APIs allow ~1 request/second sustained
		UpstreamRPS:       utils.GetEnvAsFloat("UPSTREAM_RPS", 1.0),
		UpstreamBurstSize: utils.GetEnvAsInt("UPSTREAM_BURST_SIZE", 5),
		// Cache defaults: 1000 entries, 5 minute TTL, cleanup every minute
		CacheMaxSize:         utils.GetEnvAsInt("CACHE_MAX_SIZE", 1000),
		CacheDefaultTTL:      utils.GetEnvAsDurationMs("CACHE_DEFAULT_TTL_MS", 5*time.Minute),
		CacheCleanupInterval: utils.GetEnvAsDurationMs("CACHE_CLEANUP_INTERVAL_MS", time.Minute),
		CacheEnableStats:     utils.GetEnvAsBool("CACHE_ENABLE_STATS", true),
		QuoteTTL:             utils.GetEnvAsDurationMs("QUOTE_TTL_MS", time.Minute),
		CandleTTL:            utils.GetEnvAsDurationMs("CANDLE_TTL_MS", 15*time.Minute),
		ResponseCacheMaxMB:   utils.GetEnvAsInt("RESPONSE_CACHE_MAX_MB", 64),
		ResponseCacheEntries: utils.GetEnvAsInt("RESPONSE_CACHE_ENTRIES", 5000),
		ResponseCacheTTL:     utils.GetEnvAsDurationMs("RESPONSE_CACHE_TTL_MS", 5*time.Minute),
		EnableResponseCache:  utils.GetEnvAsBool("ENABLE_RESPONSE_CACHE", true),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		// Fixed-window policies: tight for auth, medium for chat and market
		// data, loose for generic API traffic
		RateLimitAPIMax:       utils.GetEnvAsInt("RATE_LIMIT_API_MAX", 100),
		RateLimitAPIWindow:    utils.GetEnvAsDurationMs("RATE_LIMIT_API_WINDOW_MS", time.Minute),
		RateLimitAuthMax:      utils.GetEnvAsInt("RATE_LIMIT_AUTH_MAX", 5),
		RateLimitAuthWindow:   utils.GetEnvAsDurationMs("RATE_LIMIT_AUTH_WINDOW_MS", 15*time.Minute),
		RateLimitChatMax:      utils.GetEnvAsInt("RATE_LIMIT_CHAT_MAX", 20),
		RateLimitChatWindow:   utils.GetEnvAsDurationMs("RATE_LIMIT_CHAT_WINDOW_MS", time.Minute),
		RateLimitMarketMax:    utils.GetEnvAsInt("RATE_LIMIT_MARKET_MAX", 30),
		RateLimitMarketWindow: utils.GetEnvAsDurationMs("RATE_LIMIT_MARKET_WINDOW_MS", time.Minute),
		AlertCheckInterval:    utils.GetEnvAsDurationMs("ALERT_CHECK_INTERVAL_MS", time.Minute),
		DisableAlertJob:       utils.GetEnvAsBool("DISABLE_ALERT_JOB", false),
		AdminAPIToken:         strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	// Parse CORS allowed origins
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		// Default to common development origins
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
