package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := Load()

	if cfg.CacheMaxSize != 1000 {
		t.Errorf("CacheMaxSize = %d, want 1000", cfg.CacheMaxSize)
	}
	if cfg.CacheDefaultTTL != 5*time.Minute {
		t.Errorf("CacheDefaultTTL = %v, want 5m", cfg.CacheDefaultTTL)
	}
	if cfg.CacheCleanupInterval != time.Minute {
		t.Errorf("CacheCleanupInterval = %v, want 1m", cfg.CacheCleanupInterval)
	}
	if !cfg.CacheEnableStats {
		t.Error("CacheEnableStats should default to true")
	}
	if cfg.RateLimitAPIMax != 100 || cfg.RateLimitAPIWindow != time.Minute {
		t.Errorf("API rate limit defaults = %d/%v", cfg.RateLimitAPIMax, cfg.RateLimitAPIWindow)
	}
	if cfg.RateLimitAuthMax != 5 {
		t.Errorf("RateLimitAuthMax = %d, want 5", cfg.RateLimitAuthMax)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Error("expected default CORS origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	t.Setenv("CACHE_MAX_SIZE", "250")
	t.Setenv("CACHE_DEFAULT_TTL_MS", "60000")
	t.Setenv("RATE_LIMIT_MARKET_MAX", "10")
	t.Setenv("MARKET_API_BASE_URL", "https://example.test/v1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()

	if cfg.CacheMaxSize != 250 {
		t.Errorf("CacheMaxSize = %d, want 250", cfg.CacheMaxSize)
	}
	if cfg.CacheDefaultTTL != time.Minute {
		t.Errorf("CacheDefaultTTL = %v, want 1m", cfg.CacheDefaultTTL)
	}
	if cfg.RateLimitMarketMax != 10 {
		t.Errorf("RateLimitMarketMax = %d, want 10", cfg.RateLimitMarketMax)
	}
	if cfg.MarketBaseURL != "https://example.test/v1" {
		t.Errorf("MarketBaseURL = %q", cfg.MarketBaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.example.com" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadCaches(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := Load()
	second := Load()
	if first != second {
		t.Error("Load should return the cached config on repeat calls")
	}
}
