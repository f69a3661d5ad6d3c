// Package marketdata is the client for the upstream finance API. All reads go
// through the quote cache so the free-tier upstream quota is spent only on
// misses, and a token bucket plus circuit breaker shield the provider from
// bursts and us from a flapping provider.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tblake/finboard/backend/internal/cache"
	"github.com/tblake/finboard/backend/internal/circuitbreaker"
	"github.com/tblake/finboard/backend/internal/config"
	"github.com/tblake/finboard/backend/internal/httpx"
	"github.com/tblake/finboard/backend/internal/logger"
	"github.com/tblake/finboard/backend/internal/metrics"
)

// Quote is a real-time price snapshot for one symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Current       float64   `json:"current"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PrevClose     float64   `json:"prev_close"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candles holds OHLCV history for one symbol.
type Candles struct {
	Symbol     string    `json:"symbol"`
	Resolution string    `json:"resolution"`
	Open       []float64 `json:"open"`
	High       []float64 `json:"high"`
	Low        []float64 `json:"low"`
	Close      []float64 `json:"close"`
	Volume     []float64 `json:"volume"`
	Timestamps []int64   `json:"timestamps"`
}

// quoteResponse is the provider's wire format for /quote.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// candleResponse is the provider's wire format for /stock/candle.
type candleResponse struct {
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []float64 `json:"v"`
	Timestamps []int64   `json:"t"`
	Status     string    `json:"s"`
}

// Client fetches quotes and candles from the upstream provider through the
// shared quote cache.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	throttle   *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	store      *cache.Store
	quoteTTL   time.Duration
	candleTTL  time.Duration
	log        *slog.Logger
}

// NewClient builds a client from config, sharing the given cache store.
func NewClient(store *cache.Store) *Client {
	cfg := config.Load()
	return &Client{
		baseURL:    strings.TrimRight(cfg.MarketBaseURL, "/"),
		apiKey:     cfg.MarketAPIKey,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		throttle:   rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurstSize),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name: "marketdata",
		}),
		store:     store,
		quoteTTL:  cfg.QuoteTTL,
		candleTTL: cfg.CandleTTL,
		log:       logger.WithComponent("marketdata"),
	}
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func candleKey(symbol, resolution string, from, to int64) string {
	return fmt.Sprintf("candles:%s:%s:%d:%d", symbol, resolution, from, to)
}

// NormalizeSymbol uppercases and trims a user-supplied ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns the quote for one symbol, served from cache when fresh.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol)
	v, err := c.store.GetOrSet(ctx, quoteKey(symbol), func(ctx context.Context) (interface{}, error) {
		return c.fetchQuote(ctx, symbol)
	}, c.quoteTTL)
	if err != nil {
		return nil, err
	}
	q, ok := v.(*Quote)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value for %s: %T", symbol, v)
	}
	return q, nil
}

// GetQuotes returns quotes for several symbols at once. Cached symbols are
// served without touching the upstream; on a fetch failure, expired cached
// quotes are returned rather than nothing.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) map[string]*Quote {
	keys := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		keys = append(keys, quoteKey(s))
	}

	got := c.store.BatchGet(ctx, keys, func(ctx context.Context, missing []string) (map[string]interface{}, error) {
		fetched := make(map[string]interface{}, len(missing))
		for _, key := range missing {
			symbol := strings.TrimPrefix(key, "quote:")
			q, err := c.fetchQuote(ctx, symbol)
			if err != nil {
				// Partial results are still useful; a total failure
				// lets BatchGet fall back to stale entries.
				if len(fetched) == 0 {
					return nil, err
				}
				c.log.Warn("batch quote fetch incomplete", "symbol", symbol, "error", err)
				continue
			}
			fetched[key] = q
		}
		return fetched, nil
	}, c.quoteTTL)

	out := make(map[string]*Quote, len(got))
	for key, v := range got {
		if q, ok := v.(*Quote); ok {
			out[strings.TrimPrefix(key, "quote:")] = q
		}
	}
	return out
}

// GetCandles returns OHLCV history, cached with the longer candle TTL.
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, from, to int64) (*Candles, error) {
	symbol = NormalizeSymbol(symbol)
	v, err := c.store.GetOrSet(ctx, candleKey(symbol, resolution, from, to), func(ctx context.Context) (interface{}, error) {
		return c.fetchCandles(ctx, symbol, resolution, from, to)
	}, c.candleTTL)
	if err != nil {
		return nil, err
	}
	cs, ok := v.(*Candles)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value for %s: %T", symbol, v)
	}
	return cs, nil
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var wire quoteResponse
	params := url.Values{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/quote", params, &wire); err != nil {
		return nil, err
	}
	// The provider returns an all-zero quote for unknown symbols
	if wire.Current == 0 && wire.Timestamp == 0 {
		return nil, &APIError{Type: ErrorSymbolUnknown, Message: "no data for symbol " + symbol}
	}
	return &Quote{
		Symbol:        symbol,
		Current:       wire.Current,
		Change:        wire.Change,
		PercentChange: wire.PercentChange,
		High:          wire.High,
		Low:           wire.Low,
		Open:          wire.Open,
		PrevClose:     wire.PrevClose,
		Timestamp:     time.Unix(wire.Timestamp, 0).UTC(),
	}, nil
}

func (c *Client) fetchCandles(ctx context.Context, symbol, resolution string, from, to int64) (*Candles, error) {
	var wire candleResponse
	params := url.Values{
		"symbol":     {symbol},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from, 10)},
		"to":         {strconv.FormatInt(to, 10)},
	}
	if err := c.getJSON(ctx, "/stock/candle", params, &wire); err != nil {
		return nil, err
	}
	if wire.Status == "no_data" {
		return nil, &APIError{Type: ErrorNotFound, Message: "no candle data for " + symbol}
	}
	return &Candles{
		Symbol:     symbol,
		Resolution: resolution,
		Open:       wire.Open,
		High:       wire.High,
		Low:        wire.Low,
		Close:      wire.Close,
		Volume:     wire.Volume,
		Timestamps: wire.Timestamps,
	}, nil
}

// getJSON performs a throttled, retried, breaker-guarded GET and decodes the
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.breaker.Call(func() error {
		resp, err := httpx.DoWithRetry(c.httpClient, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", c.userAgent)
			if c.apiKey != "" {
				req.Header.Set("X-Finnhub-Token", c.apiKey)
			}
			return req, nil
		}, c.waitThrottle)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return ClassifyError(resp)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// waitThrottle blocks on the token bucket before each attempt.
func (c *Client) waitThrottle(ctx context.Context, attempt int) error {
	if c.throttle.Allow() {
		return nil
	}
	metrics.UpstreamThrottleWaits.Inc()
	return c.throttle.Wait(ctx)
}
