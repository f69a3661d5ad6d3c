// Package server wires the application components together.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/tblake/finboard/backend/internal/alerts"
	"github.com/tblake/finboard/backend/internal/api"
	"github.com/tblake/finboard/backend/internal/api/handlers"
	"github.com/tblake/finboard/backend/internal/cache"
	"github.com/tblake/finboard/backend/internal/config"
	"github.com/tblake/finboard/backend/internal/logger"
	"github.com/tblake/finboard/backend/internal/marketdata"
	"github.com/tblake/finboard/backend/internal/ratelimit"
	"github.com/tblake/finboard/backend/internal/store"
)

// Server owns the long-lived components and their lifecycles.
type Server struct {
	Store         *store.Store
	QuoteCache    *cache.Store
	ResponseCache cache.ByteCache
	RateLimits    *ratelimit.Manager
	Market        *marketdata.Client
	Hub           *handlers.Hub

	alertJob *alerts.Job
}

// InitDB connects to Postgres and ensures the schema exists.
func InitDB(ctx context.Context) (*store.Store, error) {
	st, err := store.Init(os.Getenv("DATABASE_URL"))
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// NewRateLimitManager builds the policy registry from config: a general API
// policy as the fallback, plus tight auth, chat, and market policies.
func NewRateLimitManager() *ratelimit.Manager {
	cfg := config.Load()
	m := ratelimit.NewManager(ratelimit.Config{
		Window: cfg.RateLimitAPIWindow,
		Max:    cfg.RateLimitAPIMax,
	})
	m.AddLimiter("auth", ratelimit.Config{
		Window: cfg.RateLimitAuthWindow,
		Max:    cfg.RateLimitAuthMax,
	})
	m.AddLimiter("chat", ratelimit.Config{
		Window: cfg.RateLimitChatWindow,
		Max:    cfg.RateLimitChatMax,
	})
	m.AddLimiter("market", ratelimit.Config{
		Window: cfg.RateLimitMarketWindow,
		Max:    cfg.RateLimitMarketMax,
	})
	return m
}

// NewServer constructs all components from config.
func NewServer(st *store.Store) *Server {
	cfg := config.Load()

	quoteCache := cache.NewStore(cache.Options{
		MaxSize:         cfg.CacheMaxSize,
		DefaultTTL:      cfg.CacheDefaultTTL,
		CleanupInterval: cfg.CacheCleanupInterval,
		DisableStats:    !cfg.CacheEnableStats,
	})

	var responseCache cache.ByteCache
	if cfg.EnableResponseCache {
		rc, err := cache.NewRistretto(int64(cfg.ResponseCacheMaxMB), int64(cfg.ResponseCacheEntries), cfg.ResponseCacheTTL)
		if err != nil {
			logger.Warn("response cache disabled", "error", err)
		} else {
			responseCache = rc
		}
	}

	market := marketdata.NewClient(quoteCache)

	s := &Server{
		Store:         st,
		QuoteCache:    quoteCache,
		ResponseCache: responseCache,
		RateLimits:    NewRateLimitManager(),
		Market:        market,
		Hub:           handlers.NewHub(),
	}
	s.alertJob = alerts.NewJob(market, st, cfg.AlertCheckInterval)
	return s
}

// Router builds the HTTP handler over this server's components.
func (s *Server) Router() *mux.Router {
	return api.NewRouter(api.Deps{
		Market:        s.Market,
		Watchlist:     s.Store,
		Alerts:        s.Store,
		QuoteCache:    s.QuoteCache,
		ResponseCache: s.ResponseCache,
		RateLimits:    s.RateLimits,
		Hub:           s.Hub,
	})
}

// Start launches the background loops: websocket hub, alert evaluation, and
// periodic quote pushes for watchlist symbols.
func (s *Server) Start(ctx context.Context) {
	cfg := config.Load()

	go s.Hub.Run(ctx)

	if !cfg.DisableAlertJob {
		go s.alertJob.Start(ctx, func(tr alerts.Triggered) {
			s.Hub.Broadcast(handlers.StreamMessage{Type: "alert", Payload: tr})
		})
	}

	go s.broadcastQuotes(ctx, cfg.QuoteTTL)
}

// broadcastQuotes pushes fresh watchlist quotes to websocket clients each
// quote TTL. Skipped entirely while nobody is connected.
func (s *Server) broadcastQuotes(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Hub.ClientCount() == 0 {
				continue
			}
			symbols, err := s.Store.WatchlistSymbols(ctx)
			if err != nil {
				logger.Warn("quote broadcast skipped", "error", err)
				continue
			}
			if len(symbols) == 0 {
				continue
			}
			quotes := s.Market.GetQuotes(ctx, symbols)
			if len(quotes) > 0 {
				s.Hub.Broadcast(handlers.StreamMessage{Type: "quotes", Payload: quotes})
			}
		}
	}
}

// Shutdown releases all component resources.
func (s *Server) Shutdown() {
	s.QuoteCache.Destroy()
	s.RateLimits.Stop()
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	}
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
