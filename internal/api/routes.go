package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tblake/finboard/backend/internal/api/handlers"
	"github.com/tblake/finboard/backend/internal/cache"
	"github.com/tblake/finboard/backend/internal/config"
	"github.com/tblake/finboard/backend/internal/middleware"
	"github.com/tblake/finboard/backend/internal/ratelimit"
)

// Deps carries everything the router needs.
type Deps struct {
	Market        handlers.MarketData
	Watchlist     handlers.WatchlistStore
	Alerts        handlers.AlertStore
	QuoteCache    *cache.Store
	ResponseCache cache.ByteCache
	RateLimits    *ratelimit.Manager
	Hub           *handlers.Hub
}

// NewRouter wires all routes with the middleware stack.
func NewRouter(deps Deps) *mux.Router {
	cfg := config.Load()
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Compress)

	// Operational endpoints sit outside the rate-limited API surface
	r.HandleFunc("/healthz", handlers.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Market data
	market := r.PathPrefix("/api").Subrouter()
	if cfg.EnableRateLimit {
		market.Use(middleware.RateLimit(deps.RateLimits, "market"))
	}
	if cfg.EnableResponseCache && deps.ResponseCache != nil {
		market.Use(middleware.ResponseCache(deps.ResponseCache, cfg.ResponseCacheTTL))
	}
	market.HandleFunc("/quotes/{symbol}", handlers.GetQuote(deps.Market)).Methods("GET")
	market.HandleFunc("/quotes", handlers.GetQuotes(deps.Market)).Methods("GET")
	market.HandleFunc("/history/{symbol}", handlers.GetHistory(deps.Market)).Methods("GET")

	// Watchlist and alerts under the general API policy
	general := r.PathPrefix("/api").Subrouter()
	if cfg.EnableRateLimit {
		general.Use(middleware.RateLimit(deps.RateLimits, ratelimit.DefaultEndpoint))
	}
	general.HandleFunc("/watchlist", handlers.GetWatchlist(deps.Watchlist)).Methods("GET")
	general.HandleFunc("/watchlist", handlers.PostWatchlist(deps.Watchlist)).Methods("POST")
	general.HandleFunc("/watchlist/{id}", handlers.DeleteWatchlist(deps.Watchlist)).Methods("DELETE")
	general.HandleFunc("/alerts", handlers.GetAlerts(deps.Alerts)).Methods("GET")
	general.HandleFunc("/alerts", handlers.PostAlert(deps.Alerts)).Methods("POST")
	general.HandleFunc("/alerts/{id}", handlers.DeleteAlert(deps.Alerts)).Methods("DELETE")
	general.HandleFunc("/alerts/{id}/reset", handlers.PostAlertReset(deps.Alerts)).Methods("POST")

	// Admin
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(AdminOnly)
	if cfg.EnableRateLimit {
		admin.Use(middleware.RateLimit(deps.RateLimits, ratelimit.DefaultEndpoint))
	}
	cacheAdmin := handlers.NewCacheAdminHandler(deps.QuoteCache, deps.ResponseCache)
	admin.HandleFunc("/cache/stats", cacheAdmin.GetCacheStats).Methods("GET")
	admin.HandleFunc("/cache/invalidate", cacheAdmin.InvalidateCache).Methods("POST")
	admin.HandleFunc("/cache/expired", cacheAdmin.GetExpiredKeys).Methods("GET")
	admin.HandleFunc("/cache/cleanup", cacheAdmin.PostCacheCleanup).Methods("POST")
	rlAdmin := handlers.NewRateLimitAdminHandler(deps.RateLimits)
	admin.HandleFunc("/ratelimit/status", rlAdmin.GetStatus).Methods("GET")
	admin.HandleFunc("/ratelimit/reset", rlAdmin.PostReset).Methods("POST")

	// Websocket quote stream; the chat policy keeps reconnect storms in check
	if deps.Hub != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		if cfg.EnableRateLimit {
			ws.Use(middleware.RateLimit(deps.RateLimits, "chat"))
		}
		ws.HandleFunc("/quotes", handlers.ServeWS(deps.Hub)).Methods("GET")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return r
}
