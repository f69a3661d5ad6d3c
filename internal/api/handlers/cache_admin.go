package handlers

import (
	"net/http"

	"github.com/tblake/finboard/backend/internal/cache"
)

// CacheAdminHandler handles cache administration endpoints.
type CacheAdminHandler struct {
	quotes    *cache.Store
	responses cache.ByteCache
}

// NewCacheAdminHandler creates a new cache admin handler.
func NewCacheAdminHandler(quotes *cache.Store, responses cache.ByteCache) *CacheAdminHandler {
	return &CacheAdminHandler{quotes: quotes, responses: responses}
}

// GetCacheStats returns current quote cache statistics.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.quotes.Stats())
}

// InvalidateCache clears the quote cache and the response cache.
// POST /api/admin/cache/invalidate
func (h *CacheAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.quotes.Clear()
	if h.responses != nil {
		h.responses.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "caches invalidated",
	})
}

// GetExpiredKeys lists entries past their TTL that cleanup has not removed yet.
// GET /api/admin/cache/expired
func (h *CacheAdminHandler) GetExpiredKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.quotes.ExpiredKeys()
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

// PostCacheCleanup forces an immediate expiry and LRU sweep.
// POST /api/admin/cache/cleanup
func (h *CacheAdminHandler) PostCacheCleanup(w http.ResponseWriter, r *http.Request) {
	h.quotes.ForceCleanup()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"size":   h.quotes.Size(),
	})
}
