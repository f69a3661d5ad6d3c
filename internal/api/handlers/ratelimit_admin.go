package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tblake/finboard/backend/internal/apierr"
	"github.com/tblake/finboard/backend/internal/ratelimit"
)

// RateLimitAdminHandler exposes rate limiter introspection and resets.
type RateLimitAdminHandler struct {
	manager *ratelimit.Manager
}

func NewRateLimitAdminHandler(m *ratelimit.Manager) *RateLimitAdminHandler {
	return &RateLimitAdminHandler{manager: m}
}

// GetStatus reports every registered policy, or a single identifier's window
// when ?endpoint= and ?identifier= are both given.
// GET /api/admin/ratelimit/status
func (h *RateLimitAdminHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	identifier := r.URL.Query().Get("identifier")

	if endpoint != "" && identifier != "" {
		win, ok := h.manager.Status(endpoint, identifier)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"endpoint":   endpoint,
			"identifier": identifier,
			"active":     ok,
			"count":      win.Count,
			"reset_at":   win.ResetAt,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoints": h.manager.Snapshot(),
	})
}

// PostReset clears one identifier's window under the named policy.
// POST /api/admin/ratelimit/reset
func (h *RateLimitAdminHandler) PostReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Endpoint   string `json:"endpoint"`
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if body.Identifier == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("identifier"))
		return
	}
	if body.Endpoint == "" {
		body.Endpoint = ratelimit.DefaultEndpoint
	}

	h.manager.Reset(body.Endpoint, body.Identifier)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
