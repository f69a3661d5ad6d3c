package ratelimit

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/tblake/finboard/backend/internal/metrics"
)

// DefaultEndpoint is the fallback policy used when a request targets an
// endpoint class with no registered limiter.
const DefaultEndpoint = "api"

// UnknownIdentifier is used when no client address can be derived from the
// request. All unidentifiable callers share this one bucket.
const UnknownIdentifier = "unknown"

// Manager is a registry of independently configured named limiters, one per
// logical endpoint class ("auth", "chat", "market", ...).
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewManager creates a Manager with a general-purpose limiter registered
// under DefaultEndpoint.
func NewManager(defaultCfg Config) *Manager {
	m := &Manager{
		limiters: make(map[string]*Limiter),
	}
	m.limiters[DefaultEndpoint] = NewLimiter(defaultCfg)
	return m
}

// AddLimiter registers a named policy, replacing (and stopping) any limiter
// previously registered under the same name.
func (m *Manager) AddLimiter(name string, cfg Config) {
	l := NewLimiter(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.limiters[name]; ok {
		old.Stop()
	}
	m.limiters[name] = l
}

// resolve returns the limiter for an endpoint name, falling back to the
// default policy, and the name actually used.
func (m *Manager) resolve(endpoint string) (*Limiter, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if l, ok := m.limiters[endpoint]; ok {
		return l, endpoint
	}
	return m.limiters[DefaultEndpoint], DefaultEndpoint
}

// Check runs the named endpoint's limiter against an identifier.
func (m *Manager) Check(endpoint, identifier string) Result {
	l, resolved := m.resolve(endpoint)
	res := l.Check(identifier)

	if res.Allowed {
		metrics.RateLimitAllowed.WithLabelValues(resolved).Inc()
	} else {
		metrics.RateLimitDenied.WithLabelValues(resolved).Inc()
	}
	metrics.RateLimitWindows.WithLabelValues(resolved).Set(float64(l.ActiveWindows()))
	return res
}

// CheckRequest derives the caller identifier from request transport metadata
// and runs the named endpoint's limiter against it.
func (m *Manager) CheckRequest(r *http.Request, endpoint string) Result {
	return m.Check(endpoint, ClientIP(r))
}

// Status returns the current window for an identifier under the named
// endpoint's limiter, without consuming quota.
func (m *Manager) Status(endpoint, identifier string) (Window, bool) {
	l, _ := m.resolve(endpoint)
	return l.Status(identifier)
}

// Reset clears the identifier's window under the named endpoint's limiter.
func (m *Manager) Reset(endpoint, identifier string) {
	l, _ := m.resolve(endpoint)
	l.Reset(identifier)
}

// Endpoints lists the registered policy names.
func (m *Manager) Endpoints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.limiters))
	for name := range m.limiters {
		names = append(names, name)
	}
	return names
}

// EndpointStatus summarizes one registered policy for introspection.
type EndpointStatus struct {
	Endpoint      string `json:"endpoint"`
	Limit         int    `json:"limit"`
	WindowMs      int64  `json:"window_ms"`
	ActiveWindows int    `json:"active_windows"`
}

// Snapshot reports every registered policy, sorted by name.
func (m *Manager) Snapshot() []EndpointStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EndpointStatus, 0, len(m.limiters))
	for name, l := range m.limiters {
		out = append(out, EndpointStatus{
			Endpoint:      name,
			Limit:         l.Limit(),
			WindowMs:      l.cfg.Window.Milliseconds(),
			ActiveWindows: l.ActiveWindows(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// Stop halts every registered limiter's cleanup goroutine.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.limiters {
		l.Stop()
	}
}

// ClientIP extracts the caller identity from proxy headers: the first entry
// of X-Forwarded-For, then X-Real-IP. Requests carrying neither share the
// UnknownIdentifier bucket.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs; take the first one
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return UnknownIdentifier
}
