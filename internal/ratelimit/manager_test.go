package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{Window: time.Minute, Max: 100})
	t.Cleanup(m.Stop)
	return m
}

func TestManager_NamedPolicies(t *testing.T) {
	m := newTestManager(t)
	m.AddLimiter("auth", Config{Window: time.Minute, Max: 1})

	if !m.Check("auth", "ip1").Allowed {
		t.Fatal("first auth check should pass")
	}
	if m.Check("auth", "ip1").Allowed {
		t.Error("second auth check should hit the tight policy")
	}

	// The general policy is untouched by the auth policy's window
	if !m.Check("api", "ip1").Allowed {
		t.Error("api policy should be independent of auth policy")
	}
}

func TestManager_UnregisteredEndpointFallsBack(t *testing.T) {
	m := NewManager(Config{Window: time.Minute, Max: 2})
	t.Cleanup(m.Stop)

	m.Check("nonsense", "ip1")
	m.Check("whatever", "ip1")

	// Both unregistered names share the default limiter's window
	if m.Check("another", "ip1").Allowed {
		t.Error("fallback checks should share the default policy window")
	}
}

func TestManager_AddLimiterReplaces(t *testing.T) {
	m := newTestManager(t)

	m.AddLimiter("chat", Config{Window: time.Minute, Max: 1})
	m.Check("chat", "ip1")
	if m.Check("chat", "ip1").Allowed {
		t.Fatal("expected denial under the original policy")
	}

	// Re-registering installs a fresh limiter with empty windows
	m.AddLimiter("chat", Config{Window: time.Minute, Max: 5})
	if !m.Check("chat", "ip1").Allowed {
		t.Error("replacement policy should start fresh")
	}
}

func TestManager_CheckRequest(t *testing.T) {
	m := newTestManager(t)
	m.AddLimiter("market", Config{Window: time.Minute, Max: 1})

	req := httptest.NewRequest("GET", "/api/quotes/AAPL", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")

	if !m.CheckRequest(req, "market").Allowed {
		t.Fatal("first request should pass")
	}
	if m.CheckRequest(req, "market").Allowed {
		t.Error("second request from same forwarded IP should be denied")
	}

	// A different forwarded client gets its own window
	other := httptest.NewRequest("GET", "/api/quotes/AAPL", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.9")
	if !m.CheckRequest(other, "market").Allowed {
		t.Error("different client should have its own window")
	}
}

func TestManager_StatusAndReset(t *testing.T) {
	m := newTestManager(t)
	m.AddLimiter("market", Config{Window: time.Minute, Max: 1})

	m.Check("market", "ip1")
	m.Check("market", "ip1") // denied

	w, ok := m.Status("market", "ip1")
	if !ok || w.Count != 1 {
		t.Errorf("status = %+v ok=%v, want count 1", w, ok)
	}

	m.Reset("market", "ip1")
	if !m.Check("market", "ip1").Allowed {
		t.Error("reset identifier should be eligible again")
	}
}

func TestManager_Endpoints(t *testing.T) {
	m := newTestManager(t)
	m.AddLimiter("auth", Config{})
	m.AddLimiter("chat", Config{})

	names := m.Endpoints()
	if len(names) != 3 {
		t.Errorf("endpoints = %v, want api+auth+chat", names)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "forwarded-for first entry",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"},
			want:    "203.0.113.1",
		},
		{
			name:    "forwarded-for single entry",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1"},
			want:    "203.0.113.1",
		},
		{
			name:    "real-ip fallback",
			headers: map[string]string{"X-Real-IP": "203.0.113.7"},
			want:    "203.0.113.7",
		},
		{
			name: "forwarded-for wins over real-ip",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"X-Real-IP":       "203.0.113.7",
			},
			want: "203.0.113.1",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    UnknownIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
