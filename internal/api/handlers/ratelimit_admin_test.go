package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tblake/finboard/backend/internal/ratelimit"
)

func newAdminManager(t *testing.T) *ratelimit.Manager {
	t.Helper()
	m := ratelimit.NewManager(ratelimit.Config{Window: time.Minute, Max: 100})
	m.AddLimiter("auth", ratelimit.Config{Window: 15 * time.Minute, Max: 5})
	t.Cleanup(m.Stop)
	return m
}

func TestRateLimitAdmin_StatusAll(t *testing.T) {
	m := newAdminManager(t)
	m.Check("auth", "1.2.3.4")

	h := NewRateLimitAdminHandler(m)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, httptest.NewRequest("GET", "/api/admin/ratelimit/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Endpoints []ratelimit.EndpointStatus `json:"endpoints"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Endpoints) != 2 {
		t.Fatalf("endpoints = %+v", body.Endpoints)
	}
	// Sorted: api before auth
	if body.Endpoints[0].Endpoint != "api" || body.Endpoints[1].Endpoint != "auth" {
		t.Errorf("order = %+v", body.Endpoints)
	}
	if body.Endpoints[1].ActiveWindows != 1 || body.Endpoints[1].Limit != 5 {
		t.Errorf("auth status = %+v", body.Endpoints[1])
	}
}

func TestRateLimitAdmin_StatusOne(t *testing.T) {
	m := newAdminManager(t)
	m.Check("auth", "1.2.3.4")
	m.Check("auth", "1.2.3.4")

	h := NewRateLimitAdminHandler(m)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, httptest.NewRequest("GET",
		"/api/admin/ratelimit/status?endpoint=auth&identifier=1.2.3.4", nil))

	var body struct {
		Active bool `json:"active"`
		Count  int  `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Active || body.Count != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestRateLimitAdmin_Reset(t *testing.T) {
	m := newAdminManager(t)
	for i := 0; i < 5; i++ {
		m.Check("auth", "1.2.3.4")
	}
	if m.Check("auth", "1.2.3.4").Allowed {
		t.Fatal("expected identifier to be limited before reset")
	}

	h := NewRateLimitAdminHandler(m)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/admin/ratelimit/reset",
		strings.NewReader(`{"endpoint":"auth","identifier":"1.2.3.4"}`))
	h.PostReset(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !m.Check("auth", "1.2.3.4").Allowed {
		t.Error("identifier should be admitted after reset")
	}
}

func TestRateLimitAdmin_ResetRequiresIdentifier(t *testing.T) {
	h := NewRateLimitAdminHandler(newAdminManager(t))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/admin/ratelimit/reset",
		strings.NewReader(`{"endpoint":"auth"}`))
	h.PostReset(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
