package cache

import (
	"testing"
	"time"
)

func TestRistrettoCache_SetAndGet(t *testing.T) {
	c, err := NewRistretto(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("history:AAPL:1D", []byte(`{"candles":[]}`), 0)

	got, found := c.Get("history:AAPL:1D")
	if !found {
		t.Fatal("expected to find cached value")
	}
	if string(got) != `{"candles":[]}` {
		t.Errorf("got %s", got)
	}
}

func TestRistrettoCache_GetNonExistent(t *testing.T) {
	c, err := NewRistretto(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	if _, found := c.Get("nonexistent"); found {
		t.Error("expected not to find nonexistent key")
	}
}

func TestRistrettoCache_Expiration(t *testing.T) {
	c, err := NewRistretto(10, 100, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("k", []byte("v"), 100*time.Millisecond)

	if _, found := c.Get("k"); !found {
		t.Error("expected to find value immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expected value to be expired")
	}
}

func TestRistrettoCache_Delete(t *testing.T) {
	c, err := NewRistretto(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("k", []byte("v"), 0)
	c.Delete("k")

	if _, found := c.Get("k"); found {
		t.Error("expected value to be deleted")
	}
}

func TestRistrettoCache_Clear(t *testing.T) {
	c, err := NewRistretto(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)

	c.Clear()

	if _, found := c.Get("a"); found {
		t.Error("expected a to be cleared")
	}
	if _, found := c.Get("b"); found {
		t.Error("expected b to be cleared")
	}
}

func TestMockByteCache(t *testing.T) {
	m := NewMockByteCache()

	m.Set("k", []byte("v"), time.Minute)
	if got, found := m.Get("k"); !found || string(got) != "v" {
		t.Error("mock did not round-trip value")
	}

	m.Delete("k")
	if _, found := m.Get("k"); found {
		t.Error("mock did not delete value")
	}

	m.Set("k2", []byte("v"), 0)
	m.Clear()
	if _, found := m.Get("k2"); found {
		t.Error("mock did not clear values")
	}
}
