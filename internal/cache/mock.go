package cache

import (
	"sync"
	"time"
)

// MockByteCache is a simple map-backed ByteCache for tests.
type MockByteCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMockByteCache creates a new mock byte cache for testing.
func NewMockByteCache() *MockByteCache {
	return &MockByteCache{
		data: make(map[string][]byte),
	}
}

func (m *MockByteCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, found := m.data[key]
	return val, found
}

func (m *MockByteCache) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MockByteCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MockByteCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
}
