package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// ByteCache caches serialized payloads (rendered JSON responses) with TTL.
// It complements Store: Store tracks per-entry access metadata and supports
// stale reads, while ByteCache is a plain size-bounded byte cache for large
// payloads such as candle history responses.
type ByteCache interface {
	// Get retrieves a value by key. Returns the value and true if found and
	// not expired, otherwise nil and false.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key and TTL. TTL of 0 means use the
	// default TTL.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()
}

// RistrettoCache is a size-bounded ByteCache backed by ristretto.
type RistrettoCache struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

type byteItem struct {
	data      []byte
	expiresAt time.Time
}

// NewRistretto creates a ByteCache bounded to maxSizeMB megabytes and
// roughly maxEntries entries.
func NewRistretto(maxSizeMB int64, maxEntries int64, defaultTTL time.Duration) (*RistrettoCache, error) {
	// NumCounters should be ~10x the number of entries for good admission
	// decisions
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}, nil
}

// Get retrieves a value from the cache by key.
func (c *RistrettoCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*byteItem)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}

	return item.data, true
}

// Set stores a value in the cache with the given key and TTL.
func (c *RistrettoCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	item := &byteItem{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}

	// Cost is the payload size; ristretto handles eviction internally
	_ = c.cache.Set(key, item, int64(len(value)))

	// Wait for the value to pass through the set buffer so a subsequent Get
	// observes it
	c.cache.Wait()
}

// Delete removes a value from the cache.
func (c *RistrettoCache) Delete(key string) {
	c.cache.Del(key)
}

// Clear removes all values from the cache.
func (c *RistrettoCache) Clear() {
	c.cache.Clear()
}

// Close releases the cache's resources.
func (c *RistrettoCache) Close() {
	c.cache.Close()
}
