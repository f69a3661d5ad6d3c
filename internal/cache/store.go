package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/tblake/finboard/backend/internal/metrics"
)

// entryOverheadBytes is the fixed per-entry bookkeeping cost used by the
// memory estimate. The estimate is approximate, not exact.
const entryOverheadBytes = 100

// forcedCleanupSlack allows occupancy to overshoot MaxSize by 10% before a
// Set triggers a synchronous cleanup.
const forcedCleanupSlack = 1.1

// Entry is a single cached value with its TTL and access metadata.
type Entry struct {
	Data           interface{}
	CreatedAt      time.Time
	ExpiresAt      time.Time
	TTL            time.Duration
	HitCount       int64
	LastAccessedAt time.Time
}

// Options configures a Store. Zero values fall back to the defaults below.
type Options struct {
	MaxSize         int           // maximum entry count (default 1000)
	DefaultTTL      time.Duration // TTL applied when Set is called with ttl 0 (default 5m)
	CleanupInterval time.Duration // janitor period (default 1m)
	DisableStats    bool          // suppress hit/miss counters (on by default)
}

// DefaultOptions returns the standard Store configuration.
func DefaultOptions() Options {
	return Options{
		MaxSize:         1000,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Stats is a point-in-time snapshot of Store counters.
type Stats struct {
	Size        int       `json:"size"`
	Hits        uint64    `json:"hits"`
	Misses      uint64    `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	TotalMemory int64     `json:"total_memory_bytes"`
	OldestEntry time.Time `json:"oldest_entry"`
	NewestEntry time.Time `json:"newest_entry"`
}

// Fetcher produces a value for GetOrSet on a cache miss.
type Fetcher func(ctx context.Context) (interface{}, error)

// BatchFetcher resolves the missing keys of a BatchGet call. It may return a
// subset of the requested keys.
type BatchFetcher func(ctx context.Context, missing []string) (map[string]interface{}, error)

// Store is an in-process key/value cache with per-entry TTL, LRU eviction
// under size pressure and hit/miss statistics. It is safe for concurrent use.
//
// GetOrSet and BatchGet release the lock while the caller-supplied fetcher
// runs, so two concurrent misses for the same key may both invoke their
// fetcher. That duplicate work is accepted; the map write is last-write-wins.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	hits    uint64
	misses  uint64

	opts Options

	janitor   *time.Ticker
	stop      chan struct{}
	destroyed bool
}

// NewStore creates a Store and starts its background cleanup goroutine.
func NewStore(opts Options) *Store {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	s := &Store{
		entries: make(map[string]*Entry),
		opts:    opts,
		janitor: time.NewTicker(opts.CleanupInterval),
		stop:    make(chan struct{}),
	}
	go s.runJanitor()
	return s
}

func (s *Store) runJanitor() {
	for {
		select {
		case <-s.janitor.C:
			s.mu.Lock()
			s.cleanupLocked()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Set inserts or overwrites an entry. A ttl of 0 uses the configured default.
// If occupancy exceeds 110% of MaxSize afterwards, a cleanup runs before
// returning.
func (s *Store) Set(key string, data interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}

	s.entries[key] = &Entry{
		Data:           data,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		TTL:            ttl,
		LastAccessedAt: now,
	}

	if float64(len(s.entries)) > float64(s.opts.MaxSize)*forcedCleanupSlack {
		s.cleanupLocked()
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}

// Get returns the payload for key if present and unexpired. An expired entry
// is deleted as a side effect and counts as a miss.
func (s *Store) Get(key string) (interface{}, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.recordMissLocked()
		return nil, false
	}
	if now.After(entry.ExpiresAt) {
		delete(s.entries, key)
		metrics.CacheEntries.Set(float64(len(s.entries)))
		s.recordMissLocked()
		return nil, false
	}

	entry.HitCount++
	entry.LastAccessedAt = now
	s.recordHitLocked()
	return entry.Data, true
}

// Has reports whether key is present and unexpired. Like Get it lazily
// deletes an expired entry, but it does not touch hit/miss counters or the
// entry's access metadata.
func (s *Store) Has(key string) bool {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if now.After(entry.ExpiresAt) {
		delete(s.entries, key)
		metrics.CacheEntries.Set(float64(len(s.entries)))
		return false
	}
	return true
}

// Delete removes an entry, reporting whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return ok
}

// Clear removes all entries and resets the hit/miss counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)
	s.hits = 0
	s.misses = 0
	metrics.CacheEntries.Set(0)
}

// GetOrSet returns the cached value for key, or invokes fetcher, stores the
// result under key with ttl and returns it. A fetcher error propagates
// unchanged and nothing is cached.
func (s *Store) GetOrSet(ctx context.Context, key string, fetcher Fetcher, ttl time.Duration) (interface{}, error) {
	if data, ok := s.Get(key); ok {
		return data, nil
	}

	data, err := fetcher(ctx)
	if err != nil {
		return nil, err
	}
	s.Set(key, data, ttl)
	return data, nil
}

// BatchGet returns cached values for keys, resolving all misses with a single
// fetcher call. Every pair the fetcher returns is cached. If the fetcher
// fails, keys with an expired-but-not-yet-purged entry fall back to that
// stale value; keys with neither fresh nor stale data are omitted.
func (s *Store) BatchGet(ctx context.Context, keys []string, fetcher BatchFetcher, ttl time.Duration) map[string]interface{} {
	result := make(map[string]interface{}, len(keys))
	now := time.Now()

	// Classify without purging: expired entries must survive until the fetch
	// outcome is known so they can serve as the stale fallback.
	var missing []string
	s.mu.Lock()
	for _, key := range keys {
		entry, ok := s.entries[key]
		if ok && !now.After(entry.ExpiresAt) {
			entry.HitCount++
			entry.LastAccessedAt = now
			s.recordHitLocked()
			result[key] = entry.Data
			continue
		}
		s.recordMissLocked()
		missing = append(missing, key)
	}
	s.mu.Unlock()

	if len(missing) == 0 {
		return result
	}

	fetched, err := fetcher(ctx, missing)
	if err != nil {
		s.mu.Lock()
		for _, key := range missing {
			if entry, ok := s.entries[key]; ok {
				result[key] = entry.Data
				metrics.CacheStaleFallbacks.Inc()
			}
		}
		s.mu.Unlock()
		return result
	}

	for key, data := range fetched {
		s.Set(key, data, ttl)
		result[key] = data
	}
	return result
}

// ExtendTTL pushes an existing entry's expiry further out, reporting whether
// the key existed. An expired-but-not-yet-purged entry can be revived.
func (s *Store) ExtendTTL(key string, additional time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	entry.ExpiresAt = entry.ExpiresAt.Add(additional)
	return true
}

// ExpiredKeys lists entries currently past expiry but not yet purged.
// Diagnostic only.
func (s *Store) ExpiredKeys() []string {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the store's counters. TotalMemory is a rough
// byte estimate: 2x key length plus 2x the JSON-serialized payload length
// plus a fixed per-entry overhead.
func (s *Store) Stats() Stats {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Size:        len(s.entries),
		Hits:        s.hits,
		Misses:      s.misses,
		OldestEntry: now,
		NewestEntry: now,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}

	first := true
	for key, entry := range s.entries {
		st.TotalMemory += estimateEntryBytes(key, entry.Data)
		if first || entry.CreatedAt.Before(st.OldestEntry) {
			st.OldestEntry = entry.CreatedAt
		}
		if first || entry.CreatedAt.After(st.NewestEntry) {
			st.NewestEntry = entry.CreatedAt
		}
		first = false
	}
	return st
}

// Size returns the current entry count.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Destroy stops the background cleanup and drops all entries. The Store must
// not be used afterwards.
func (s *Store) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.janitor.Stop()
	close(s.stop)
	s.entries = make(map[string]*Entry)
	metrics.CacheEntries.Set(0)
}

// cleanupLocked purges expired entries first, then evicts least-recently-used
// entries until occupancy is back at MaxSize. The LRU pass sorts all
// remaining entries by last access, O(n log n) per run; fine at the target
// scale of hundreds to low thousands of entries.
func (s *Store) cleanupLocked() {
	now := time.Now()

	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
			metrics.CacheEvictions.WithLabelValues("expired").Inc()
		}
	}

	surplus := len(s.entries) - s.opts.MaxSize
	if surplus <= 0 {
		metrics.CacheEntries.Set(float64(len(s.entries)))
		return
	}

	type keyed struct {
		key          string
		lastAccessed time.Time
	}
	ranked := make([]keyed, 0, len(s.entries))
	for key, entry := range s.entries {
		ranked = append(ranked, keyed{key: key, lastAccessed: entry.LastAccessedAt})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].lastAccessed.Before(ranked[j].lastAccessed)
	})

	for i := 0; i < surplus; i++ {
		delete(s.entries, ranked[i].key)
		metrics.CacheEvictions.WithLabelValues("lru").Inc()
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}

// ForceCleanup runs a cleanup cycle immediately. Exposed for the admin API
// and tests.
func (s *Store) ForceCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

func (s *Store) recordHitLocked() {
	if s.opts.DisableStats {
		return
	}
	s.hits++
	metrics.CacheHits.Inc()
}

func (s *Store) recordMissLocked() {
	if s.opts.DisableStats {
		return
	}
	s.misses++
	metrics.CacheMisses.Inc()
}

// estimateEntryBytes sizes an entry as if its key and payload were UTF-16
// strings. Payloads that cannot be serialized contribute only the fixed
// overhead.
func estimateEntryBytes(key string, data interface{}) int64 {
	size := int64(len(key))*2 + entryOverheadBytes
	if raw, err := json.Marshal(data); err == nil {
		size += int64(len(raw)) * 2
	}
	return size
}
