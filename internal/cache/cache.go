// Package cache provides a process-wide TTL cache used to memoize
// rate-limited external lookups. Entries expire individually: a timer
// scheduled at insertion removes each entry eagerly, lookups evict
// expired entries lazily, and a periodic sweep acts as a backstop.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/offbeatfm/offbeat/internal/metrics"
)

// Cache is a TTL key/value store safe for concurrent use.
// Values are opaque; the cache only enforces the TTL it is given.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	defaultTTL time.Duration
	clock      clockwork.Clock
}

// Every Set allocates a fresh entry. The eager-removal timer captures the
// pointer it was scheduled for and only deletes while the map still holds
// that same pointer, so a stale timer can never evict a newer entry, even
// when the key was deleted and re-set in between.
type entry struct {
	value     any
	size      int
	createdAt time.Time
	expiresAt time.Time
}

// Stats describes the cache's current contents.
type Stats struct {
	TotalEntries   int   `json:"totalEntries"`
	ExpiredEntries int   `json:"expiredEntries"`
	ActiveEntries  int   `json:"activeEntries"`
	MemoryBytes    int64 `json:"memoryBytes"`
}

// New creates a cache. defaultTTL applies to Set calls with a non-positive TTL.
func New(defaultTTL time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		defaultTTL: defaultTTL,
		clock:      clock,
	}
}

// Set stores value under key with the given TTL, unconditionally replacing
// any existing entry (last-write-wins). A non-positive ttl falls back to the
// default. An eager removal is scheduled at expiry regardless of whether the
// entry is ever read again, bounding memory for never-read entries.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.clock.Now()

	e := &entry{
		value:     value,
		size:      estimateSize(key, value),
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	c.entries[key] = e
	total := len(c.entries)
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(total))
	slog.Debug("Cache set", "key", key, "ttl", ttl)

	c.clock.AfterFunc(ttl, func() {
		c.removeEntry(key, e)
	})
}

// Get returns the value for key, or (nil, false) if absent or expired.
// An expired entry is evicted immediately as a side effect, so a later Set
// for the same key is never shadowed by leftover bookkeeping.
func (c *Cache) Get(key string) (any, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && !now.After(e.expiresAt) {
		c.mu.RUnlock()
		metrics.CacheHitsTotal.Inc()
		slog.Debug("Cache hit", "key", key, "age", now.Sub(e.createdAt))
		return e.value, true
	}
	c.mu.RUnlock()

	if ok {
		// Lazy eviction. Re-check under the write lock: a concurrent Set may
		// have replaced the entry between the two lock acquisitions.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == e {
			delete(c.entries, key)
			metrics.CacheEvictionsTotal.Inc()
			metrics.CacheEntries.Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
	}

	metrics.CacheMissesTotal.Inc()
	slog.Debug("Cache miss", "key", key)
	return nil, false
}

// Has reports whether key is present and not expired.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and its TTL bookkeeping. Idempotent.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		metrics.CacheEntries.Set(float64(len(c.entries)))
		slog.Debug("Cache delete", "key", key)
	}
	c.mu.Unlock()
}

// Clear removes all entries and returns the count removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	count := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	metrics.CacheEntries.Set(0)
	slog.Info("Cache cleared", "removed", count)
	return count
}

// Cleanup eagerly removes all entries past expiration and returns the count
// removed. Intended to run on a fixed interval as a backstop against any
// missed per-entry timer.
func (c *Cache) Cleanup() int {
	now := c.clock.Now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	total := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		metrics.CacheEvictionsTotal.Add(float64(removed))
		metrics.CacheEntries.Set(float64(total))
		slog.Info("Cache cleanup", "removed", removed, "remaining", total)
	}
	return removed
}

// GetStats returns entry counts and an approximate memory footprint.
// ExpiredEntries is normally 0 given eager timers; a non-zero value points at
// clock skew or a disabled sweeper.
func (c *Cache) GetStats() Stats {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			stats.ExpiredEntries++
		}
		stats.MemoryBytes += int64(e.size)
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// the count removed. Backs the namespaced admin clear surface.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	total := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		metrics.CacheEntries.Set(float64(total))
	}
	return removed
}

// CountPrefix returns the number of entries whose key starts with prefix,
// including expired-but-not-yet-evicted ones.
func (c *Cache) CountPrefix(prefix string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}
	return count
}

// StartSweeper runs Cleanup every interval until the returned stop function
// is called.
func (c *Cache) StartSweeper(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				c.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

// removeEntry is the eager-removal timer callback. It deletes key only while
// the map still holds the exact entry the timer was scheduled for.
func (c *Cache) removeEntry(key string, scheduled *entry) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e == scheduled {
		delete(c.entries, key)
		metrics.CacheEvictionsTotal.Inc()
		metrics.CacheEntries.Set(float64(len(c.entries)))
	}
	c.mu.Unlock()
}

// GenerateKey builds a deterministic cache key from a namespace, a logical
// endpoint name and a parameter set. encoding/json marshals map keys in
// sorted order, so two logically identical parameter sets always produce the
// same key regardless of construction order.
func GenerateKey(namespace, endpoint string, params map[string]string) string {
	serialized, err := json.Marshal(params)
	if err != nil {
		// map[string]string cannot fail to marshal; keep the key usable anyway
		serialized = []byte("{}")
	}
	return fmt.Sprintf("%s:%s:%s", namespace, endpoint, serialized)
}

func estimateSize(key string, value any) int {
	size := len(key)
	switch v := value.(type) {
	case []byte:
		size += len(v)
	case string:
		size += len(v)
	case json.RawMessage:
		size += len(v)
	default:
		if data, err := json.Marshal(v); err == nil {
			size += len(data)
		}
	}
	return size
}
