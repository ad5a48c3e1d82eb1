package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// MemoryResponseCache implements ResponseCache with an in-process map.
// Eviction is lazy: an expired entry is removed when it is next read or when
// a pattern invalidation sweeps over it. There is no background cleanup.
type MemoryResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	logger  *zap.Logger

	hits   int64
	misses int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryResponseCacheOption is a functional option for configuring the cache
type MemoryResponseCacheOption func(*MemoryResponseCache)

// WithTTL overrides the default entry lifetime
func WithTTL(ttl time.Duration) MemoryResponseCacheOption {
	return func(c *MemoryResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMemoryLogger sets the logger for the cache
func WithMemoryLogger(logger *zap.Logger) MemoryResponseCacheOption {
	return func(c *MemoryResponseCache) {
		c.logger = logger
	}
}

// NewMemoryResponseCache creates a new in-memory response cache
func NewMemoryResponseCache(opts ...MemoryResponseCacheOption) *MemoryResponseCache {
	c := &MemoryResponseCache{
		entries: make(map[string]*memoryEntry),
		ttl:     DefaultTTL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached payload, evicting the entry if it has expired.
func (c *MemoryResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !entry.isExpired() {
		atomic.AddInt64(&c.hits, 1)
		c.logger.Debug("cache hit", zap.String("key", key))
		return entry.value, true
	}

	if ok {
		// Expired, remove under the write lock. Re-check so a concurrent Set
		// is not thrown away.
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.isExpired() {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("cache miss", zap.String("key", key))
	return nil, false
}

// Set stores value under key with the given ttl (zero means the default).
func (c *MemoryResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	c.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()

	c.logger.Debug("cached response",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
}

// Invalidate removes every entry whose key contains pattern.
func (c *MemoryResponseCache) Invalidate(ctx context.Context, pattern string) {
	removed := 0

	c.mu.Lock()
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("invalidated cache entries",
		zap.String("pattern", pattern),
		zap.Int("removed", removed))
}

// Clear drops all entries.
func (c *MemoryResponseCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*memoryEntry)
	c.mu.Unlock()
}

// Stats reports size, keys and stored payload bytes. Expired entries that
// have not been lazily evicted yet are excluded.
func (c *MemoryResponseCache) Stats(ctx context.Context) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
	for key, entry := range c.entries {
		if entry.isExpired() {
			continue
		}
		stats.Size++
		stats.Keys = append(stats.Keys, key)
		stats.MemoryUsage += len(entry.value)
	}
	return stats
}
