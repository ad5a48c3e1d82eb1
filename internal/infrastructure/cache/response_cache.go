// Package cache provides the time-boxed response cache of the API client.
// Entries are keyed by (endpoint, params) and invalidated in bulk by
// substring patterns after mutations.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL is how long a cached response stays fresh unless a per-entry
// duration is given.
const DefaultTTL = 5 * time.Minute

// ResponseCache stores raw response payloads for GET requests.
type ResponseCache interface {
	// Get returns the payload for key, or ok=false on a miss. An expired
	// entry is a miss and is evicted as a side effect.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key. A zero ttl means the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Invalidate removes every entry whose key contains pattern as a
	// substring.
	Invalidate(ctx context.Context, pattern string)

	// Clear drops all entries.
	Clear(ctx context.Context)

	// Stats reports the current cache contents for monitoring and tests.
	Stats(ctx context.Context) Stats
}

// Stats describes the cache contents at a point in time.
type Stats struct {
	Size        int      `json:"size"`
	Keys        []string `json:"keys"`
	MemoryUsage int      `json:"memory_usage"`
	Hits        int64    `json:"hits"`
	Misses      int64    `json:"misses"`
}

// Key builds the canonical cache key for an endpoint and its query params.
// encoding/json serializes map keys in sorted order, so two calls with the
// same params always collide to the same key regardless of how the map was
// built.
func Key(endpoint string, params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the endpoint
		// usable anyway.
		return endpoint + "?{}"
	}
	return endpoint + "?" + string(encoded)
}
