package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisKeyPrefix = "response:"

// RedisResponseCache implements ResponseCache on Redis. It is suitable when
// several backoffice processes should share one response cache; expiry is
// delegated to Redis TTLs, so there is no lazy eviction to do client-side.
type RedisResponseCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger

	hits   int64
	misses int64
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisResponseCache creates a Redis-backed response cache and verifies
// the connection.
func NewRedisResponseCache(cfg RedisConfig, opts ...RedisResponseCacheOption) (*RedisResponseCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisResponseCacheWithClient(client, opts...), nil
}

// NewRedisResponseCacheWithClient creates a cache with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisResponseCacheWithClient(client *redis.Client, opts ...RedisResponseCacheOption) *RedisResponseCache {
	c := &RedisResponseCache{
		client:    client,
		keyPrefix: defaultRedisKeyPrefix,
		ttl:       DefaultTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RedisResponseCacheOption is a functional option for configuring the cache
type RedisResponseCacheOption func(*RedisResponseCache)

// WithRedisTTL overrides the default entry lifetime
func WithRedisTTL(ttl time.Duration) RedisResponseCacheOption {
	return func(c *RedisResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisKeyPrefix overrides the key namespace
func WithRedisKeyPrefix(prefix string) RedisResponseCacheOption {
	return func(c *RedisResponseCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisResponseCacheOption {
	return func(c *RedisResponseCache) {
		c.logger = logger
	}
}

func (c *RedisResponseCache) redisKey(key string) string {
	return c.keyPrefix + key
}

// Get returns the cached payload for key.
func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return value, true
}

// Set stores value under key with the given ttl (zero means the default).
func (c *RedisResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.redisKey(key), value, ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes every entry whose key contains pattern, using SCAN with
// a MATCH glob so the sweep does not block Redis.
func (c *RedisResponseCache) Invalidate(ctx context.Context, pattern string) {
	match := c.keyPrefix + "*" + pattern + "*"

	var removed int
	iter := c.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("redis cache delete failed", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis cache scan failed", zap.String("pattern", pattern), zap.Error(err))
	}

	c.logger.Debug("invalidated cache entries",
		zap.String("pattern", pattern),
		zap.Int("removed", removed))
}

// Clear drops every entry in this cache's namespace.
func (c *RedisResponseCache) Clear(ctx context.Context) {
	c.Invalidate(ctx, "")
}

// Stats reports the keys currently stored in this cache's namespace.
func (c *RedisResponseCache) Stats(ctx context.Context) Stats {
	stats := Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}

	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		stats.Size++
		stats.Keys = append(stats.Keys, key[len(c.keyPrefix):])
		if size, err := c.client.StrLen(ctx, key).Result(); err == nil {
			stats.MemoryUsage += int(size)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis cache scan failed", zap.Error(err))
	}
	return stats
}
