package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend selects the response cache implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Factory creates response caches based on configuration
type Factory struct {
	backend       Backend
	redisConfig   RedisConfig
	ttl           time.Duration
	logger        *zap.Logger
	allowFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger for the factory and the caches it builds
func WithFactoryLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithFactoryTTL sets the default entry lifetime for created caches
func WithFactoryTTL(ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.ttl = ttl
	}
}

// WithMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowFallback = allow
	}
}

// NewFactory creates a new cache factory
func NewFactory(backend Backend, redisCfg RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		backend:       backend,
		redisConfig:   redisCfg,
		ttl:           DefaultTTL,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the configured response cache. A Redis backend falls back to
// the in-memory cache when the connection fails, unless fallback is disabled.
func (f *Factory) Create() (ResponseCache, error) {
	if f.backend != BackendRedis {
		return NewMemoryResponseCache(WithTTL(f.ttl), WithMemoryLogger(f.logger)), nil
	}

	store, err := NewRedisResponseCache(f.redisConfig,
		WithRedisTTL(f.ttl),
		WithRedisLogger(f.logger))
	if err == nil {
		f.logger.Info("using Redis response cache")
		return store, nil
	}

	if !f.allowFallback {
		return nil, fmt.Errorf("Redis required for response cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory response cache. "+
		"Cached responses will not be shared across processes.",
		zap.Error(err),
	)
	return NewMemoryResponseCache(WithTTL(f.ttl), WithMemoryLogger(f.logger)), nil
}
