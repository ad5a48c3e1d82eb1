package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_OrderInsensitive(t *testing.T) {
	a := map[string]string{"page": "1", "limit": "20", "search": "ana"}
	b := map[string]string{"search": "ana", "page": "1", "limit": "20"}

	assert.Equal(t, Key("/clientes", a), Key("/clientes", b))
	assert.NotEqual(t, Key("/clientes", a), Key("/instructores", a))
}

func TestKey_NilParams(t *testing.T) {
	assert.Equal(t, "/clientes?{}", Key("/clientes", nil))
	assert.Equal(t, Key("/clientes", nil), Key("/clientes", map[string]string{}))
}

func TestMemoryResponseCache_SetAndGet(t *testing.T) {
	c := NewMemoryResponseCache()
	ctx := context.Background()
	key := Key("/clientes", map[string]string{"page": "1"})

	// Miss before set
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, []byte(`[{"id":1}]`), 0)

	value, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"id":1}]`), value)
}

func TestMemoryResponseCache_Expiry(t *testing.T) {
	c := NewMemoryResponseCache()
	ctx := context.Background()
	key := Key("/contratos", nil)

	c.Set(ctx, key, []byte(`[]`), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	// Lazy eviction removed the entry entirely
	stats := c.Stats(ctx)
	assert.Equal(t, 0, stats.Size)
	assert.NotContains(t, stats.Keys, key)
}

func TestMemoryResponseCache_DefaultTTLOverride(t *testing.T) {
	c := NewMemoryResponseCache(WithTTL(10 * time.Millisecond))
	ctx := context.Background()

	c.Set(ctx, "a?{}", []byte("x"), 0)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "a?{}")
	assert.False(t, ok)
}

func TestMemoryResponseCache_Invalidate(t *testing.T) {
	c := NewMemoryResponseCache()
	ctx := context.Background()

	c.Set(ctx, Key("/contratos", nil), []byte("a"), 0)
	c.Set(ctx, Key("/contratos", map[string]string{"page": "2"}), []byte("b"), 0)
	c.Set(ctx, Key("/clientes", nil), []byte("c"), 0)

	c.Invalidate(ctx, "contratos")

	stats := c.Stats(ctx)
	assert.Equal(t, 1, stats.Size)
	assert.Contains(t, stats.Keys, Key("/clientes", nil))

	_, ok := c.Get(ctx, Key("/clientes", nil))
	assert.True(t, ok)
}

func TestMemoryResponseCache_Clear(t *testing.T) {
	c := NewMemoryResponseCache()
	ctx := context.Background()

	c.Set(ctx, "a?{}", []byte("1"), 0)
	c.Set(ctx, "b?{}", []byte("2"), 0)

	c.Clear(ctx)

	assert.Equal(t, 0, c.Stats(ctx).Size)
}

func TestMemoryResponseCache_Stats(t *testing.T) {
	c := NewMemoryResponseCache()
	ctx := context.Background()

	c.Set(ctx, "a?{}", []byte("1234"), 0)
	c.Get(ctx, "a?{}")
	c.Get(ctx, "missing?{}")

	stats := c.Stats(ctx)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 4, stats.MemoryUsage)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
