package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/cache"
)

func newCache(t *testing.T) *cache.Ristretto {
	t.Helper()
	c, err := cache.NewRistretto(nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "assess:story:abc", []byte(`{"score":90}`), time.Minute)

	got, ok := c.Get(ctx, "assess:story:abc")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"score":90}`), got)
}

func TestGetMiss(t *testing.T) {
	c := newCache(t)

	_, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestClearByPrefix(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "assess:story:1", []byte("a"), time.Minute)
	c.Set(ctx, "assess:story:2", []byte("b"), time.Minute)
	c.Set(ctx, "assess:visual:1", []byte("c"), time.Minute)

	c.ClearByPrefix(ctx, "assess:story:")

	_, ok := c.Get(ctx, "assess:story:1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "assess:story:2")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "assess:visual:1")
	assert.True(t, ok)
}

func TestExpiry(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Get(ctx, "k")
	c.Get(ctx, "absent")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestNoopNeverStores(t *testing.T) {
	var c cache.Cache = cache.Noop{}
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
