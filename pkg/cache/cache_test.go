package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	C  float64 `json:"c"`
	PC float64 `json:"pc"`
}

func newTestMemory(t *testing.T, size int) (*MemoryCache, *time.Time) {
	t.Helper()
	mc := NewMemoryCache(WithMemoryMaxSize(size), WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	clock := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return clock }
	return mc, &clock
}

func TestMemoryRoundTripsStructs(t *testing.T) {
	mc, _ := newTestMemory(t, 10)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "quote:AAPL", quote{C: 190.5, PC: 189}, time.Minute))

	var got quote
	require.NoError(t, mc.Get(ctx, "quote:AAPL", &got))
	assert.Equal(t, quote{C: 190.5, PC: 189}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "raw", "plain", time.Minute))
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryExpiry(t *testing.T) {
	mc, clock := newTestMemory(t, 10)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Minute))
	*clock = clock.Add(2 * time.Minute)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryEvictsLeastRecentlyRead(t *testing.T) {
	mc, clock := newTestMemory(t, 2)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	*clock = clock.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	*clock = clock.Add(time.Second)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	*clock = clock.Add(time.Second)

	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))
	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestLayeredBackfillsMemory(t *testing.T) {
	remote, _ := newTestMemory(t, 10)
	ctx := context.Background()
	require.NoError(t, remote.Set(ctx, "profile:AAPL", quote{C: 1}, time.Hour))

	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	t.Cleanup(func() { _ = lc.Close() })

	var got quote
	require.NoError(t, lc.Get(ctx, "profile:AAPL", &got))
	assert.Equal(t, 1.0, got.C)

	// L1 now answers even after the remote forgets the key
	require.NoError(t, remote.Delete(ctx, "profile:AAPL"))
	got = quote{}
	require.NoError(t, lc.Get(ctx, "profile:AAPL", &got))
	assert.Equal(t, 1.0, got.C)

	require.NoError(t, lc.Delete(ctx, "profile:AAPL"))
	assert.ErrorIs(t, lc.Get(ctx, "profile:AAPL", &got), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	mc, _ := newTestMemory(t, 10)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"AAPL", "MSFT"}, nil
	}

	v, hit, err := GetOrLoad(ctx, mc, "peers:AAPL", time.Hour, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"AAPL", "MSFT"}, v)

	v, hit, err = GetOrLoad(ctx, mc, "peers:AAPL", time.Hour, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"AAPL", "MSFT"}, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoadDoesNotCacheFailures(t *testing.T) {
	mc, _ := newTestMemory(t, 10)
	ctx := context.Background()

	_, _, err := GetOrLoad(ctx, mc, "quote:X", time.Hour, func(context.Context) (float64, error) {
		return 0, errors.New("upstream down")
	})
	require.Error(t, err)

	ok, _ := mc.Exists(ctx, "quote:X")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "stockdesk:quote:AAPL", GenerateKey("stockdesk", "quote:AAPL"))
	assert.Equal(t, "hourly:AAPL:2024-05-07:2024-05-08", GenerateKeyWithParams("hourly", "AAPL", "2024-05-07", "2024-05-08"))
	assert.Len(t, HashKey("apple"), 32)
}
