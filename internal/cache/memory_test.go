package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryClient(t *testing.T, maxSize int) (*MemoryClient, *time.Time) {
	t.Helper()
	c := NewMemoryClient(maxSize)
	t.Cleanup(func() { _ = c.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryClient(t, 10)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// returned slices are copies
	got[0] = 'x'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemoryClient(t, 10)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	*now = now.Add(2 * time.Minute)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryClient_NoExpiry(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemoryClient(t, 2)

	require.NoError(t, c.Set(ctx, "pinned", []byte("v"), 0))
	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	*now = now.Add(24 * time.Hour)

	_, err := c.Get(ctx, "pinned")
	assert.NoError(t, err)

	// expiring entries go first when full
	require.NoError(t, c.Set(ctx, "new", []byte("2"), time.Hour))
	_, err = c.Get(ctx, "pinned")
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestRedisConfigFromURL(t *testing.T) {
	cfg, err := RedisConfigFromURL("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, RedisConfig{Addr: "cache.internal:6380", Password: "secret", DB: 2}, cfg)

	_, err = RedisConfigFromURL("http://nope")
	assert.Error(t, err)
}

func TestMemoryClient_EvictsEarliestExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryClient(t, 2)

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// overwriting an existing key never evicts
	require.NoError(t, c.Set(ctx, "long", []byte("4"), time.Hour))
	_, err = c.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryClient(t, 10)

	require.NoError(t, c.Set(ctx, "session:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "session:b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "ref:state:Bihar", []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "session:"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "ref:state:Bihar"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryClient_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryClient(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ref:state:Tamil Nadu", Key("ref", "state", "Tamil Nadu"))
	assert.Equal(t, "", Key())
}
