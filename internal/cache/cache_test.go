package cache

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("gitlab", 1, "projects/1/repository/files/a/blame", `{"ref":"main"}`)
	b := Key("gitlab", 1, "projects/1/repository/files/a/blame", `{"ref":"dev"}`)
	c := Key("gitlab", 2, "projects/1/repository/files/a/blame", `{"ref":"main"}`)

	assert.True(t, strings.HasPrefix(a, "gitlab.client:"))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, Key("gitlab", 1, "projects/1/repository/files/a/blame", `{"ref":"main"}`))
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemory(1)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("[]"), BlameTTL))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), val)
}

func TestMemoryCachesAreIsolated(t *testing.T) {
	a, err := NewMemory(60)
	require.NoError(t, err)
	b, err := NewMemory(60)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.(io.Closer).Close()
		_ = b.(io.Closer).Close()
	})
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "shared-key", []byte("from-a"), BlameTTL))

	_, ok, err := b.Get(ctx, "shared-key")
	require.NoError(t, err)
	assert.False(t, ok)

	val, ok, err := a.Get(ctx, "shared-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("from-a"), val)
}

func TestMemoryCacheClose(t *testing.T) {
	c, err := NewMemory(60)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), BlameTTL))
	require.NoError(t, c.(io.Closer).Close())

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, int64(0), ttlSeconds(0))
	assert.Equal(t, int64(60), ttlSeconds(BlameTTL))
	assert.Equal(t, int64(1), ttlSeconds(10*time.Millisecond))
}

func TestRedisCache(t *testing.T) {
	mini := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, RedisConfig{Addr: mini.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.(*redisCache).Close() })

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`[{"commit":{}}]`), BlameTTL))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"commit":{}}]`, string(val))

	mini.FastForward(BlameTTL + time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	addr := mini.Addr()
	mini.Close()

	_, err = NewRedis(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
