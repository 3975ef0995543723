package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

func newTestL2(t *testing.T) *l2 {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log, err := mlog.New("error")
	require.NoError(t, err)

	return newL2(DefaultL2Config(), func() (*redis.Client, error) { return client, nil }, log)
}

func TestL2_RoundTrip(t *testing.T) {
	c := newTestL2(t)
	ctx := context.Background()

	c.set(ctx, "k1", []byte("value"), time.Minute)

	value, ok := c.get(ctx, "k1")
	require.True(t, ok)
	require.Equal(t, []byte("value"), value)
}

func TestL2_MissIsNotAFallback(t *testing.T) {
	c := newTestL2(t)
	ctx := context.Background()

	_, ok := c.get(ctx, "missing")
	require.False(t, ok)
	require.Equal(t, uint64(0), c.stats().Fallbacks)
	require.Equal(t, uint64(1), c.stats().Misses)
}

func TestL2_TransportErrorFallsBackSilently(t *testing.T) {
	log, err := mlog.New("error")
	require.NoError(t, err)

	c := newL2(DefaultL2Config(), func() (*redis.Client, error) {
		return nil, context.DeadlineExceeded
	}, log)

	_, ok := c.get(context.Background(), "k1")
	require.False(t, ok)
	require.Equal(t, uint64(1), c.stats().Fallbacks)
}

func TestL2_InvalidateUser(t *testing.T) {
	c := newTestL2(t)
	ctx := context.Background()

	c.set(ctx, NewUserKey("memory", "user:u1", "m1"), []byte("a"), time.Minute)
	c.set(ctx, NewUserKey("memory", "user:u1", "m2"), []byte("b"), time.Minute)
	c.set(ctx, NewUserKey("memory", "user:u2", "m3"), []byte("c"), time.Minute)

	deleted := c.invalidateUser(ctx, "u1")
	require.Equal(t, 2, deleted)

	_, u2OK := c.get(ctx, NewUserKey("memory", "user:u2", "m3"))
	require.True(t, u2OK)
}
