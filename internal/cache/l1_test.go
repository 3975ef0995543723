package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL1_RoundTrip(t *testing.T) {
	c := newL1(L1Config{MaxBytes: 1024 * 1024, TTL: time.Minute})

	key := Key("memory:user:u1:abc123")
	c.set(key, []byte("hello"), 0)

	entry, ok := c.get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), entry.Value)

	stats := c.stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestL1_ExpiredEntryCountsAsMiss(t *testing.T) {
	c := newL1(L1Config{MaxBytes: 1024, TTL: time.Nanosecond})

	key := Key("memory:user:u1:abc123")
	c.set(key, []byte("hello"), time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.get(key)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.stats().Misses)
}

func TestL1_EvictsLeastRecentlyUsedWhenOverBudget(t *testing.T) {
	c := newL1(L1Config{MaxBytes: 10, TTL: time.Minute})

	c.set("a", []byte("12345"), 0) // 5 bytes
	c.set("b", []byte("12345"), 0) // 5 bytes, now at budget

	// touch "a" so "b" becomes the LRU victim
	_, _ = c.get("a")

	c.set("c", []byte("12345"), 0) // forces eviction of "b"

	_, aOK := c.get("a")
	_, bOK := c.get("b")
	_, cOK := c.get("c")

	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
	assert.Equal(t, uint64(1), c.stats().Evictions)
}

func TestL1_WarmEntryExemptFromEviction(t *testing.T) {
	c := newL1(L1Config{MaxBytes: 5, TTL: time.Minute})

	c.warm("hot", []byte("12345"), 0)
	c.set("cold1", []byte("12345"), 0)
	c.set("cold2", []byte("12345"), 0)

	_, hotOK := c.get("hot")
	assert.True(t, hotOK, "warmed entry must survive eviction pressure")
}

func TestL1_InvalidateUser(t *testing.T) {
	c := newL1(L1Config{MaxBytes: 1024 * 1024, TTL: time.Minute})

	c.set(NewUserKey("memory", "user:u1", "m1"), []byte("a"), 0)
	c.set(NewUserKey("memory", "user:u1", "m2"), []byte("b"), 0)
	c.set(NewUserKey("memory", "user:u2", "m3"), []byte("c"), 0)

	removed := c.invalidateUser("u1")
	assert.Equal(t, 2, removed)

	_, u2OK := c.get(NewUserKey("memory", "user:u2", "m3"))
	assert.True(t, u2OK, "other users' entries must survive invalidation")
}
