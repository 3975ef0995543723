package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

func newTestL3(t *testing.T) *l3 {
	t.Helper()
	log, err := mlog.New("error")
	require.NoError(t, err)
	return newL3(L3Config{TTL: time.Minute, MaxPreparedQueries: 5}, log)
}

func TestL3_RoundTrip(t *testing.T) {
	c := newTestL3(t)

	c.cacheResult("SELECT * FROM memories WHERE id = $1", "m1", []byte("row"), 0)

	value, ok := c.getResult("SELECT * FROM memories WHERE id = $1", "m1")
	require.True(t, ok)
	assert.Equal(t, []byte("row"), value)
}

func TestL3_MissOnDifferentParams(t *testing.T) {
	c := newTestL3(t)

	c.cacheResult("SELECT 1", "a", []byte("row"), 0)
	_, ok := c.getResult("SELECT 1", "b")
	assert.False(t, ok)
}

func TestL3_PreparedStatementCleanupBounded(t *testing.T) {
	c := newTestL3(t)

	for i := 0; i < 10; i++ {
		query := string(rune('a' + i))
		c.cacheResult(query, "", []byte("x"), 0)
	}

	assert.LessOrEqual(t, len(c.prepared), 5+1)
}

func TestL3_InvalidateTableClearsAll(t *testing.T) {
	c := newTestL3(t)

	c.cacheResult("SELECT * FROM memories", "", []byte("a"), 0)
	c.cacheResult("SELECT * FROM sessions", "", []byte("b"), 0)

	removed := c.invalidateTable("memories")
	assert.Equal(t, 2, removed)

	_, ok := c.getResult("SELECT * FROM memories", "")
	assert.False(t, ok)
}

func TestL3_InvalidateTableNoMatchDoesNothing(t *testing.T) {
	c := newTestL3(t)

	c.cacheResult("SELECT * FROM sessions", "", []byte("b"), 0)

	removed := c.invalidateTable("memories")
	assert.Equal(t, 0, removed)

	_, ok := c.getResult("SELECT * FROM sessions", "")
	assert.True(t, ok)
}
