package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandle_ReleaseInvokesCallbackOnce(t *testing.T) {
	calls := 0
	var lastValid bool

	h := newHandle("conn", func(valid bool) {
		calls++
		lastValid = valid
	})

	h.Release(true)
	h.Release(false)
	h.Release(true)

	assert.Equal(t, 1, calls)
	assert.True(t, lastValid)
}

func TestHandle_ExposesConnAndTimestamps(t *testing.T) {
	h := newHandle(42, func(bool) {})

	assert.Equal(t, 42, h.Conn)
	assert.False(t, h.CreatedAt.IsZero())
	assert.Equal(t, h.CreatedAt, h.LastUsedAt)
}

func TestHandle_ReleaseWithNilCallbackIsSafe(t *testing.T) {
	h := newHandle("conn", nil)
	assert.NotPanics(t, func() { h.Release(true) })
}
