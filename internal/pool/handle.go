package pool

import (
	"sync"
	"time"
)

// Handle is a scoped borrow of a connection from a pool. Exactly one
// borrower holds it at a time; Release is idempotent and safe to defer.
type Handle[T any] struct {
	Conn       T
	CreatedAt  time.Time
	LastUsedAt time.Time

	release func(valid bool)
	once    sync.Once
}

func newHandle[T any](conn T, release func(valid bool)) *Handle[T] {
	now := time.Now()

	return &Handle[T]{
		Conn:       conn,
		CreatedAt:  now,
		LastUsedAt: now,
		release:    release,
	}
}

// Release returns the handle to its pool. valid should be false when the
// caller observed the connection to be broken, marking it for disposal
// instead of return to the idle set. Safe to call multiple times; only the
// first call has effect.
func (h *Handle[T]) Release(valid bool) {
	h.once.Do(func() {
		if h.release != nil {
			h.release(valid)
		}
	})
}
