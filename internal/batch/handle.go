package batch

import (
	"context"
	"sync"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// Handle is a one-shot completion future for a submitted request. Exactly
// one resolution is honored; later calls to resolve are no-ops, so a
// caller's timeout and the dispatcher's eventual result can never both
// apply — the first to arrive wins and the other is silently dropped, per
// spec.md §4.6's "never double-resolved" rule.
type Handle[R any] struct {
	done chan struct{}
	once sync.Once

	result R
	err    error
}

func newHandle[R any]() *Handle[R] {
	return &Handle[R]{done: make(chan struct{})}
}

func (h *Handle[R]) resolve(result R, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}

// Wait blocks until the handle resolves or ctx is done, whichever comes
// first. A ctx expiry surfaces a Network-kind timeout error; the
// dispatcher's eventual result, if it arrives later, is dropped.
func (h *Handle[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero R
		return zero, merrors.New(merrors.Network, "BATCH_REQUEST_TIMEOUT", "request deadline exceeded waiting for batch dispatch").
			WithCause(ctx.Err())
	}
}
