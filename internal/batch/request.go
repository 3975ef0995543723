package batch

import (
	"context"
	"time"
)

// Request is one pending operation awaiting batch dispatch. It is owned
// exclusively by the Processor until dispatch, at which point ownership of
// the result transfers to the completion handle, per spec.md §3.
type Request[P any, R any] struct {
	ID         string
	Params     P
	Priority   Priority
	EnqueuedAt time.Time

	handle *Handle[R]
}

// Result is one dispatcher outcome, positionally aligned with the Batch it
// was produced from.
type Result[R any] struct {
	Value R
	Err   error
}

// Dispatcher turns a formed batch into one outcome per request, in the same
// order. Returning a non-nil error fails the entire batch; every request in
// it receives that error.
type Dispatcher[P any, R any] func(ctx context.Context, batch []Request[P, R]) ([]Result[R], error)
