package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/resilience"
)

// Config governs a Processor's batching and dispatch behavior, per
// spec.md §4.6. Defaults mirror the teacher's generic batcher: modest
// batch sizes, sub-second flush intervals, small worker pools.
type Config struct {
	BatchSize      int
	FlushInterval  time.Duration
	Workers        int
	QueueCapacity  int
	RequestTimeout time.Duration
	Retry          resilience.RetryConfig
}

// DefaultConfig matches the original implementation's BatchConfig defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		FlushInterval:  100 * time.Millisecond,
		Workers:        4,
		QueueCapacity:  10000,
		RequestTimeout: 30 * time.Second,
		Retry:          resilience.DefaultRetryConfig(),
	}
}

// formedBatch is a batch ready for dispatch, carried from flush() to a
// worker goroutine.
type formedBatch[P any, R any] struct {
	requests []Request[P, R]
}

// Processor is the generic priority-batching engine. Callers submit
// requests; Processor groups them into batches and hands each batch to a
// Dispatcher, distributing results back to the original callers.
type Processor[P any, R any] struct {
	cfg        Config
	dispatch   Dispatcher[P, R]
	log        mlog.Logger
	name       string

	mu       sync.Mutex
	buckets  map[Priority][]*requestEntry[P, R]
	pending  int
	stopping bool

	batches chan formedBatch[P, R]
	flushC  chan struct{}
	stopC   chan struct{}
	doneC   chan struct{}
	eg      *errgroup.Group

	metrics metrics
}

type requestEntry[P any, R any] struct {
	req    Request[P, R]
	handle *Handle[R]
}

// New constructs a Processor. name identifies the batcher in logs and
// metrics (e.g. "memory-write", "vector-search", "graph-query").
func New[P any, R any](name string, cfg Config, dispatch Dispatcher[P, R], log mlog.Logger) *Processor[P, R] {
	queueCapacity := cfg.QueueCapacity
	if queueCapacity <= 0 {
		queueCapacity = cfg.Workers * 2
	}

	return &Processor[P, R]{
		cfg:      cfg,
		dispatch: dispatch,
		log:      log,
		name:     name,
		buckets:  make(map[Priority][]*requestEntry[P, R]),
		batches:  make(chan formedBatch[P, R], queueCapacity),
		flushC:   make(chan struct{}, 1),
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
}

// Start spawns the flush-timer loop and the worker pool. It must be
// called once before Submit.
func (p *Processor[P, R]) Start(ctx context.Context) {
	p.eg = new(errgroup.Group)

	p.eg.Go(func() error {
		p.flushLoop(ctx)
		return nil
	})

	for i := 0; i < p.cfg.Workers; i++ {
		p.eg.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}
}

// Stop cooperatively drains all pending buckets, dispatches a final
// batch, then waits (bounded) for workers to finish in-flight batches.
func (p *Processor[P, R]) Stop(ctx context.Context) {
	close(p.stopC)

	p.mu.Lock()
	p.stopping = true
	p.flushLocked(true)
	p.mu.Unlock()

	close(p.batches)

	waitDone := make(chan struct{})
	go func() {
		_ = p.eg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		p.log.Warn("batch processor shutdown timed out waiting for workers", mlog.String("batcher", p.name))
	}

	close(p.doneC)
}

// Submit enqueues a request and blocks until it is dispatched and
// resolved, ctx is done, or the configured request timeout elapses,
// whichever comes first.
func (p *Processor[P, R]) Submit(ctx context.Context, params P, priority Priority) (R, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.RequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	entry := &requestEntry[P, R]{
		req: Request[P, R]{
			Params:     params,
			Priority:   priority,
			EnqueuedAt: time.Now(),
		},
		handle: newHandle[R](),
	}

	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return zeroResult[R](), shutdownError()
	}
	p.buckets[priority] = append(p.buckets[priority], entry)
	p.pending++
	shouldFlush := p.pending >= p.cfg.BatchSize
	p.mu.Unlock()

	if shouldFlush {
		p.signalFlush()
	}

	result, err := entry.handle.Wait(reqCtx)
	if err != nil && reqCtx.Err() != nil {
		select {
		case <-entry.handle.done:
		default:
			p.metrics.recordTimeout()
		}
	}

	return result, err
}

func (p *Processor[P, R]) signalFlush() {
	select {
	case p.flushC <- struct{}{}:
	default:
	}
}

func (p *Processor[P, R]) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopC:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.flushLocked(false)
			p.mu.Unlock()
		case <-p.flushC:
			p.mu.Lock()
			p.flushLocked(false)
			p.mu.Unlock()
		}
	}
}

// flushLocked drains buckets in priority order and forms batches of at
// most BatchSize requests. Unlike the original implementation, a bucket
// that has more than BatchSize requests keeps its undrained remainder at
// the head of the bucket for the next flush pass, rather than discarding
// it: the original truncated via batch[:batch_size] and broke out of the
// loop, silently dropping everything past the cap.
//
// final forces every remaining request out, regardless of bucket size,
// used during Stop.
func (p *Processor[P, R]) flushLocked(final bool) {
	var batch []*requestEntry[P, R]

	for _, prio := range drainOrder {
		bucket := p.buckets[prio]
		if len(bucket) == 0 {
			continue
		}

		room := p.cfg.BatchSize - len(batch)
		if !final && room <= 0 {
			break
		}

		take := len(bucket)
		if !final && take > room {
			take = room
		}

		batch = append(batch, bucket[:take]...)
		remainder := bucket[take:]
		if len(remainder) == 0 {
			delete(p.buckets, prio)
		} else {
			p.buckets[prio] = remainder
		}

		if !final && len(batch) >= p.cfg.BatchSize {
			break
		}
	}

	if len(batch) == 0 {
		return
	}

	p.pending -= len(batch)
	p.metrics.recordFlush()

	requests := make([]Request[P, R], len(batch))
	for i, entry := range batch {
		requests[i] = entry.req
		requests[i].handle = entry.handle
	}

	fb := formedBatch[P, R]{requests: requests}

	select {
	case p.batches <- fb:
	default:
		// Channel full: dispatch on a separate goroutine rather than drop the batch.
		go p.dispatchBatch(context.Background(), fb)
	}
}

func (p *Processor[P, R]) worker(ctx context.Context) {
	for fb := range p.batches {
		p.dispatchBatch(ctx, fb)
	}
}

func (p *Processor[P, R]) dispatchBatch(ctx context.Context, fb formedBatch[P, R]) {
	start := time.Now()

	attempts := 0
	results, err := resilience.Retry(ctx, p.cfg.Retry, func(error) bool { return true },
		func(ctx context.Context) ([]Result[R], error) {
			attempts++
			if attempts > 1 {
				p.metrics.recordRetry()
			}
			return p.dispatch(ctx, fb.requests)
		})

	p.metrics.recordBatch(len(fb.requests), time.Since(start))

	if err != nil {
		p.metrics.recordFailed(len(fb.requests))
		wrapped := merrors.New(merrors.Network, "BATCH_DISPATCH_FAILED", "batch dispatch failed after retries").
			WithCause(err).
			WithDetails(map[string]any{"batcher": p.name, "batch_size": len(fb.requests)})
		for _, req := range fb.requests {
			req.handle.resolve(zeroResult[R](), wrapped)
		}
		return
	}

	p.metrics.recordProcessed(len(fb.requests))
	for i, req := range fb.requests {
		if i >= len(results) {
			req.handle.resolve(zeroResult[R](), merrors.New(merrors.System, "BATCH_RESULT_MISSING", "dispatcher returned fewer results than requests"))
			continue
		}
		req.handle.resolve(results[i].Value, results[i].Err)
	}
}

func zeroResult[R any]() R {
	var zero R
	return zero
}

// shutdownError is returned to any request that never reaches dispatch
// because the processor is stopping, per spec.md §5/§7.
func shutdownError() error {
	return merrors.New(merrors.System, "BATCHER_SHUTDOWN", "shutdown")
}

// Stats returns a snapshot of this processor's dispatch metrics.
func (p *Processor[P, R]) Stats() Stats {
	p.mu.Lock()
	pending := p.pending
	p.mu.Unlock()

	return p.metrics.snapshot(len(p.batches), pending)
}
