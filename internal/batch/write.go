package batch

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DrJLabs/forgetful-core/internal/cache"
	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/pool"
)

// MemoryWrite is a single pending memory-write request, keyed by the
// owning principal so writes for the same principal can share a
// transaction.
type MemoryWrite struct {
	PrincipalID string
	Content     string
	Embedding   []float32
	Metadata    map[string]any
}

// MemoryWriteResult is the outcome of one committed memory write.
type MemoryWriteResult struct {
	ID string
}

// WriteBatcher groups memory writes by principal and commits each group in
// a single transaction, then invalidates that principal's cache entries.
// The original implementation never invalidated the cache after a write
// batch committed; this does, per spec.md §4.6.
type WriteBatcher struct {
	proc *Processor[MemoryWrite, MemoryWriteResult]
}

// DefaultWriteConfig matches the original MemoryWriteBatcher's tuning.
func DefaultWriteConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 50
	cfg.FlushInterval = 100 * time.Millisecond
	cfg.Workers = 2
	return cfg
}

// NewWriteBatcher constructs a WriteBatcher dispatching over pools and
// invalidating cache entries on commit.
func NewWriteBatcher(cfg Config, pools *pool.Manager, mc *cache.MultiLayer, log mlog.Logger) *WriteBatcher {
	wb := &WriteBatcher{}
	wb.proc = New[MemoryWrite, MemoryWriteResult]("memory-write", cfg, wb.dispatch(pools, mc, log), log)
	return wb
}

func (wb *WriteBatcher) dispatch(pools *pool.Manager, mc *cache.MultiLayer, log mlog.Logger) Dispatcher[MemoryWrite, MemoryWriteResult] {
	return func(ctx context.Context, batch []Request[MemoryWrite, MemoryWriteResult]) ([]Result[MemoryWriteResult], error) {
		groups := make(map[string][]int)
		for i, req := range batch {
			groups[req.Params.PrincipalID] = append(groups[req.Params.PrincipalID], i)
		}

		results := make([]Result[MemoryWriteResult], len(batch))

		for principalID, indices := range groups {
			if err := wb.writeGroup(ctx, pools, batch, indices, results); err != nil {
				for _, i := range indices {
					results[i] = Result[MemoryWriteResult]{Err: err}
				}
				continue
			}

			mc.InvalidateUser(ctx, principalID)
		}

		return results, nil
	}
}

func (wb *WriteBatcher) writeGroup(ctx context.Context, pools *pool.Manager, batch []Request[MemoryWrite, MemoryWriteResult], indices []int, results []Result[MemoryWriteResult]) error {
	handle, err := pools.AcquireRelational(ctx)
	if err != nil {
		return merrors.New(merrors.ExternalService, "WRITE_BATCH_ACQUIRE_FAILED", "failed to acquire relational connection for write batch").WithCause(err)
	}
	defer handle.Release(true)

	var tx pgx.Tx
	tx, err = handle.Conn.Begin(ctx)
	if err != nil {
		return merrors.New(merrors.ExternalService, "WRITE_BATCH_TX_FAILED", "failed to begin write transaction").WithCause(err)
	}

	for _, i := range indices {
		req := batch[i].Params

		var id string
		err := tx.QueryRow(ctx,
			`INSERT INTO memories (principal_id, content, embedding, metadata) VALUES ($1, $2, $3, $4) RETURNING id`,
			req.PrincipalID, req.Content, pgvectorLiteral(req.Embedding), req.Metadata,
		).Scan(&id)
		if err != nil {
			_ = tx.Rollback(ctx)
			return merrors.New(merrors.ExternalService, "WRITE_BATCH_INSERT_FAILED", "memory insert failed").WithCause(err)
		}

		results[i] = Result[MemoryWriteResult]{Value: MemoryWriteResult{ID: id}}
	}

	if err := tx.Commit(ctx); err != nil {
		return merrors.New(merrors.ExternalService, "WRITE_BATCH_COMMIT_FAILED", "write transaction commit failed").WithCause(err)
	}

	return nil
}

// Submit enqueues a memory write for batched commit.
func (wb *WriteBatcher) Submit(ctx context.Context, w MemoryWrite, priority Priority) (MemoryWriteResult, error) {
	return wb.proc.Submit(ctx, w, priority)
}

// Start spawns the batcher's flush and worker loops.
func (wb *WriteBatcher) Start(ctx context.Context) { wb.proc.Start(ctx) }

// Stop drains pending writes and halts the batcher.
func (wb *WriteBatcher) Stop(ctx context.Context) { wb.proc.Stop(ctx) }

// Stats returns the batcher's dispatch metrics.
func (wb *WriteBatcher) Stats() Stats { return wb.proc.Stats() }
