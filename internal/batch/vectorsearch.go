package batch

import (
	"context"
	"time"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/pool"
)

// VectorSearchQuery is one pending similarity search.
type VectorSearchQuery struct {
	PrincipalID string
	Embedding   []float32
	Limit       int
}

// VectorSearchMatch is a single similarity-ranked row.
type VectorSearchMatch struct {
	ID       string
	Content  string
	Distance float64
}

// VectorSearchResult carries every match for one query, ordered by
// ascending distance.
type VectorSearchResult struct {
	Matches []VectorSearchMatch
}

// VectorSearchBatcher groups similarity searches onto a single acquired
// connection per batch, issuing one query per request — the original
// implementation does the same (one connection, N sequential queries),
// since pgvector's <-> operator has no native multi-query batched form.
type VectorSearchBatcher struct {
	proc *Processor[VectorSearchQuery, VectorSearchResult]
}

// DefaultVectorSearchConfig matches the original VectorSearchBatcher's tuning.
func DefaultVectorSearchConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 20
	cfg.FlushInterval = 50 * time.Millisecond
	cfg.Workers = 4
	return cfg
}

// NewVectorSearchBatcher constructs a VectorSearchBatcher over the pool
// manager's relational pool.
func NewVectorSearchBatcher(cfg Config, pools *pool.Manager, log mlog.Logger) *VectorSearchBatcher {
	vb := &VectorSearchBatcher{}
	vb.proc = New[VectorSearchQuery, VectorSearchResult]("vector-search", cfg, vb.dispatch(pools), log)
	return vb
}

func (vb *VectorSearchBatcher) dispatch(pools *pool.Manager) Dispatcher[VectorSearchQuery, VectorSearchResult] {
	return func(ctx context.Context, batch []Request[VectorSearchQuery, VectorSearchResult]) ([]Result[VectorSearchResult], error) {
		handle, err := pools.AcquireRelational(ctx)
		if err != nil {
			return nil, merrors.New(merrors.ExternalService, "VECTOR_BATCH_ACQUIRE_FAILED", "failed to acquire relational connection for vector batch").WithCause(err)
		}
		defer handle.Release(true)

		results := make([]Result[VectorSearchResult], len(batch))

		for i, req := range batch {
			limit := req.Params.Limit
			if limit <= 0 {
				limit = 10
			}

			rows, err := handle.Conn.Query(ctx,
				`SELECT id, content, (embedding <-> $1::vector) AS distance
				 FROM memories
				 WHERE principal_id = $2
				 ORDER BY distance ASC
				 LIMIT $3`,
				pgvectorLiteral(req.Params.Embedding), req.Params.PrincipalID, limit,
			)
			if err != nil {
				results[i] = Result[VectorSearchResult]{Err: merrors.New(merrors.ExternalService, "VECTOR_QUERY_FAILED", "similarity query failed").WithCause(err)}
				continue
			}

			var matches []VectorSearchMatch
			for rows.Next() {
				var m VectorSearchMatch
				if err := rows.Scan(&m.ID, &m.Content, &m.Distance); err != nil {
					results[i] = Result[VectorSearchResult]{Err: merrors.New(merrors.ExternalService, "VECTOR_SCAN_FAILED", "similarity row scan failed").WithCause(err)}
					matches = nil
					break
				}
				matches = append(matches, m)
			}
			rows.Close()

			if results[i].Err == nil {
				results[i] = Result[VectorSearchResult]{Value: VectorSearchResult{Matches: matches}}
			}
		}

		return results, nil
	}
}

// Submit enqueues a similarity search for batched dispatch.
func (vb *VectorSearchBatcher) Submit(ctx context.Context, q VectorSearchQuery, priority Priority) (VectorSearchResult, error) {
	return vb.proc.Submit(ctx, q, priority)
}

// Start spawns the batcher's flush and worker loops.
func (vb *VectorSearchBatcher) Start(ctx context.Context) { vb.proc.Start(ctx) }

// Stop drains pending searches and halts the batcher.
func (vb *VectorSearchBatcher) Stop(ctx context.Context) { vb.proc.Stop(ctx) }

// Stats returns the batcher's dispatch metrics.
func (vb *VectorSearchBatcher) Stats() Stats { return vb.proc.Stats() }
