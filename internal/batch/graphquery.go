package batch

import (
	"context"
	"time"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/pool"
)

// GraphQuery is one pending Cypher query.
type GraphQuery struct {
	Cypher string
	Params map[string]any
}

// GraphQueryResult carries the raw records returned by one query.
type GraphQueryResult struct {
	Records []map[string]any
}

// GraphQueryBatcher dispatches each query in a batch over its own Neo4j
// session. The original implementation opened a single session for the
// whole batch and ran every query through it; a long-running query earlier
// in the batch then serializes every query after it on the same session,
// and a failure mid-batch can taint the session for the rest. This opens
// one session per query instead, per spec.md §4.6.
type GraphQueryBatcher struct {
	proc *Processor[GraphQuery, GraphQueryResult]
}

// DefaultGraphQueryConfig matches the original GraphQueryBatcher's tuning.
func DefaultGraphQueryConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	cfg.FlushInterval = 100 * time.Millisecond
	cfg.Workers = 2
	return cfg
}

// NewGraphQueryBatcher constructs a GraphQueryBatcher over the pool
// manager's graph driver.
func NewGraphQueryBatcher(cfg Config, pools *pool.Manager, log mlog.Logger) *GraphQueryBatcher {
	gb := &GraphQueryBatcher{}
	gb.proc = New[GraphQuery, GraphQueryResult]("graph-query", cfg, gb.dispatch(pools), log)
	return gb
}

func (gb *GraphQueryBatcher) dispatch(pools *pool.Manager) Dispatcher[GraphQuery, GraphQueryResult] {
	return func(ctx context.Context, batch []Request[GraphQuery, GraphQueryResult]) ([]Result[GraphQueryResult], error) {
		results := make([]Result[GraphQueryResult], len(batch))

		for i, req := range batch {
			results[i] = gb.runOne(ctx, pools, req.Params)
		}

		return results, nil
	}
}

func (gb *GraphQueryBatcher) runOne(ctx context.Context, pools *pool.Manager, q GraphQuery) Result[GraphQueryResult] {
	handle, err := pools.AcquireGraph(ctx)
	if err != nil {
		return Result[GraphQueryResult]{Err: merrors.New(merrors.ExternalService, "GRAPH_BATCH_ACQUIRE_FAILED", "failed to acquire graph session").WithCause(err)}
	}
	defer handle.Release(true)

	cursor, err := handle.Conn.Run(ctx, q.Cypher, q.Params)
	if err != nil {
		return Result[GraphQueryResult]{Err: merrors.New(merrors.Classify(err), "GRAPH_QUERY_FAILED", "cypher query failed").WithCause(err)}
	}

	var records []map[string]any
	for cursor.Next(ctx) {
		record := cursor.Record()
		row := make(map[string]any, len(record.Keys))
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row[key] = value
		}
		records = append(records, row)
	}

	if err := cursor.Err(); err != nil {
		return Result[GraphQueryResult]{Err: merrors.New(merrors.Classify(err), "GRAPH_QUERY_STREAM_FAILED", "cypher result stream failed").WithCause(err)}
	}

	return Result[GraphQueryResult]{Value: GraphQueryResult{Records: records}}
}

// Submit enqueues a Cypher query for batched dispatch.
func (gb *GraphQueryBatcher) Submit(ctx context.Context, q GraphQuery, priority Priority) (GraphQueryResult, error) {
	return gb.proc.Submit(ctx, q, priority)
}

// Start spawns the batcher's flush and worker loops.
func (gb *GraphQueryBatcher) Start(ctx context.Context) { gb.proc.Start(ctx) }

// Stop drains pending queries and halts the batcher.
func (gb *GraphQueryBatcher) Stop(ctx context.Context) { gb.proc.Stop(ctx) }

// Stats returns the batcher's dispatch metrics.
func (gb *GraphQueryBatcher) Stats() Stats { return gb.proc.Stats() }
