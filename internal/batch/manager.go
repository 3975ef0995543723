package batch

import (
	"context"

	"github.com/DrJLabs/forgetful-core/internal/cache"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/pool"
)

// Manager owns the three domain batchers (write, vector search, graph
// query) and their shared lifecycle, per spec.md §6's batcher facade.
type Manager struct {
	Write        *WriteBatcher
	VectorSearch *VectorSearchBatcher
	GraphQuery   *GraphQueryBatcher
}

// NewManager constructs all three batchers over the given pool manager
// and cache.
func NewManager(pools *pool.Manager, mc *cache.MultiLayer, log mlog.Logger) *Manager {
	return &Manager{
		Write:        NewWriteBatcher(DefaultWriteConfig(), pools, mc, log),
		VectorSearch: NewVectorSearchBatcher(DefaultVectorSearchConfig(), pools, log),
		GraphQuery:   NewGraphQueryBatcher(DefaultGraphQueryConfig(), pools, log),
	}
}

// Start spawns every batcher's flush and worker loops.
func (m *Manager) Start(ctx context.Context) {
	m.Write.Start(ctx)
	m.VectorSearch.Start(ctx)
	m.GraphQuery.Start(ctx)
}

// Stop drains and halts every batcher, bounded by ctx.
func (m *Manager) Stop(ctx context.Context) {
	m.Write.Stop(ctx)
	m.VectorSearch.Stop(ctx)
	m.GraphQuery.Stop(ctx)
}

// ManagerStats aggregates dispatch metrics across all three batchers.
type ManagerStats struct {
	Write        Stats
	VectorSearch Stats
	GraphQuery   Stats
}

// Stats returns a snapshot of every batcher's metrics.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Write:        m.Write.Stats(),
		VectorSearch: m.VectorSearch.Stats(),
		GraphQuery:   m.GraphQuery.Stats(),
	}
}
