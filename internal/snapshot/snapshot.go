// Package snapshot defines the hook spec.md §9's first open question asks
// for: the source's scoring/deduplication/tagging modules carry per-process
// learning state whose persistence policy is left to the out-of-scope
// ranking layer. The core exposes the capability; nothing here calls it
// automatically.
package snapshot

import "context"

// Source is implemented by any in-core component holding ephemeral
// per-process state worth externalizing across restarts.
// cache.MultiLayer and resilience.BreakerManager both implement it: their
// in-memory entries and breaker counters are the closest in-scope analogue
// to the source's adaptive learning state.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, data []byte) error
}

// Registry collects named Sources so an out-of-scope operator layer can
// enumerate and drive snapshot/restore without the core hardcoding a
// policy about when that should happen.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a named Source. A duplicate name overwrites the prior entry.
func (r *Registry) Register(name string, s Source) {
	r.sources[name] = s
}

// SnapshotAll captures every registered source, keyed by name. A failure on
// one source does not prevent the others from being captured; its error is
// recorded in errs.
func (r *Registry) SnapshotAll(ctx context.Context) (snapshots map[string][]byte, errs map[string]error) {
	snapshots = make(map[string][]byte, len(r.sources))
	errs = make(map[string]error)

	for name, s := range r.sources {
		data, err := s.Snapshot(ctx)
		if err != nil {
			errs[name] = err
			continue
		}
		snapshots[name] = data
	}

	return snapshots, errs
}

// RestoreAll restores every named snapshot into its registered source.
// Names with no matching registered source are ignored.
func (r *Registry) RestoreAll(ctx context.Context, snapshots map[string][]byte) map[string]error {
	errs := make(map[string]error)

	for name, data := range snapshots {
		s, ok := r.sources[name]
		if !ok {
			continue
		}

		if err := s.Restore(ctx, data); err != nil {
			errs[name] = err
		}
	}

	return errs
}
