package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// Config bundles the three layers' configuration, loaded from
// cache.l1/l2/l3 in the process configuration (see internal/config).
type Config struct {
	L1 L1Config
	L2 L2Config
	L3 L3Config
}

// DefaultConfig applies spec.md §4.5's stated defaults across all layers.
func DefaultConfig() Config {
	return Config{L1: DefaultL1Config(), L2: DefaultL2Config(), L3: DefaultL3Config()}
}

// MultiLayer is the cache facade required by spec.md §6: Get, Set, Warm,
// InvalidateUser, CacheQueryResult, GetQueryResult, Stats.
type MultiLayer struct {
	l1 *l1
	l2 *l2
	l3 *l3

	log mlog.Logger
}

// NewMultiLayer constructs the three-layer cache. client is deferred (not a
// *redis.Client directly) so MultiLayer can be constructed before the
// key-value pool finishes connecting; it is typically pool.Manager.KeyValueClient.
func NewMultiLayer(cfg Config, client func() (*redis.Client, error), log mlog.Logger) *MultiLayer {
	return &MultiLayer{
		l1: newL1(cfg.L1),
		l2: newL2(cfg.L2, client, log),
		l3: newL3(cfg.L3, log),
		log: log,
	}
}

// Get reads through L1 then L2, populating L1 on an L2 hit. A total miss
// returns (nil, false) — spec.md's "absent" sentinel. L3 is never consulted
// here; it is addressed only via CacheQueryResult/GetQueryResult.
func (m *MultiLayer) Get(ctx context.Context, key Key) (any, bool) {
	if entry, ok := m.l1.get(key); ok {
		value, err := decode(entry.Value)
		if err != nil {
			return nil, false
		}
		return value, true
	}

	raw, ok := m.l2.get(ctx, key)
	if !ok {
		return nil, false
	}

	value, err := decode(raw)
	if err != nil {
		return nil, false
	}

	m.l1.set(key, raw, 0)
	return value, true
}

// Set writes to L1 and L2.
func (m *MultiLayer) Set(ctx context.Context, key Key, value any, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}

	m.l1.set(key, raw, ttl)
	m.l2.set(ctx, key, raw, ttl)
	return nil
}

// Warm sets a value in L1 (marked hot, exempt from eviction until expiry)
// and L2, per spec.md §4.5.
func (m *MultiLayer) Warm(ctx context.Context, key Key, value any, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}

	m.l1.warm(key, raw, ttl)
	m.l2.set(ctx, key, raw, ttl)
	return nil
}

// InvalidateUser removes every L1 and L2 entry whose key carries the given
// user's scope marker, and the L3 results if any registered query touches
// the memories table, per spec.md §4.5's coherence rule.
// It must be called before the triggering write's future is resolved.
func (m *MultiLayer) InvalidateUser(ctx context.Context, userID string) {
	l1Removed := m.l1.invalidateUser(userID)
	l2Removed := m.l2.invalidateUser(ctx, userID)
	l3Removed := m.l3.invalidateTable("memories")

	m.log.Debug("cache invalidated for user",
		mlog.String("user_id", userID),
		mlog.Int("l1_removed", l1Removed),
		mlog.Int("l2_removed", l2Removed),
		mlog.Int("l3_removed", l3Removed),
	)
}

// CacheQueryResult writes a parameterized query's result into L3 only.
func (m *MultiLayer) CacheQueryResult(query, params string, result any, ttl time.Duration) error {
	raw, err := encode(result)
	if err != nil {
		return err
	}
	m.l3.cacheResult(query, params, raw, ttl)
	return nil
}

// GetQueryResult reads a parameterized query's result from L3 only.
func (m *MultiLayer) GetQueryResult(query, params string) (any, bool) {
	raw, ok := m.l3.getResult(query, params)
	if !ok {
		return nil, false
	}
	value, err := decode(raw)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Stats returns the comprehensive per-layer and overall view required by
// spec.md §4.5 and §6.
func (m *MultiLayer) Stats() Stats {
	l1Stats := m.l1.stats()
	l2Stats := m.l2.stats()
	l3Stats := m.l3.stats()

	return Stats{
		TotalRequests: l1Stats.Hits + l1Stats.Misses + l3Stats.Hits + l3Stats.Misses,
		L1Hits:        l1Stats.Hits,
		L2Hits:        l2Stats.Hits,
		L3Hits:        l3Stats.Hits,
		CacheMisses:   l2Stats.Misses,
		L1:            l1Stats,
		L2:            l2Stats,
		L3:            l3Stats,
	}
}

// encode/decode use msgpack (a direct teacher dependency) so round-tripped
// values retain numeric/boolean types across the L1/L2 byte boundary,
// matching original_source/shared/caching.py's choice of msgpack over JSON.
func encode(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func decode(raw []byte) (any, error) {
	var value any
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}
