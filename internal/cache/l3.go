package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// L3Config configures the parameterized query-result layer, per spec.md
// §4.5's table row.
type L3Config struct {
	TTL               time.Duration
	MaxPreparedQueries int
}

// DefaultL3Config applies spec.md §4.5's stated defaults (30 min, cap 1000).
func DefaultL3Config() L3Config {
	return L3Config{TTL: 30 * time.Minute, MaxPreparedQueries: 1000}
}

type preparedStatement struct {
	queryText string
	addedAt   int64 // monotonic insertion sequence, not wall clock
}

// l3 is the parameterized query-result cache plus prepared-statement
// registry, grounded on original_source/shared/caching.py's
// OptimizedL3QueryCache, including its bounded "remove oldest 10%, never
// more than 100 per pass" cleanup rule — but keying results with spec.md
// §3's stated 16/32-hex-char convention rather than the original's
// untruncated sha256 hex.
type l3 struct {
	cfg L3Config
	log mlog.Logger

	mu       sync.Mutex
	results  map[Key]*Entry
	prepared map[string]*preparedStatement
	// preparedOrder preserves insertion order for the oldest-10% cleanup;
	// prepared statement keys are appended here and never reordered.
	preparedOrder []string
	seq           int64

	metrics layerMetrics
}

func newL3(cfg L3Config, log mlog.Logger) *l3 {
	return &l3{
		cfg:      cfg,
		log:      log,
		results:  make(map[Key]*Entry),
		prepared: make(map[string]*preparedStatement),
	}
}

func queryCacheKey(query string, params string) Key {
	return NewQueryKey("query", "result", map[string]any{"q": query, "p": params})
}

func preparedStatementKey(query string) string {
	digest := sha256.Sum256([]byte(query))
	return hex.EncodeToString(digest[:])[:16]
}

func (c *l3) getResult(query, params string) ([]byte, bool) {
	key := queryCacheKey(query, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.results[key]
	if !ok {
		c.metrics.misses.Add(1)
		return nil, false
	}

	if entry.expired() {
		delete(c.results, key)
		c.metrics.misses.Add(1)
		return nil, false
	}

	entry.touch()
	c.metrics.hits.Add(1)
	return entry.Value, true
}

func (c *l3) cacheResult(query, params string, result []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	key := queryCacheKey(query, params)
	stmtKey := preparedStatementKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.prepared[stmtKey]; !exists {
		c.seq++
		c.prepared[stmtKey] = &preparedStatement{queryText: query, addedAt: c.seq}
		c.preparedOrder = append(c.preparedOrder, stmtKey)
	}

	c.results[key] = newEntry(result, ttl)

	if len(c.prepared) > c.cfg.MaxPreparedQueries {
		c.cleanupLocked()
	}
}

// cleanupLocked removes the oldest 10% of prepared statements, but never
// more than 100 per pass, per spec.md §4.5.
func (c *l3) cleanupLocked() {
	total := len(c.prepared)
	if total <= c.cfg.MaxPreparedQueries {
		return
	}

	cleanupCount := total / 10
	if cleanupCount < 1 {
		cleanupCount = 1
	}
	if cleanupCount > 100 {
		cleanupCount = 100
	}

	removed := 0
	remaining := c.preparedOrder[:0]
	for _, stmtKey := range c.preparedOrder {
		if removed < cleanupCount {
			if _, ok := c.prepared[stmtKey]; ok {
				delete(c.prepared, stmtKey)
				removed++
				continue
			}
		}
		remaining = append(remaining, stmtKey)
	}
	c.preparedOrder = remaining

	c.log.Debug("l3 prepared-statement registry cleaned up", mlog.Int("removed", removed))
}

// invalidateTable clears every cached result if any registered prepared
// query text mentions tableName, and clears nothing otherwise; passing ""
// clears everything. Results are not tracked per query, so results of
// queries that do not mention tableName are dropped as well.
func (c *l3) invalidateTable(tableName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tableName == "" {
		n := len(c.results)
		c.results = make(map[Key]*Entry)
		return n
	}

	touches := false
	for _, stmt := range c.prepared {
		if strings.Contains(stmt.queryText, tableName) {
			touches = true
			break
		}
	}
	if !touches {
		return 0
	}

	n := len(c.results)
	c.results = make(map[Key]*Entry)
	return n
}

func (c *l3) stats() LayerStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bytesInUse uint64
	for _, entry := range c.results {
		bytesInUse += uint64(entry.Size)
	}
	return c.metrics.snapshot(bytesInUse, 0)
}
