package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// L1Config configures the in-process LRU layer, per spec.md §4.5's table row.
type L1Config struct {
	MaxBytes int64
	TTL      time.Duration
}

// DefaultL1Config applies spec.md §4.5's stated defaults (256 MiB, 5 min).
func DefaultL1Config() L1Config {
	return L1Config{MaxBytes: 256 * 1024 * 1024, TTL: 5 * time.Minute}
}

type l1Node struct {
	key   Key
	entry *Entry
}

// l1 is the in-process LRU with byte accounting, grounded on
// original_source/shared/caching.py's OptimizedL1Cache (dict + access-order
// list + lock), realized with container/list for O(1) recency updates.
// Warm()-ed entries are genuinely excluded from eviction scanning until
// their TTL elapses (the original's warm() does not actually grant this
// exemption; spec.md's stated behavior is implemented here instead).
type l1 struct {
	cfg L1Config

	mu          sync.Mutex
	index       map[Key]*list.Element
	recency     *list.List // front = most recently used
	currentSize int64
	metrics     layerMetrics
}

func newL1(cfg L1Config) *l1 {
	return &l1{
		cfg:     cfg,
		index:   make(map[Key]*list.Element),
		recency: list.New(),
	}
}

func (c *l1) get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.metrics.misses.Add(1)
		return nil, false
	}

	node := el.Value.(*l1Node)
	if node.entry.expired() {
		c.removeLocked(key)
		c.metrics.misses.Add(1)
		return nil, false
	}

	c.recency.MoveToFront(el)
	node.entry.touch()
	c.metrics.hits.Add(1)

	return node.entry, true
}

func (c *l1) set(key Key, value []byte, ttl time.Duration) {
	c.setEntry(key, value, ttl, false)
}

func (c *l1) warm(key Key, value []byte, ttl time.Duration) {
	c.setEntry(key, value, ttl, true)
	c.metrics.warmings.Add(1)
}

func (c *l1) setEntry(key Key, value []byte, ttl time.Duration, hot bool) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	entry := newEntry(value, ttl)
	entry.hot = hot

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[key]; exists {
		c.removeLocked(key)
	}

	for c.currentSize+int64(entry.Size) > c.cfg.MaxBytes && c.recency.Len() > 0 {
		if !c.evictOneLocked() {
			break // every remaining entry is hot; nothing left to evict
		}
	}

	el := c.recency.PushFront(&l1Node{key: key, entry: entry})
	c.index[key] = el
	c.currentSize += int64(entry.Size)
}

// evictOneLocked evicts the least-recently-used entry that is not a live hot
// entry (hot entries become evictable once expired). It returns false if no
// evictable entry exists, so the caller can stop trying rather than loop
// forever against an all-hot cache.
func (c *l1) evictOneLocked() bool {
	for el := c.recency.Back(); el != nil; el = el.Prev() {
		node := el.Value.(*l1Node)
		if node.entry.hot && !node.entry.expired() {
			continue
		}
		c.removeLocked(node.key)
		c.metrics.evictions.Add(1)
		return true
	}
	return false
}

func (c *l1) removeLocked(key Key) {
	el, ok := c.index[key]
	if !ok {
		return
	}
	node := el.Value.(*l1Node)
	c.currentSize -= int64(node.entry.Size)
	c.recency.Remove(el)
	delete(c.index, key)
}

// invalidateUser removes every key containing the per-user marker.
func (c *l1) invalidateUser(userID string) int {
	marker := UserScopeMarker(userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []Key
	for key := range c.index {
		if strings.Contains(string(key), marker) {
			toRemove = append(toRemove, key)
		}
	}
	for _, key := range toRemove {
		c.removeLocked(key)
	}
	return len(toRemove)
}

func (c *l1) stats() LayerStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hotCount uint64
	for el := c.recency.Front(); el != nil; el = el.Next() {
		if el.Value.(*l1Node).entry.hot {
			hotCount++
		}
	}

	return c.metrics.snapshot(uint64(c.currentSize), hotCount)
}
