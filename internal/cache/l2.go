package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// L2Config configures the remote key-value layer, per spec.md §4.5's table
// row.
type L2Config struct {
	TTL time.Duration
}

// DefaultL2Config applies spec.md §4.5's stated default (1 hour).
func DefaultL2Config() L2Config {
	return L2Config{TTL: time.Hour}
}

// l2 is the remote-cache layer, grounded on
// original_source/shared/caching.py's OptimizedL2RedisCache. The bytes it
// transports are already msgpack-encoded by the MultiLayer facade (a direct
// teacher dependency, github.com/vmihailenco/msgpack/v5) so round-tripped
// values keep their numeric/boolean types; l2 itself is a byte-oriented
// transport over a connection borrowed from the key-value pool rather than
// a private connection. Any transport error degrades silently to an
// "absent" result plus a fallback counter — it is never surfaced to the
// caller, per spec.md §4.5 and §7.
type l2 struct {
	cfg    L2Config
	client func() (*redis.Client, error)
	log    mlog.Logger

	metrics layerMetrics
}

func newL2(cfg L2Config, client func() (*redis.Client, error), log mlog.Logger) *l2 {
	return &l2{cfg: cfg, client: client, log: log}
}

func (c *l2) get(ctx context.Context, key Key) ([]byte, bool) {
	rdb, err := c.client()
	if err != nil {
		c.metrics.fallbacks.Add(1)
		return nil, false
	}

	value, err := rdb.Get(ctx, string(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("l2 cache get failed", mlog.Err(err))
			c.metrics.fallbacks.Add(1)
		} else {
			c.metrics.misses.Add(1)
		}
		return nil, false
	}

	c.metrics.hits.Add(1)
	return value, true
}

func (c *l2) set(ctx context.Context, key Key, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	rdb, err := c.client()
	if err != nil {
		c.metrics.fallbacks.Add(1)
		return
	}

	if err := rdb.Set(ctx, string(key), value, ttl).Err(); err != nil {
		c.log.Warn("l2 cache set failed", mlog.Err(err))
		c.metrics.fallbacks.Add(1)
	}
}

// invalidateUser performs a bounded-batch SCAN-and-delete (never KEYS *),
// per spec.md §4.5's invalidation contract.
func (c *l2) invalidateUser(ctx context.Context, userID string) int {
	rdb, err := c.client()
	if err != nil {
		c.metrics.fallbacks.Add(1)
		return 0
	}

	pattern := "*" + UserScopeMarker(userID) + "*"

	var cursor uint64
	var deleted int

	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.Warn("l2 cache invalidation scan failed", mlog.Err(err))
			c.metrics.fallbacks.Add(1)
			return deleted
		}

		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("l2 cache invalidation delete failed", mlog.Err(err))
			} else {
				deleted += len(keys)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted
}

func (c *l2) stats() LayerStats {
	return c.metrics.snapshot(0, 0)
}
