package pool

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// KeyValueConfig configures the key-value pool, per spec.md §4.4's table row.
type KeyValueConfig struct {
	URL string

	Min                   int
	Max                   int
	AcquireTimeout        time.Duration
	HealthCheckInterval   time.Duration
	RecoveryCheckInterval time.Duration
}

// DefaultKeyValueConfig applies spec.md §4.4's defaults.
func DefaultKeyValueConfig(url string) KeyValueConfig {
	return KeyValueConfig{
		URL:                   url,
		Min:                   10,
		Max:                   50,
		AcquireTimeout:        500 * time.Millisecond,
		HealthCheckInterval:   30 * time.Second,
		RecoveryCheckInterval: 10 * time.Second,
	}
}

// KeyValuePool wraps a single shared *redis.Client, grounded directly on
// common/mredis.RedisConnection's Connect/GetDB/ping shape.
type KeyValuePool struct {
	cfg     KeyValueConfig
	client  *redis.Client
	health  *healthState
	metrics *metrics
	log     mlog.Logger
}

// NewKeyValuePool parses cfg.URL, connects, and pings.
func NewKeyValuePool(ctx context.Context, cfg KeyValueConfig, log mlog.Logger) (*KeyValuePool, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, merrors.New(merrors.Validation, "KV_POOL_CONFIG_INVALID", "invalid redis URL").WithCause(err)
	}

	opts.PoolSize = cfg.Max
	opts.MinIdleConns = cfg.Min
	opts.DialTimeout = cfg.AcquireTimeout

	client := redis.NewClient(opts)

	p := &KeyValuePool{cfg: cfg, client: client, health: newHealthState(), metrics: newMetrics(), log: log}

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("key-value pool pre-warm ping failed", mlog.Err(err))
	} else {
		p.metrics.created.Add(1)
	}

	return p, nil
}

// Client returns the shared redis client. Per spec.md §6's facade, the
// key-value pool exposes a direct client rather than a scoped handle — the
// driver itself multiplexes connections under the hood.
func (p *KeyValuePool) Client() (*redis.Client, error) {
	if p.health.get() == DEGRADED {
		return nil, merrors.New(merrors.ExternalService, "KV_POOL_DEGRADED", "key-value pool is degraded")
	}

	return p.client, nil
}

// HealthCheck pings the server.
func (p *KeyValuePool) HealthCheck(ctx context.Context, threshold int) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	start := time.Now()
	err := p.client.Ping(ctx).Err()

	p.metrics.recordAcquireWait(time.Since(start))
	p.metrics.recordHealthCheck(err == nil, time.Now())

	if err != nil {
		if ctx.Err() != nil {
			p.health.recordValidationTimeout()
			return
		}

		if p.health.recordFailure(threshold) {
			p.log.Warn("key-value pool transitioned to degraded")
		}
	}
}

// Recover re-pings the server.
func (p *KeyValuePool) Recover(ctx context.Context, consecutiveOK int) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	if err := p.client.Ping(ctx).Err(); err != nil {
		p.health.recordRecoveryFailure()
		return false
	}

	return p.health.recordRecoverySuccess(consecutiveOK)
}

// BeginRecovery reports whether this caller should spawn the recovery loop.
func (p *KeyValuePool) BeginRecovery() bool { return p.health.beginRecovery() }

// Health returns the pool's current observed state.
func (p *KeyValuePool) Health() Health { return p.health.get() }

// Stats returns the metrics surface required by spec.md §4.4.
func (p *KeyValuePool) Stats() Stats {
	s := p.client.PoolStats()
	return p.metrics.snapshot(uint64(s.IdleConns), p.health.get())
}

// Close shuts the client down.
func (p *KeyValuePool) Close() error {
	p.metrics.closed.Add(1)
	return p.client.Close()
}
