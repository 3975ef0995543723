package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/resilience"
)

// RelationalConfig configures the pgvector-capable relational pool, per
// spec.md §4.4's table row.
type RelationalConfig struct {
	DSN                string
	Min                int32
	Max                int32
	AcquireTimeout     time.Duration
	StatementTimeout   time.Duration
	HealthCheckInterval   time.Duration
	RecoveryCheckInterval time.Duration
}

// DefaultRelationalConfig applies spec.md §4.4's defaults.
func DefaultRelationalConfig(dsn string) RelationalConfig {
	return RelationalConfig{
		DSN:                   dsn,
		Min:                   20,
		Max:                   100,
		AcquireTimeout:        time.Second,
		StatementTimeout:      30 * time.Second,
		HealthCheckInterval:   30 * time.Second,
		RecoveryCheckInterval: 10 * time.Second,
	}
}

// RelationalPool is the connection-pool manager's relational (pgvector)
// pool, grounded on common/mpostgres.PostgresConnection's Connect/GetDB
// shape, realized over pgxpool directly so pre-warm/min/max/acquire-timeout
// map onto native pgxpool.Config fields.
type RelationalPool struct {
	cfg     RelationalConfig
	pool    *pgxpool.Pool
	health  *healthState
	metrics *metrics
	breaker *resilience.Breaker
	log     mlog.Logger
}

// NewRelationalPool builds and pre-warms the pool. Pre-warm failures are
// logged but never prevent construction from returning; the health loop
// retries later.
func NewRelationalPool(ctx context.Context, cfg RelationalConfig, log mlog.Logger, breaker *resilience.Breaker) (*RelationalPool, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, merrors.New(merrors.Validation, "POOL_CONFIG_INVALID", "invalid relational DSN").WithCause(err)
	}

	pgxCfg.MinConns = cfg.Min
	pgxCfg.MaxConns = cfg.Max

	pgxCfg.ConnConfig.RuntimeParams["jit"] = "off"

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = '%s'", cfg.StatementTimeout))
		return err
	}

	rawPool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, merrors.New(merrors.ExternalService, "POOL_CREATE_FAILED", "failed to create relational pool").WithCause(err)
	}

	p := &RelationalPool{
		cfg:     cfg,
		pool:    rawPool,
		health:  newHealthState(),
		metrics: newMetrics(),
		breaker: breaker,
		log:     log,
	}

	p.preWarm(ctx)

	return p, nil
}

func (p *RelationalPool) preWarm(ctx context.Context) {
	for i := int32(0); i < p.cfg.Min; i++ {
		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			p.log.Warn("relational pool pre-warm connection failed", mlog.Err(err))
			continue
		}

		if err := conn.Ping(ctx); err != nil {
			p.log.Warn("relational pool pre-warm validation failed", mlog.Err(err))
		} else {
			p.metrics.created.Add(1)
		}

		conn.Release()
	}
}

// Acquire borrows a connection. If the pool is DEGRADED, it fails fast with
// an ExternalService error instead of blocking up to the acquire timeout.
func (p *RelationalPool) Acquire(ctx context.Context) (*Handle[*pgxpool.Conn], error) {
	if p.health.get() == DEGRADED {
		return nil, merrors.New(merrors.ExternalService, "POOL_DEGRADED", "relational pool is degraded")
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(ctx)

	p.metrics.recordAcquireWait(time.Since(start))

	if err != nil {
		p.metrics.failed.Add(1)
		return nil, merrors.New(merrors.ExternalService, "POOL_ACQUIRE_TIMEOUT", "relational pool acquire timed out").WithCause(err)
	}

	p.metrics.inUse.Add(1)

	handle := newHandle(conn, func(valid bool) {
		p.metrics.inUse.Add(-1)

		if !valid {
			conn.Conn().Close(context.Background())
		}

		conn.Release()
	})

	return handle, nil
}

// HealthCheck runs a trivial validation on a borrowed connection, updating
// the pool's Health per spec.md §4.4's health-loop rules. threshold is the
// consecutive-failure count that flips HEALTHY -> DEGRADED.
func (p *RelationalPool) HealthCheck(ctx context.Context, threshold int) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	err := p.pool.Ping(ctx)

	p.metrics.recordHealthCheck(err == nil, time.Now())

	if err != nil {
		if ctx.Err() != nil {
			p.health.recordValidationTimeout()
			return
		}

		if p.health.recordFailure(threshold) {
			p.log.Warn("relational pool transitioned to degraded")
		}
	}
}

// Recover attempts re-validation; success flips RECOVERING -> HEALTHY after n
// consecutive successes.
func (p *RelationalPool) Recover(ctx context.Context, consecutiveOK int) (recovered bool) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	if err := p.pool.Ping(ctx); err != nil {
		p.health.recordRecoveryFailure()
		return false
	}

	return p.health.recordRecoverySuccess(consecutiveOK)
}

// BeginRecovery reports whether this caller should spawn the recovery loop
// (at most one at a time, per spec.md §4.4).
func (p *RelationalPool) BeginRecovery() bool { return p.health.beginRecovery() }

// Health returns the pool's current observed state.
func (p *RelationalPool) Health() Health { return p.health.get() }

// Stats returns the metrics surface required by spec.md §4.4.
func (p *RelationalPool) Stats() Stats {
	s := p.pool.Stat()
	return p.metrics.snapshot(uint64(s.IdleConns()), p.health.get())
}

// Close shuts the pool down.
func (p *RelationalPool) Close() {
	p.pool.Close()
	p.metrics.closed.Add(1)
}
