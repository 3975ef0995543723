package pool

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// GraphConfig configures the graph pool, per spec.md §4.4's table row.
type GraphConfig struct {
	URI      string
	Username string
	Password string

	Min                   int
	Max                   int
	AcquireTimeout        time.Duration
	TransactionRetryHorizon time.Duration
	HealthCheckInterval     time.Duration
	RecoveryCheckInterval   time.Duration
}

// DefaultGraphConfig applies spec.md §4.4's defaults.
func DefaultGraphConfig(uri, username, password string) GraphConfig {
	return GraphConfig{
		URI:                     uri,
		Username:                username,
		Password:                password,
		Min:                     10,
		Max:                     50,
		AcquireTimeout:          time.Second,
		TransactionRetryHorizon: 10 * time.Second,
		HealthCheckInterval:     30 * time.Second,
		RecoveryCheckInterval:   10 * time.Second,
	}
}

// GraphPool wraps the neo4j driver with the uniform pre-warm/health/recovery
// contract shared by every pool kind, grounded structurally on
// common/mmongo's Connect/GetDB/ping-on-connect shape (the teacher's closest
// driver-open idiom) since the driver itself manages its own internal
// connection pool (sized via Max/AcquireTimeout below).
type GraphPool struct {
	cfg     GraphConfig
	driver  neo4j.DriverWithContext
	health  *healthState
	metrics *metrics
	log     mlog.Logger
}

// NewGraphPool opens the driver and pre-warms by issuing `RETURN 1` on Min
// sessions.
func NewGraphPool(ctx context.Context, cfg GraphConfig, log mlog.Logger) (*GraphPool, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.Max
			c.ConnectionAcquisitionTimeout = cfg.AcquireTimeout
			c.SocketKeepalive = true
		})
	if err != nil {
		return nil, merrors.New(merrors.Classify(err), "GRAPH_POOL_CREATE_FAILED", "failed to create graph driver").WithCause(err)
	}

	p := &GraphPool{cfg: cfg, driver: driver, health: newHealthState(), metrics: newMetrics(), log: log}

	p.preWarm(ctx)

	return p, nil
}

func (p *GraphPool) preWarm(ctx context.Context) {
	for i := 0; i < p.cfg.Min; i++ {
		session := p.driver.NewSession(ctx, neo4j.SessionConfig{})

		_, err := session.Run(ctx, "RETURN 1", nil)
		if err != nil {
			p.log.Warn("graph pool pre-warm validation failed", mlog.Err(err))
		} else {
			p.metrics.created.Add(1)
		}

		_ = session.Close(ctx)
	}
}

// Acquire opens a new session; DEGRADED pools fail fast.
func (p *GraphPool) Acquire(ctx context.Context) (*Handle[neo4j.SessionWithContext], error) {
	if p.health.get() == DEGRADED {
		return nil, merrors.New(merrors.ExternalService, "GRAPH_POOL_DEGRADED", "graph pool is degraded")
	}

	start := time.Now()
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{})
	p.metrics.recordAcquireWait(time.Since(start))
	p.metrics.inUse.Add(1)

	handle := newHandle[neo4j.SessionWithContext](session, func(valid bool) {
		p.metrics.inUse.Add(-1)
		_ = session.Close(ctx)
	})

	return handle, nil
}

// HealthCheck issues RETURN 1 on a fresh session.
func (p *GraphPool) HealthCheck(ctx context.Context, threshold int) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	session := p.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, "RETURN 1", nil)

	p.metrics.recordHealthCheck(err == nil, time.Now())

	if err != nil {
		if ctx.Err() != nil {
			p.health.recordValidationTimeout()
			return
		}

		if p.health.recordFailure(threshold) {
			p.log.Warn("graph pool transitioned to degraded")
		}
	}
}

// Recover re-validates the driver.
func (p *GraphPool) Recover(ctx context.Context, consecutiveOK int) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	session := p.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "RETURN 1", nil); err != nil {
		p.health.recordRecoveryFailure()
		return false
	}

	return p.health.recordRecoverySuccess(consecutiveOK)
}

// BeginRecovery reports whether this caller should spawn the recovery loop.
func (p *GraphPool) BeginRecovery() bool { return p.health.beginRecovery() }

// Health returns the pool's current observed state.
func (p *GraphPool) Health() Health { return p.health.get() }

// Stats returns the metrics surface required by spec.md §4.4.
func (p *GraphPool) Stats() Stats { return p.metrics.snapshot(0, p.health.get()) }

// Close shuts the driver down.
func (p *GraphPool) Close(ctx context.Context) {
	_ = p.driver.Close(ctx)
	p.metrics.closed.Add(1)
}
