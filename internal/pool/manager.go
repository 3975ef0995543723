package pool

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/resilience"
)

// FailureThreshold is the consecutive-validation-failure count that flips a
// pool HEALTHY -> DEGRADED, per spec.md §4.4.
const FailureThreshold = 3

// RecoverySuccessesRequired is the consecutive successful validations that
// flip a pool RECOVERING -> HEALTHY.
const RecoverySuccessesRequired = 3

// Manager is the pool-manager facade of spec.md §6: acquire_relational(),
// acquire_graph(), and get_key_value_client(), plus per-pool stats().
type Manager struct {
	Relational *RelationalPool
	Graph      *GraphPool
	KeyValue   *KeyValuePool

	breakers *resilience.BreakerManager
	log      mlog.Logger

	cancel context.CancelFunc
}

// NewManager constructs and pre-warms all three pools.
func NewManager(ctx context.Context, relCfg RelationalConfig, graphCfg GraphConfig, kvCfg KeyValueConfig, log mlog.Logger) (*Manager, error) {
	breakers := resilience.NewBreakerManager(resilience.DefaultBreakerConfig())

	rel, err := NewRelationalPool(ctx, relCfg, log, breakers.GetOrCreate("pool.relational", nil))
	if err != nil {
		return nil, err
	}

	graph, err := NewGraphPool(ctx, graphCfg, log)
	if err != nil {
		return nil, err
	}

	kv, err := NewKeyValuePool(ctx, kvCfg, log)
	if err != nil {
		return nil, err
	}

	return &Manager{Relational: rel, Graph: graph, KeyValue: kv, breakers: breakers, log: log}, nil
}

// AcquireRelational borrows a relational connection.
func (m *Manager) AcquireRelational(ctx context.Context) (*Handle[*pgxpool.Conn], error) {
	return m.Relational.Acquire(ctx)
}

// AcquireGraph opens a graph session.
func (m *Manager) AcquireGraph(ctx context.Context) (*Handle[neo4j.SessionWithContext], error) {
	return m.Graph.Acquire(ctx)
}

// KeyValueClient returns the shared key-value client.
func (m *Manager) KeyValueClient() (*redis.Client, error) {
	return m.KeyValue.Client()
}

// Start spawns the health and recovery loops for all three pools. It
// returns immediately; loops run until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.healthLoop(ctx, "relational", m.Relational.cfg.HealthCheckInterval, m.Relational.HealthCheck, m.Relational.Health, m.Relational.BeginRecovery, m.Relational.Recover, m.Relational.cfg.RecoveryCheckInterval)
	go m.healthLoop(ctx, "graph", m.Graph.cfg.HealthCheckInterval, m.Graph.HealthCheck, m.Graph.Health, m.Graph.BeginRecovery, m.Graph.Recover, m.Graph.cfg.RecoveryCheckInterval)
	go m.healthLoop(ctx, "keyvalue", m.KeyValue.cfg.HealthCheckInterval, m.KeyValue.HealthCheck, m.KeyValue.Health, m.KeyValue.BeginRecovery, m.KeyValue.Recover, m.KeyValue.cfg.RecoveryCheckInterval)
}

// healthLoop runs the periodic liveness probe for one pool and, on a
// HEALTHY->DEGRADED transition, spawns the (single) recovery loop.
func (m *Manager) healthLoop(
	ctx context.Context,
	name string,
	interval time.Duration,
	check func(context.Context, int),
	health func() Health,
	beginRecovery func() bool,
	revalidate func(context.Context, int) bool,
	recoveryInterval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check(ctx, FailureThreshold)

			if health() == DEGRADED && beginRecovery() {
				go m.recoveryLoop(ctx, name, recoveryInterval, revalidate)
			}
		}
	}
}

// recoveryLoop periodically attempts re-validation until the pool reports
// HEALTHY, then exits.
func (m *Manager) recoveryLoop(ctx context.Context, name string, interval time.Duration, revalidate func(context.Context, int) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if revalidate(ctx, RecoverySuccessesRequired) {
				m.log.Info("pool recovered", mlog.String("pool", name))
				return
			}
		}
	}
}

// Stop halts the health/recovery loops and closes every pool.
func (m *Manager) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}

	m.Relational.Close()
	m.Graph.Close(ctx)
	_ = m.KeyValue.Close()
}
