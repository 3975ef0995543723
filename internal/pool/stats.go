package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the metrics surface required by spec.md §4.4: created, closed,
// failed, in-use, idle, mean/95p acquire-wait, last health-check timestamp,
// health-check failure count.
type Stats struct {
	Created             uint64
	Closed              uint64
	Failed              uint64
	InUse                uint64
	Idle                 uint64
	MeanAcquireWait      time.Duration
	P95AcquireWait       time.Duration
	LastHealthCheck      time.Time
	HealthCheckFailures  uint64
	Health               Health
}

// metrics accumulates the counters behind a Stats snapshot.
type metrics struct {
	created             atomic.Uint64
	closed              atomic.Uint64
	failed              atomic.Uint64
	inUse                atomic.Int64
	healthCheckFailures atomic.Uint64

	mu              sync.Mutex
	lastHealthCheck time.Time
	waitSamples     []time.Duration
}

func newMetrics() *metrics { return &metrics{} }

func (m *metrics) recordAcquireWait(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waitSamples = append(m.waitSamples, d)
	if len(m.waitSamples) > 1000 {
		m.waitSamples = m.waitSamples[len(m.waitSamples)-1000:]
	}
}

func (m *metrics) recordHealthCheck(ok bool, at time.Time) {
	m.mu.Lock()
	m.lastHealthCheck = at
	m.mu.Unlock()

	if !ok {
		m.healthCheckFailures.Add(1)
	}
}

func (m *metrics) snapshot(idle uint64, health Health) Stats {
	m.mu.Lock()
	samples := append([]time.Duration(nil), m.waitSamples...)
	last := m.lastHealthCheck
	m.mu.Unlock()

	mean, p95 := waitPercentiles(samples)

	return Stats{
		Created:             m.created.Load(),
		Closed:              m.closed.Load(),
		Failed:              m.failed.Load(),
		InUse:                uint64(m.inUse.Load()),
		Idle:                 idle,
		MeanAcquireWait:      mean,
		P95AcquireWait:       p95,
		LastHealthCheck:      last,
		HealthCheckFailures:  m.healthCheckFailures.Load(),
		Health:               health,
	}
}

func waitPercentiles(samples []time.Duration) (mean, p95 time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}

	sorted := append([]time.Duration(nil), samples...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var total time.Duration
	for _, s := range sorted {
		total += s
	}

	mean = total / time.Duration(len(sorted))

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	p95 = sorted[idx]

	return mean, p95
}
