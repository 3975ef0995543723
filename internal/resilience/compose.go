package resilience

import (
	"context"
	"sync/atomic"
)

// ResilientConfig bundles the three primitives' configuration for Resilient.
type ResilientConfig struct {
	Retry       RetryConfig
	ShouldRetry ShouldRetry
	Breaker     *Breaker
}

// Metrics accumulates call outcomes across every Resilient invocation that
// shares it, grounded on the original ResilienceManager's aggregate counters.
type Metrics struct {
	totalCalls          atomic.Uint64
	successfulCalls     atomic.Uint64
	failedCalls         atomic.Uint64
	retriesExecuted     atomic.Uint64
	fallbacksUsed       atomic.Uint64
	circuitBreakerTrips atomic.Uint64
}

// NewMetrics returns a zeroed Metrics accumulator.
func NewMetrics() *Metrics { return &Metrics{} }

// SuccessRate returns successfulCalls / max(totalCalls, 1).
func (m *Metrics) SuccessRate() float64 {
	total := m.totalCalls.Load()
	if total == 0 {
		return 0
	}

	return float64(m.successfulCalls.Load()) / float64(total)
}

// Snapshot is a point-in-time copy of the accumulated counters.
type Snapshot struct {
	TotalCalls          uint64
	SuccessfulCalls     uint64
	FailedCalls         uint64
	RetriesExecuted     uint64
	FallbacksUsed       uint64
	CircuitBreakerTrips uint64
	SuccessRate         float64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalCalls:          m.totalCalls.Load(),
		SuccessfulCalls:     m.successfulCalls.Load(),
		FailedCalls:         m.failedCalls.Load(),
		RetriesExecuted:     m.retriesExecuted.Load(),
		FallbacksUsed:       m.fallbacksUsed.Load(),
		CircuitBreakerTrips: m.circuitBreakerTrips.Load(),
		SuccessRate:         m.SuccessRate(),
	}
}

// Resilient composes fallback(breaker(retry(op))), in that nesting order, so
// a tripped breaker short-circuits before spending retries. metrics may be
// nil to skip accounting.
func Resilient[T any](ctx context.Context, cfg ResilientConfig, metrics *Metrics, primary, fallback func(context.Context) (T, error)) (T, error) {
	if metrics != nil {
		metrics.totalCalls.Add(1)
	}

	counted := primary
	if metrics != nil {
		attempts := 0
		counted = func(ctx context.Context) (T, error) {
			attempts++
			if attempts > 1 {
				metrics.retriesExecuted.Add(1)
			}
			return primary(ctx)
		}
	}

	retried := func(ctx context.Context) (T, error) {
		return Retry(ctx, cfg.Retry, cfg.ShouldRetry, counted)
	}

	breakered := retried
	if cfg.Breaker != nil {
		breakered = func(ctx context.Context) (T, error) {
			before := cfg.Breaker.State()

			result, err := BreakerCall(ctx, cfg.Breaker, retried)
			if err != nil && metrics != nil && before == StateOpen {
				metrics.circuitBreakerTrips.Add(1)
			}

			return result, err
		}
	}

	var result T

	var err error

	if fallback != nil {
		result, err = Fallback(ctx, breakered, func(ctx context.Context) (T, error) {
			if metrics != nil {
				metrics.fallbacksUsed.Add(1)
			}

			return fallback(ctx)
		})
	} else {
		result, err = breakered(ctx)
	}

	if metrics != nil {
		if err != nil {
			metrics.failedCalls.Add(1)
		} else {
			metrics.successfulCalls.Add(1)
		}
	}

	return result, err
}
