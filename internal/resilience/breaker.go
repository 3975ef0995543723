package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// State mirrors spec.md's CircuitState, independent of the underlying
// breaker library's own enum.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Counts mirrors gobreaker's rolling counters at the moment of a transition.
type Counts struct {
	Requests            uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChangeEvent is delivered to every registered StateListener whenever a
// named breaker transitions.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateListener observes breaker transitions, e.g. for metrics export.
type StateListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// BreakerConfig configures a single named breaker per spec.md §4.3.
type BreakerConfig struct {
	// Threshold is the consecutive-failure count that trips the breaker.
	Threshold int
	// RecoveryTimeout is the OPEN -> HALF_OPEN dwell time.
	RecoveryTimeout time.Duration
}

// DefaultBreakerConfig matches spec.md's worked example defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, RecoveryTimeout: 30 * time.Second}
}

// Breaker wraps gobreaker's generic circuit breaker with the StateListener
// fan-out and the spec's ExternalService-on-open conversion.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]

	mu        sync.RWMutex
	listeners []StateListener
}

// NewBreaker constructs a named breaker. name identifies the protected
// dependency (e.g. "pool.relational") and is surfaced on every
// StateChangeEvent and in the ExternalService error raised while OPEN.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	b := &Breaker{name: name}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // single HALF_OPEN probe, per spec.md §4.3
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.Threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.notify(from, to)
		},
	}

	b.cb = gobreaker.NewCircuitBreaker[any](settings)

	return b
}

// AddListener registers a StateListener for future transitions.
func (b *Breaker) AddListener(l StateListener) {
	if l == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, l)
}

func (b *Breaker) notify(from, to gobreaker.State) {
	counts := b.cb.Counts()

	event := StateChangeEvent{
		ServiceName: b.name,
		FromState:   convertState(from),
		ToState:     convertState(to),
		Counts: Counts{
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		},
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range b.listeners {
		l.OnCircuitBreakerStateChange(event)
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State { return convertState(b.cb.State()) }

// BreakerCall wraps op with breaker protection. While OPEN, op is never
// invoked and an ExternalService error is returned immediately.
func BreakerCall[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return zero, merrors.New(merrors.ExternalService, "CIRCUIT_BREAKER_OPEN", "service temporarily unavailable").WithCause(err)
		}

		return zero, err
	}

	typed, _ := result.(T)

	return typed, nil
}

// BreakerManager is a named-dependency registry of breakers, grounded on the
// teacher's manager.GetOrCreate(name, config) pattern.
type BreakerManager struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults BreakerConfig
}

// NewBreakerManager constructs a registry using defaults for any breaker
// created without an explicit config.
func NewBreakerManager(defaults BreakerConfig) *BreakerManager {
	return &BreakerManager{breakers: make(map[string]*Breaker), defaults: defaults}
}

// GetOrCreate returns the named breaker, constructing it with cfg (or the
// manager's defaults if cfg is nil) on first use.
func (m *BreakerManager) GetOrCreate(name string, cfg *BreakerConfig) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[name]; ok {
		return b
	}

	use := m.defaults
	if cfg != nil {
		use = *cfg
	}

	b := NewBreaker(name, use)
	m.breakers[name] = b

	return b
}

// States returns a snapshot of every registered breaker's current state,
// keyed by name.
func (m *BreakerManager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]State, len(m.breakers))
	for name, b := range m.breakers {
		out[name] = b.State()
	}

	return out
}
