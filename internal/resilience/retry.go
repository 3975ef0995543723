// Package resilience implements retry, circuit breaker, fallback and their
// composition, consumed by the pool manager (C4) and batching engine (C6).
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// RetryConfig configures exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

// DefaultRetryConfig matches the batcher's per-batch default from spec §4.6.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   50 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

// WithMaxAttempts returns a copy of cfg with MaxAttempts set.
func (cfg RetryConfig) WithMaxAttempts(n int) RetryConfig { cfg.MaxAttempts = n; return cfg }

// WithInitialDelay returns a copy of cfg with InitialDelay set.
func (cfg RetryConfig) WithInitialDelay(d time.Duration) RetryConfig { cfg.InitialDelay = d; return cfg }

// WithMaxDelay returns a copy of cfg with MaxDelay set.
func (cfg RetryConfig) WithMaxDelay(d time.Duration) RetryConfig { cfg.MaxDelay = d; return cfg }

// WithJitterFraction returns a copy of cfg with JitterFraction set.
func (cfg RetryConfig) WithJitterFraction(j float64) RetryConfig { cfg.JitterFraction = j; return cfg }

// ConfigValidationError reports a single invalid RetryConfig field.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("resilience: invalid %s: %s", e.Field, e.Message)
}

// Validate enforces the constraints every RetryConfig must satisfy before use.
func (cfg RetryConfig) Validate() error {
	if cfg.MaxAttempts < 1 {
		return ConfigValidationError{"MaxAttempts", "must be >= 1"}
	}

	if cfg.InitialDelay <= 0 {
		return ConfigValidationError{"InitialDelay", "must be > 0"}
	}

	if cfg.MaxDelay <= 0 {
		return ConfigValidationError{"MaxDelay", "must be > 0"}
	}

	if cfg.MaxDelay < cfg.InitialDelay {
		return ConfigValidationError{"MaxDelay", "must be >= InitialDelay"}
	}

	if cfg.JitterFraction < 0.0 || cfg.JitterFraction > 1.0 {
		return ConfigValidationError{"JitterFraction", "must be in range [0.0, 1.0]"}
	}

	return nil
}

// delay computes the backoff before attempt k (1-indexed), per
// min(max_delay, initial_delay * multiplier^(k-1)) scaled by a uniform
// jitter factor in [1-j, 1+j].
func (cfg RetryConfig) delay(attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}

	raw := float64(cfg.InitialDelay) * pow(mult, attempt-1)
	if max := float64(cfg.MaxDelay); raw > max {
		raw = max
	}

	if cfg.JitterFraction > 0 {
		j := cfg.JitterFraction
		factor := (1 - j) + rand.Float64()*(2*j)
		raw *= factor
	}

	return time.Duration(raw)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}

	return result
}

// ShouldRetry decides whether err is retryable; the default predicate
// consults the classified merrors.Kind's recommended recovery strategy.
type ShouldRetry func(error) bool

// DefaultShouldRetry retries Kinds whose Recovery is RecoveryRetry.
func DefaultShouldRetry(err error) bool {
	kind, ok := merrors.AsKind(err)
	if !ok {
		return false
	}

	return kind.Recovery() == merrors.RecoveryRetry
}

// Retry executes op, retrying per cfg while shouldRetry(err) holds. After
// exhaustion the last error is wrapped as a System "retry exhausted" error
// carrying the attempt count.
func Retry[T any](ctx context.Context, cfg RetryConfig, shouldRetry ShouldRetry, op func(context.Context) (T, error)) (T, error) {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	var (
		zero     T
		lastErr  error
		attempts int
	)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attempts = attempt
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts || !shouldRetry(err) {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.delay(attempt)):
		}
	}

	return zero, merrors.New(merrors.System, "RETRY_EXHAUSTED", fmt.Sprintf("operation failed after %d attempts", attempts)).
		WithCause(lastErr).
		WithDetails(map[string]any{"attempts": attempts})
}
