package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResilient_ComposesRetryBreakerFallback(t *testing.T) {
	metrics := NewMetrics()
	breaker := NewBreaker("svc", BreakerConfig{Threshold: 10, RecoveryTimeout: time.Second})

	cfg := ResilientConfig{
		Retry:       DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond).WithMaxDelay(5 * time.Millisecond),
		ShouldRetry: func(error) bool { return true },
		Breaker:     breaker,
	}

	attempts := 0

	result, err := Resilient(context.Background(), cfg, metrics,
		func(context.Context) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("transient")
			}

			return "ok", nil
		},
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalCalls)
	assert.Equal(t, uint64(1), snap.SuccessfulCalls)
}

func TestResilient_FallbackInvokedAfterExhaustion(t *testing.T) {
	metrics := NewMetrics()

	cfg := ResilientConfig{
		Retry: DefaultRetryConfig().WithMaxAttempts(1).WithInitialDelay(time.Millisecond).WithMaxDelay(time.Millisecond),
	}

	result, err := Resilient(context.Background(), cfg, metrics,
		func(context.Context) (string, error) { return "", errors.New("down") },
		func(context.Context) (string, error) { return "fallback", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
	assert.Equal(t, uint64(1), metrics.Snapshot().FallbacksUsed)
}
