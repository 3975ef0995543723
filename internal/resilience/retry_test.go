package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

func TestRetryConfig_Validate(t *testing.T) {
	valid := DefaultRetryConfig()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		cfg  RetryConfig
		want string
	}{
		{"zero attempts", valid.WithMaxAttempts(0), "MaxAttempts"},
		{"negative attempts", valid.WithMaxAttempts(-1), "MaxAttempts"},
		{"zero initial delay", valid.WithInitialDelay(0), "InitialDelay"},
		{"zero max delay", valid.WithMaxDelay(0), "MaxDelay"},
		{"max less than initial", valid.WithInitialDelay(10 * time.Second).WithMaxDelay(time.Second), "MaxDelay"},
		{"negative jitter", valid.WithJitterFraction(-0.1), "JitterFraction"},
		{"jitter too large", valid.WithJitterFraction(1.1), "JitterFraction"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRetry_SucceedsWithinAttempts(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithInitialDelay(time.Millisecond).WithMaxDelay(10 * time.Millisecond)

	result, err := Retry(context.Background(), cfg, func(error) bool { return true }, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", merrors.New(merrors.Network, "NET", "boom")
		}

		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustionWrapsAttemptCount(t *testing.T) {
	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Millisecond).WithMaxDelay(5 * time.Millisecond)

	attempts := 0

	_, err := Retry(context.Background(), cfg, func(error) bool { return true }, func(context.Context) (string, error) {
		attempts++
		return "", merrors.New(merrors.Network, "NET", "boom")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	kind, ok := merrors.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, merrors.System, kind)

	var merr *merrors.Error

	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 3, merr.Details["attempts"])
}

func TestRetry_StopsWhenShouldRetryFalse(t *testing.T) {
	cfg := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)

	attempts := 0

	_, err := Retry(context.Background(), cfg, func(error) bool { return false }, func(context.Context) (string, error) {
		attempts++
		return "", merrors.New(merrors.Validation, "BAD", "nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
