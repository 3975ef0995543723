package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback_UsesSecondaryOnPrimaryError(t *testing.T) {
	result, err := Fallback(context.Background(),
		func(context.Context) (string, error) { return "", errors.New("primary down") },
		func(context.Context) (string, error) { return "fallback value", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "fallback value", result)
}

func TestFallback_BothFailSurfacesSystemError(t *testing.T) {
	_, err := Fallback(context.Background(),
		func(context.Context) (string, error) { return "", errors.New("primary down") },
		func(context.Context) (string, error) { return "", errors.New("fallback down") },
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FALLBACK_FAILED")
}

func TestFallback_PrimarySuccessSkipsSecondary(t *testing.T) {
	called := false

	result, err := Fallback(context.Background(),
		func(context.Context) (string, error) { return "primary value", nil },
		func(context.Context) (string, error) { called = true; return "", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "primary value", result)
	assert.False(t, called)
}
