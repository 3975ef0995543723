package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandle_WaitReturnsResolvedValue(t *testing.T) {
	h := newHandle[int]()
	h.resolve(42, nil)

	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestHandle_SecondResolveIsNoOp(t *testing.T) {
	h := newHandle[int]()
	h.resolve(1, nil)
	h.resolve(2, context.DeadlineExceeded)

	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestHandle_WaitTimesOutBeforeResolve(t *testing.T) {
	h := newHandle[int]()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := h.Wait(ctx)
	require.Error(t, err)
}
