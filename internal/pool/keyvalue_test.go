package pool

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

func testLog(t *testing.T) mlog.Logger {
	t.Helper()
	log, err := mlog.New("error")
	require.NoError(t, err)
	return log
}

func newTestKeyValuePool(t *testing.T) (*KeyValuePool, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := DefaultKeyValueConfig("redis://" + mr.Addr())

	p, err := NewKeyValuePool(context.Background(), cfg, testLog(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p, mr
}

func TestKeyValuePool_ConnectsAndStartsHealthy(t *testing.T) {
	p, _ := newTestKeyValuePool(t)
	require.Equal(t, HEALTHY, p.Health())

	client, err := p.Client()
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestKeyValuePool_HealthCheckSucceedsAgainstLiveServer(t *testing.T) {
	p, _ := newTestKeyValuePool(t)

	p.HealthCheck(context.Background(), 3)
	require.Equal(t, HEALTHY, p.Health())

	stats := p.Stats()
	require.Equal(t, uint64(0), stats.HealthCheckFailures)
}

func TestKeyValuePool_DegradesAfterConsecutiveFailures(t *testing.T) {
	p, mr := newTestKeyValuePool(t)

	mr.Close()

	for i := 0; i < 3; i++ {
		p.HealthCheck(context.Background(), 3)
	}
	require.Equal(t, DEGRADED, p.Health())

	_, err := p.Client()
	require.Error(t, err)
}

func TestKeyValuePool_RecoversAfterConsecutiveSuccesses(t *testing.T) {
	p, _ := newTestKeyValuePool(t)

	p.health.recordValidationTimeout()
	require.Equal(t, DEGRADED, p.Health())
	require.True(t, p.BeginRecovery())

	for i := 0; i < 3; i++ {
		require.Equal(t, i == 2, p.Recover(context.Background(), 3))
	}
	require.Equal(t, HEALTHY, p.Health())
}
