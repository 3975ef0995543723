package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, 100*time.Millisecond, cfg.FlushInterval)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, 10000, cfg.QueueCapacity)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestDefaultWriteConfig_MatchesOriginalTuning(t *testing.T) {
	cfg := DefaultWriteConfig()
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, 100*time.Millisecond, cfg.FlushInterval)
	require.Equal(t, 2, cfg.Workers)
}

func TestDefaultVectorSearchConfig_MatchesOriginalTuning(t *testing.T) {
	cfg := DefaultVectorSearchConfig()
	require.Equal(t, 20, cfg.BatchSize)
	require.Equal(t, 50*time.Millisecond, cfg.FlushInterval)
	require.Equal(t, 4, cfg.Workers)
}

func TestDefaultGraphQueryConfig_MatchesOriginalTuning(t *testing.T) {
	cfg := DefaultGraphQueryConfig()
	require.Equal(t, 10, cfg.BatchSize)
	require.Equal(t, 100*time.Millisecond, cfg.FlushInterval)
	require.Equal(t, 2, cfg.Workers)
}

func TestPriority_String(t *testing.T) {
	require.Equal(t, "urgent", Urgent.String())
	require.Equal(t, "high", High.String())
	require.Equal(t, "normal", Normal.String())
	require.Equal(t, "low", Low.String())
	require.Equal(t, "unknown", Priority(99).String())
}

func TestDrainOrder_IsHighestFirst(t *testing.T) {
	require.Equal(t, []Priority{Urgent, High, Normal, Low}, drainOrder)
}
