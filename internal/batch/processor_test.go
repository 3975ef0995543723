package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

func testLogger(t *testing.T) mlog.Logger {
	t.Helper()
	log, err := mlog.New("error")
	require.NoError(t, err)
	return log
}

func echoDispatcher() Dispatcher[int, int] {
	return func(_ context.Context, batch []Request[int, int]) ([]Result[int], error) {
		results := make([]Result[int], len(batch))
		for i, req := range batch {
			results[i] = Result[int]{Value: req.Params * 2}
		}
		return results, nil
	}
}

func TestProcessor_SubmitDispatchesOnSizeTrigger(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 4
	cfg.FlushInterval = time.Hour // rely on size trigger only
	cfg.Workers = 1

	p := New[int, int]("test", cfg, echoDispatcher(), testLogger(t))
	p.Start(ctx)
	defer p.Stop(context.Background())

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.Submit(ctx, i, Normal)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		require.Equal(t, i*2, results[i])
	}
}

func TestProcessor_FlushIntervalDispatchesPartialBatch(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 50
	cfg.FlushInterval = 20 * time.Millisecond
	cfg.Workers = 1

	p := New[int, int]("test", cfg, echoDispatcher(), testLogger(t))
	p.Start(ctx)
	defer p.Stop(context.Background())

	v, err := p.Submit(ctx, 21, Normal)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

// TestProcessor_PriorityBucketRemainderPreserved is the explicit fix over
// the original implementation, which truncated a bucket to batch_size and
// discarded the remainder. Here a bucket larger than BatchSize must have
// every request eventually dispatched, none dropped.
func TestProcessor_PriorityBucketRemainderPreserved(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 3
	cfg.FlushInterval = 10 * time.Millisecond
	cfg.Workers = 2

	p := New[int, int]("test", cfg, echoDispatcher(), testLogger(t))
	p.Start(ctx)
	defer p.Stop(context.Background())

	const n = 10
	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.Submit(ctx, i, Urgent)
			if err == nil && v == i*2 {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, n, successes.Load())
}

func TestProcessor_DispatcherErrorFailsEveryRequestInBatch(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.FlushInterval = time.Hour
	cfg.Workers = 1
	cfg.Retry = cfg.Retry.WithMaxAttempts(1)

	failing := func(_ context.Context, batch []Request[int, int]) ([]Result[int], error) {
		return nil, context.DeadlineExceeded
	}

	p := New[int, int]("test", cfg, failing, testLogger(t))
	p.Start(ctx)
	defer p.Stop(context.Background())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Submit(ctx, i, Normal)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	require.Error(t, errs[0])
	require.Error(t, errs[1])
}

func TestProcessor_StopDrainsPendingRequests(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 100
	cfg.FlushInterval = time.Hour
	cfg.Workers = 1

	p := New[int, int]("test", cfg, echoDispatcher(), testLogger(t))
	p.Start(ctx)

	var wg sync.WaitGroup
	results := make([]int, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.Submit(ctx, i, Low)
			results[i] = v
			errs[i] = err
		}(i)
	}

	// Give Submit goroutines a moment to enqueue before forcing shutdown.
	time.Sleep(10 * time.Millisecond)
	p.Stop(context.Background())
	wg.Wait()

	for i := 0; i < 5; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, i*2, results[i])
	}
}

func TestProcessor_SubmitAfterStopFailsWithShutdownError(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()

	p := New[int, int]("test", cfg, echoDispatcher(), testLogger(t))
	p.Start(ctx)
	p.Stop(context.Background())

	_, err := p.Submit(ctx, 1, Normal)
	require.Error(t, err)

	var merr *merrors.Error
	require.ErrorAs(t, err, &merr)
	require.Equal(t, merrors.System, merr.Kind)
	require.Equal(t, "shutdown", merr.Message)
}
