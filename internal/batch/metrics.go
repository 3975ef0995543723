package batch

import (
	"sync/atomic"
	"time"
)

// Stats is the metrics surface required by spec.md §4.6.
type Stats struct {
	BatchesDispatched  uint64
	RequestsProcessed  uint64
	RequestsFailed     uint64
	MeanBatchSize      float64
	MeanDispatchTime   time.Duration
	FlushCount         uint64
	TimeoutCount       uint64
	RetryCount         uint64
	QueueDepth         int
	PendingRequests    int
}

type metrics struct {
	batchesDispatched  atomic.Uint64
	requestsProcessed  atomic.Uint64
	requestsFailed     atomic.Uint64
	batchSizeTotal     atomic.Uint64
	dispatchTimeTotal  atomic.Int64
	flushCount         atomic.Uint64
	timeoutCount       atomic.Uint64
	retryCount         atomic.Uint64
}

func (m *metrics) recordBatch(size int, dispatchTime time.Duration) {
	m.batchesDispatched.Add(1)
	m.batchSizeTotal.Add(uint64(size))
	m.dispatchTimeTotal.Add(int64(dispatchTime))
}

func (m *metrics) recordProcessed(n int) { m.requestsProcessed.Add(uint64(n)) }
func (m *metrics) recordFailed(n int)    { m.requestsFailed.Add(uint64(n)) }
func (m *metrics) recordFlush()          { m.flushCount.Add(1) }
func (m *metrics) recordTimeout()        { m.timeoutCount.Add(1) }
func (m *metrics) recordRetry()          { m.retryCount.Add(1) }

func (m *metrics) snapshot(queueDepth, pending int) Stats {
	batches := m.batchesDispatched.Load()

	var meanSize float64
	var meanTime time.Duration
	if batches > 0 {
		meanSize = float64(m.batchSizeTotal.Load()) / float64(batches)
		meanTime = time.Duration(m.dispatchTimeTotal.Load() / int64(batches))
	}

	return Stats{
		BatchesDispatched: batches,
		RequestsProcessed: m.requestsProcessed.Load(),
		RequestsFailed:    m.requestsFailed.Load(),
		MeanBatchSize:     meanSize,
		MeanDispatchTime:  meanTime,
		FlushCount:        m.flushCount.Load(),
		TimeoutCount:      m.timeoutCount.Load(),
		RetryCount:        m.retryCount.Load(),
		QueueDepth:        queueDepth,
		PendingRequests:   pending,
	}
}
