package cache

import "sync/atomic"

// LayerStats is the per-layer metrics surface required by spec.md §4.5.
type LayerStats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Warmings    uint64
	Fallbacks   uint64
	BytesInUse  uint64
	HotKeyCount uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 when there have been no
// requests yet.
func (s LayerStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type layerMetrics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	warmings  atomic.Uint64
	fallbacks atomic.Uint64
}

func (m *layerMetrics) snapshot(bytesInUse, hotKeyCount uint64) LayerStats {
	return LayerStats{
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
		Evictions:   m.evictions.Load(),
		Warmings:    m.warmings.Load(),
		Fallbacks:   m.fallbacks.Load(),
		BytesInUse:  bytesInUse,
		HotKeyCount: hotKeyCount,
	}
}

// Stats is the overall multi-layer view returned by MultiLayer.Stats.
type Stats struct {
	TotalRequests uint64
	L1Hits        uint64
	L2Hits        uint64
	L3Hits        uint64
	CacheMisses   uint64

	L1 LayerStats
	L2 LayerStats
	L3 LayerStats
}

// OverallHitRate returns the share of requests served by any layer.
func (s Stats) OverallHitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits+s.L3Hits) / float64(s.TotalRequests)
}
