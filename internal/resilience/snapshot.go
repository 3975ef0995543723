package resilience

import (
	"context"
	"encoding/json"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// breakerSnapshot is the per-breaker record captured by BreakerManager.Snapshot.
type breakerSnapshot struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Counts Counts `json:"counts"`
}

// Snapshot captures every registered breaker's name, state, and counters as
// JSON, satisfying snapshot.Source. gobreaker's CircuitBreaker exposes no
// way to seed its internal counters, so this is a diagnostic capture only;
// Restore only validates the payload and cannot reinstate open/half-open breakers.
func (m *BreakerManager) Snapshot(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	snaps := make([]breakerSnapshot, 0, len(m.breakers))
	for name, b := range m.breakers {
		counts := b.cb.Counts()
		snaps = append(snaps, breakerSnapshot{
			Name:  name,
			State: b.State(),
			Counts: Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			},
		})
	}
	m.mu.Unlock()

	data, err := json.Marshal(snaps)
	if err != nil {
		return nil, merrors.New(merrors.System, "BREAKER_SNAPSHOT_FAILED", "failed to marshal breaker snapshot").WithCause(err)
	}

	return data, nil
}

// Restore validates a prior Snapshot's payload. It cannot reinstate a
// breaker's open/half-open state or counters, since gobreaker's
// CircuitBreaker does not expose that mutation; any breaker named in data
// that was previously OPEN simply starts CLOSED again on this process.
func (m *BreakerManager) Restore(ctx context.Context, data []byte) error {
	var snaps []breakerSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return merrors.New(merrors.System, "BREAKER_RESTORE_FAILED", "failed to unmarshal breaker snapshot").WithCause(err)
	}

	return nil
}
