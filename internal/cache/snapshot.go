package cache

import (
	"context"
	"encoding/json"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// l1Record is one L1 entry as captured by l1.snapshot, keyed separately so
// the unexported key/entry layout never leaks outside the package.
type l1Record struct {
	Key   Key    `json:"key"`
	Value []byte `json:"value"`
}

func (c *l1) snapshot() []l1Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]l1Record, 0, len(c.index))
	for key, el := range c.index {
		node := el.Value.(*l1Node)
		if node.entry.expired() {
			continue
		}
		records = append(records, l1Record{Key: key, Value: node.entry.Value})
	}

	return records
}

func (c *l1) restore(records []l1Record) {
	for _, r := range records {
		c.set(r.Key, r.Value, c.cfg.TTL)
	}
}

// Snapshot captures L1's live entries, satisfying snapshot.Source. L2 is not
// captured because it already lives in Redis, outside this process. L3's
// query results and prepared-statement registry are not captured either;
// they start empty in a new process.
func (m *MultiLayer) Snapshot(ctx context.Context) ([]byte, error) {
	data, err := json.Marshal(m.l1.snapshot())
	if err != nil {
		return nil, merrors.New(merrors.System, "CACHE_SNAPSHOT_FAILED", "failed to marshal cache snapshot").WithCause(err)
	}

	return data, nil
}

// Restore repopulates L1 from a prior Snapshot's payload, re-applying each
// entry's configured TTL from the moment of restore rather than preserving
// its original expiry.
func (m *MultiLayer) Restore(ctx context.Context, data []byte) error {
	var records []l1Record
	if err := json.Unmarshal(data, &records); err != nil {
		return merrors.New(merrors.System, "CACHE_RESTORE_FAILED", "failed to unmarshal cache snapshot").WithCause(err)
	}

	m.l1.restore(records)

	return nil
}
