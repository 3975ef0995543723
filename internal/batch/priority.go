// Package batch implements the generic priority-batching engine (C6) and its
// three specializations: memory writes, vector search, and graph queries.
package batch

// Priority orders pending requests within a batcher. Higher values drain
// first; a steady stream of Urgent requests can starve Low ones, which is
// intentional per spec.md §4.6.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Urgent
)

// drainOrder lists priorities from highest to lowest, the order buckets are
// drained when forming a batch.
var drainOrder = []Priority{Urgent, High, Normal, Low}

func (p Priority) String() string {
	switch p {
	case Urgent:
		return "urgent"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}
