package core

// DefaultHistoryCapacity bounds the per-session history ring.
const DefaultHistoryCapacity = 10

// HistoryRing is a bounded FIFO of recent result batches, newest first.
// Pushing past capacity evicts the oldest batch. Like SeenCache it is
// confined to the session orchestrator's goroutine.
type HistoryRing struct {
	capacity int
	batches  []ResultBatch // index 0 is the newest batch
}

// NewHistoryRing creates a ring bounded at capacity batches. Non-positive
// capacities fall back to DefaultHistoryCapacity.
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryRing{capacity: capacity, batches: make([]ResultBatch, 0, capacity)}
}

// PushFront inserts the batch as the newest entry, evicting the oldest one
// when the ring is full.
func (r *HistoryRing) PushFront(b ResultBatch) {
	if len(r.batches) < r.capacity {
		r.batches = append(r.batches, ResultBatch{})
	}
	copy(r.batches[1:], r.batches)
	r.batches[0] = b
}

// Front returns a pointer to the newest batch, or nil when the ring is
// empty. The orchestrator uses it to attach analytics to the batch as worker
// replies arrive.
func (r *HistoryRing) Front() *ResultBatch {
	if len(r.batches) == 0 {
		return nil
	}
	return &r.batches[0]
}

// List returns a defensive copy of the batches, newest first.
func (r *HistoryRing) List() []ResultBatch {
	out := make([]ResultBatch, len(r.batches))
	copy(out, r.batches)
	return out
}

// Len returns the number of stored batches.
func (r *HistoryRing) Len() int { return len(r.batches) }

// Capacity returns the configured bound.
func (r *HistoryRing) Capacity() int { return r.capacity }
