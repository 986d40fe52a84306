package talespin

import (
	"sync"
)

// Outbox is an ordered buffer of already-serialized frames awaiting an open transport.
// Frames are stored as text, so callers cannot corrupt a queued intent after the fact.
type Outbox struct {
	mu    sync.Mutex
	items [][]byte
	limit int
}

// NewOutbox returns an outbox holding at most limit frames. A limit <= 0 means unbounded.
func NewOutbox(limit int) *Outbox {
	return &Outbox{limit: limit}
}

// Push appends frame to the tail. When the outbox is full the oldest frame is evicted
// and reported through dropped.
func (o *Outbox) Push(frame []byte) (dropped []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.limit > 0 && len(o.items) >= o.limit {
		dropped = o.items[0]
		o.items[0] = nil
		o.items = o.items[1:]
	}
	o.items = append(o.items, frame)
	return dropped
}

// Drain removes and returns every queued frame in enqueue order.
func (o *Outbox) Drain() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := o.items
	o.items = nil
	return out
}

// Requeue puts frames back at the head, ahead of anything pushed since they were drained.
func (o *Outbox) Requeue(frames [][]byte) {
	if len(frames) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := make([][]byte, 0, len(frames)+len(o.items))
	merged = append(merged, frames...)
	merged = append(merged, o.items...)
	o.items = merged
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
