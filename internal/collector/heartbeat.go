package collector

import (
	"sync"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
)

// HeartbeatCounter is the Poller's shared, per-emitter freshness counter. It
// is scoped to one Poller instance and incremented once per iteration as the
// local endpoint's NodeState is constructed. It is shared read-write between
// the Poller and the Collector on the same goroutine, so it needs no locking
// for that use - the mutex here only protects it against being read from
// another goroutine concurrently via Value.
type HeartbeatCounter struct {
	mu      sync.Mutex
	counter int64
}

// NewHeartbeatCounter creates a counter starting at zero.
func NewHeartbeatCounter() *HeartbeatCounter {
	return &HeartbeatCounter{}
}

// Next increments the counter and returns a Heartbeat stamped with epoch and
// the new counter value.
func (h *HeartbeatCounter) Next(epoch connectivity.Epoch) connectivity.Heartbeat {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter++
	return connectivity.Heartbeat{Epoch: epoch, Counter: h.counter}
}

// Value returns the current counter value without advancing it.
func (h *HeartbeatCounter) Value() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}
