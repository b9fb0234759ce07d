package engine

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ConfirmBridge correlates confirmation requests raised by the engine with
// answers supplied by an external responder such as a terminal prompt.
type ConfirmBridge struct {
	counter atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan bool
}

// NewConfirmBridge creates an empty bridge. Request ids start at 1.
func NewConfirmBridge() *ConfirmBridge {
	return &ConfirmBridge{pending: make(map[uint64]chan bool)}
}

// Register allocates a request id and the channel its answer will arrive on.
// The channel is closed without a value if the request is cancelled.
func (b *ConfirmBridge) Register() (uint64, <-chan bool) {
	id := b.counter.Add(1)
	answer := make(chan bool, 1)

	b.mu.Lock()
	b.pending[id] = answer
	b.mu.Unlock()

	return id, answer
}

// Respond delivers an answer and reports whether a matching request was pending.
// Unknown or already answered ids return false.
func (b *ConfirmBridge) Respond(id uint64, accepted bool) bool {
	b.mu.Lock()
	answer, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	if !ok {
		return false
	}
	answer <- accepted
	close(answer)
	return true
}

// Cancel drops a pending request without answering it.
func (b *ConfirmBridge) Cancel(id uint64) {
	b.mu.Lock()
	answer, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	if ok {
		close(answer)
	}
}

// Pending lists outstanding request ids in ascending order.
func (b *ConfirmBridge) Pending() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]uint64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
