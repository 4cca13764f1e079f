// Package feed maintains the locally fed queue of observed pending
// counterparty actions consumed by the front-running strategy.
package feed

import (
	"sync"

	"github.com/arblab/solarbot/internal/domain"
)

// Queue is a bounded in-memory queue of pending swaps. When full, the oldest
// entry is dropped: a pending action that sat in the queue is stale anyway.
type Queue struct {
	mu    sync.Mutex
	items []domain.PendingSwap
	limit int
}

// NewQueue creates a Queue holding at most limit entries.
func NewQueue(limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{limit: limit}
}

// Push appends a pending swap, evicting the oldest entry when full.
func (q *Queue) Push(swap domain.PendingSwap) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, swap)
}

// Drain returns and clears all queued swaps, oldest first.
func (q *Queue) Drain() []domain.PendingSwap {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued swaps.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
