package feed

import (
	"testing"
	"time"

	"github.com/arblab/solarbot/internal/domain"
)

func swap(market string) domain.PendingSwap {
	return domain.PendingSwap{
		Market:     market,
		Side:       domain.SideBuy,
		Amount:     1_000,
		Price:      10.0,
		ObservedAt: time.Now(),
	}
}

func TestQueuePushAndDrain(t *testing.T) {
	q := NewQueue(10)
	q.Push(swap("a"))
	q.Push(swap("b"))
	q.Push(swap("c"))

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d, want 3", len(drained))
	}
	for i, want := range []string{"a", "b", "c"} {
		if drained[i].Market != want {
			t.Errorf("position %d = %s, want %s", i, drained[i].Market, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after drain: %d", q.Len())
	}
	if again := q.Drain(); len(again) != 0 {
		t.Errorf("second drain returned %d swaps", len(again))
	}
}

func TestQueueEvictsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Push(swap("a"))
	q.Push(swap("b"))
	q.Push(swap("c"))

	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("drained %d, want 2", len(drained))
	}
	if drained[0].Market != "b" || drained[1].Market != "c" {
		t.Errorf("kept %s, %s; want b, c", drained[0].Market, drained[1].Market)
	}
}

func TestQueueMinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	q.Push(swap("a"))
	q.Push(swap("b"))

	drained := q.Drain()
	if len(drained) != 1 || drained[0].Market != "b" {
		t.Errorf("zero-limit queue kept %d swaps, want just the newest", len(drained))
	}
}
