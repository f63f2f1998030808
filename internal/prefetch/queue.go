/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prefetch

import (
	"container/heap"
	"fmt"
)

// Ordering decides which buffered pick is consumed next.
type Ordering int

const (
	// FIFO consumes picks in the order they were enqueued.
	FIFO Ordering = iota
	// Priority consumes picks whose entity has the fewest unused variants
	// left first, falling back to enqueue order.
	Priority
)

func (o Ordering) String() string {
	switch o {
	case FIFO:
		return "fifo"
	case Priority:
		return "priority"
	}

	return fmt.Sprintf("Ordering(%d)", int(o))
}

func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "priority":
		return Priority, nil
	}

	return FIFO, fmt.Errorf("unknown ordering %q (must be fifo or priority)", s)
}

type pick struct {
	key       Key
	seq       uint64
	remaining int
}

type queue interface {
	push(p pick)
	pop() (pick, bool)
	len() int
	keys() []Key
}

func newQueue(o Ordering) queue {
	if o == Priority {
		return &priorityQueue{}
	}

	return &fifo{}
}

type fifo struct {
	items []pick
}

func (q *fifo) push(p pick) {
	q.items = append(q.items, p)
}

func (q *fifo) pop() (pick, bool) {
	if len(q.items) == 0 {
		return pick{}, false
	}

	p := q.items[0]
	q.items[0] = pick{}
	q.items = q.items[1:]

	return p, true
}

func (q *fifo) len() int {
	return len(q.items)
}

func (q *fifo) keys() []Key {
	out := make([]Key, len(q.items))
	for i, p := range q.items {
		out[i] = p.key
	}

	return out
}

type priorityQueue struct {
	h pickHeap
}

func (q *priorityQueue) push(p pick) {
	heap.Push(&q.h, p)
}

func (q *priorityQueue) pop() (pick, bool) {
	if len(q.h) == 0 {
		return pick{}, false
	}

	return heap.Pop(&q.h).(pick), true
}

func (q *priorityQueue) len() int {
	return len(q.h)
}

// keys lists picks in consumption order.
func (q *priorityQueue) keys() []Key {
	h := make(pickHeap, len(q.h))
	copy(h, q.h)

	out := make([]Key, 0, len(h))
	for len(h) > 0 {
		out = append(out, heap.Pop(&h).(pick).key)
	}

	return out
}

type pickHeap []pick

func (h pickHeap) Len() int { return len(h) }

func (h pickHeap) Less(i, j int) bool {
	if h[i].remaining != h[j].remaining {
		return h[i].remaining < h[j].remaining
	}

	return h[i].seq < h[j].seq
}

func (h pickHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pickHeap) Push(x any) { *h = append(*h, x.(pick)) }

func (h *pickHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]

	return p
}
