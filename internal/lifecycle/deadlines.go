package lifecycle

import (
	"container/heap"
	"sync"
	"time"
)

// deadlineQueue is a min-heap of response-window deadlines keyed by task ID.
// Each task has at most one entry; scheduling it again moves the entry.
type deadlineQueue struct {
	mu    sync.Mutex
	items deadlineHeap
	index map[int64]*deadline
}

type deadline struct {
	taskID int64
	at     time.Time
	pos    int
}

func newDeadlineQueue() *deadlineQueue {
	return &deadlineQueue{index: make(map[int64]*deadline)}
}

// Schedule sets the deadline for taskID, replacing any earlier one.
func (q *deadlineQueue) Schedule(taskID int64, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if d, ok := q.index[taskID]; ok {
		d.at = at
		heap.Fix(&q.items, d.pos)
		return
	}
	d := &deadline{taskID: taskID, at: at}
	heap.Push(&q.items, d)
	q.index[taskID] = d
}

// Cancel removes the deadline for taskID. It reports whether one existed.
func (q *deadlineQueue) Cancel(taskID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	d, ok := q.index[taskID]
	if !ok {
		return false
	}
	heap.Remove(&q.items, d.pos)
	delete(q.index, taskID)
	return true
}

// PopDue removes and returns, earliest first, every task whose deadline is at or before now.
func (q *deadlineQueue) PopDue(now time.Time) []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []int64
	for len(q.items) > 0 && !q.items[0].at.After(now) {
		d := heap.Pop(&q.items).(*deadline)
		delete(q.index, d.taskID)
		due = append(due, d.taskID)
	}
	return due
}

// Next returns the earliest pending deadline.
func (q *deadlineQueue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

// Len returns the number of scheduled deadlines.
func (q *deadlineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// deadlineHeap implements heap.Interface ordered by deadline, then task ID.
type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].taskID < h[j].taskID
	}
	return h[i].at.Before(h[j].at)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *deadlineHeap) Push(x any) {
	d := x.(*deadline)
	d.pos = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}
