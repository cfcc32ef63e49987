package workerpool

import (
	"container/heap"
	"time"
)

// queueItem is an item in the priority queue.
type queueItem struct {
	task       Task
	priority   Priority
	seq        int64
	enqueuedAt time.Time
	// index is used by heap.Interface methods.
	index int
}

// priorityHeap implements heap.Interface for queue items.
type priorityHeap []*queueItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority.Higher(h[j].priority) {
		return true
	}
	if h[j].priority.Higher(h[i].priority) {
		return false
	}
	// Deterministic tie-breaker: earlier submitted task first.
	return h[i].seq < h[j].seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*h = old[0 : n-1]
	return item
}

// queue orders tasks by priority. It is not safe for concurrent use;
// Pool serializes access with its own mutex.
type queue struct {
	heap priorityHeap
	seq  int64
}

func newQueue() *queue {
	return &queue{heap: make(priorityHeap, 0)}
}

func (q *queue) len() int {
	return q.heap.Len()
}

func (q *queue) push(task Task, now time.Time) {
	item := &queueItem{
		task:       task,
		priority:   task.Priority(),
		seq:        q.seq,
		enqueuedAt: now,
	}
	q.seq++
	heap.Push(&q.heap, item)
}

// pop removes and returns the highest priority item, or nil if empty.
func (q *queue) pop() *queueItem {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*queueItem)
}

// clear drops every queued item and returns how many were dropped.
func (q *queue) clear() int {
	n := q.heap.Len()
	q.heap = make(priorityHeap, 0)
	return n
}
