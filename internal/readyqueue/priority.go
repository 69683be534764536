// File: internal/readyqueue/priority.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package readyqueue

import (
	"container/heap"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/lowlevel"
)

type entry struct {
	task     api.Task
	priority int
	seq      int64
}

// entryHeap orders by descending priority, then ascending sequence.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}

// PriorityQueue is the priority-aware backing. Tail pushes take increasing
// sequence numbers, immediate successors decreasing negative ones, so they
// lead their priority level.
type PriorityQueue struct {
	lock               lowlevel.SpinLock
	heap               entryHeap
	backSeq            int64
	frontSeq           int64
	immediateSuccessor bool
}

var _ api.ReadyQueue = (*PriorityQueue)(nil)

// NewPriority creates an empty priority queue.
func NewPriority(immediateSuccessor bool) *PriorityQueue {
	return &PriorityQueue{immediateSuccessor: immediateSuccessor}
}

func (q *PriorityQueue) Push(task api.Task) {
	q.lock.Lock()
	e := entry{task: task, priority: task.Priority()}
	if q.immediateSuccessor && task.IsImmediateSuccessor() {
		q.frontSeq--
		e.seq = q.frontSeq
	} else {
		e.seq = q.backSeq
		q.backSeq++
	}
	heap.Push(&q.heap, e)
	q.lock.Unlock()
}

func (q *PriorityQueue) Pop() (api.Task, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	return heap.Pop(&q.heap).(entry).task, true
}

func (q *PriorityQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.heap)
}

func (q *PriorityQueue) IsEmpty() bool { return q.Len() == 0 }
