// File: internal/readyqueue/deque.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package readyqueue

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/lowlevel"
)

// Deque is the plain backing. Regular tasks are appended to a ring-buffer
// FIFO; immediate successors are stacked in front of it.
type Deque struct {
	lock               lowlevel.SpinLock
	front              []api.Task // top of stack pops first
	fifo               *queue.Queue
	immediateSuccessor bool
}

var _ api.ReadyQueue = (*Deque)(nil)

// NewDeque creates an empty plain queue.
func NewDeque(immediateSuccessor bool) *Deque {
	return &Deque{fifo: queue.New(), immediateSuccessor: immediateSuccessor}
}

func (d *Deque) Push(task api.Task) {
	d.lock.Lock()
	if d.immediateSuccessor && task.IsImmediateSuccessor() {
		d.front = append(d.front, task)
	} else {
		d.fifo.Add(task)
	}
	d.lock.Unlock()
}

func (d *Deque) Pop() (api.Task, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if n := len(d.front); n > 0 {
		t := d.front[n-1]
		d.front[n-1] = nil
		d.front = d.front[:n-1]
		return t, true
	}
	if d.fifo.Length() == 0 {
		return nil, false
	}
	return d.fifo.Remove().(api.Task), true
}

func (d *Deque) Len() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.front) + d.fifo.Length()
}

func (d *Deque) IsEmpty() bool { return d.Len() == 0 }
