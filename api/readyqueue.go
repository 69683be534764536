// File: api/readyqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ReadyQueue is a concurrent ordered container of ready tasks for one
// locality domain.
type ReadyQueue interface {
	Push(task Task)
	// Pop returns false when the queue is empty.
	Pop() (Task, bool)
	Len() int
	IsEmpty() bool
}
