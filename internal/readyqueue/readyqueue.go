// File: internal/readyqueue/readyqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package readyqueue provides the two ready-queue backings: a plain deque
// and a priority heap. Both are guarded by a per-queue spin lock and keep
// FIFO order among tasks of equal priority. Tasks flagged as immediate
// successors jump to the front when the queue is built with that option.
package readyqueue

import (
	"fmt"
	"strings"

	"github.com/momentics/hioload-sched/api"
)

// Kind selects the queue backing.
type Kind int

const (
	Plain Kind = iota
	Priority
)

func (k Kind) String() string {
	if k == Priority {
		return "priority"
	}
	return "plain"
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "fifo":
		return Plain, nil
	case "priority":
		return Priority, nil
	default:
		return Plain, fmt.Errorf("unknown scheduling policy %q: %w", s, api.ErrInvalidArgument)
	}
}

// New builds an empty queue of the given kind.
func New(kind Kind, immediateSuccessor bool) api.ReadyQueue {
	if kind == Priority {
		return NewPriority(immediateSuccessor)
	}
	return NewDeque(immediateSuccessor)
}
