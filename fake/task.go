// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake task and device allocator implementations for testing and demos.

package fake

import (
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/momentics/hioload-sched/api"
)

// Task is a configurable api.Task.
type Task struct {
	Name      string
	Prio      int
	Immediate bool
	Where     api.Locality
	Device    api.DeviceType
	Data      []api.DataAccess

	// Runs counts executions; Body, if set, is invoked by Run.
	Runs atomic.Int64
	Body func(place api.ComputePlace)
}

var _ api.Task = (*Task)(nil)

// NewTask returns a host task without locality preferences.
func NewTask(name string) *Task {
	return &Task{Name: name, Where: api.NoLocality()}
}

// WithPriority sets the priority.
func (t *Task) WithPriority(p int) *Task { t.Prio = p; return t }

// AsImmediateSuccessor flags the task as immediate successor.
func (t *Task) AsImmediateSuccessor() *Task { t.Immediate = true; return t }

// OnNode sets the NUMA-node hint.
func (t *Task) OnNode(node int) *Task { t.Where.NUMANode = node; return t }

// WithCache sets the cache hint.
func (t *Task) WithCache(cache int) *Task { t.Where.Cache = cache; return t }

// OnDevice makes the task device-bound, with an optional device hint (-1 for none).
func (t *Task) OnDevice(dt api.DeviceType, device int) *Task {
	t.Device = dt
	t.Where.Device = device
	return t
}

// Access appends a data access.
func (t *Task) Access(addr, length uintptr, typ api.AccessType, weak bool) *Task {
	t.Data = append(t.Data, api.DataAccess{Address: addr, Length: length, Type: typ, Weak: weak})
	return t
}

func (t *Task) Priority() int              { return t.Prio }
func (t *Task) IsImmediateSuccessor() bool { return t.Immediate }
func (t *Task) Locality() api.Locality     { return t.Where }
func (t *Task) DeviceType() api.DeviceType { return t.Device }

func (t *Task) Accesses() iter.Seq[api.DataAccess] {
	return slices.Values(t.Data)
}

// Run executes the task body on place.
func (t *Task) Run(place api.ComputePlace) {
	t.Runs.Add(1)
	if t.Body != nil {
		t.Body(place)
	}
}

func (t *Task) String() string { return fmt.Sprintf("task(%s)", t.Name) }
