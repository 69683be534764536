// File: api/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task contract consumed by the scheduling core. Tasks are created and
// resolved by the dependency layer; the core only places them.

package api

import "iter"

// Task is a ready unit of work.
type Task interface {
	// Priority orders tasks in priority-aware ready queues; greater runs first.
	Priority() int
	// IsImmediateSuccessor hints that the task should be consumed next by the
	// place that produced it.
	IsImmediateSuccessor() bool
	// Locality returns the preferred NUMA node, cache and device.
	Locality() Locality
	// DeviceType tells which kind of compute place can run the task.
	DeviceType() DeviceType
	// Accesses yields the data accesses of the task in dependency order.
	Accesses() iter.Seq[DataAccess]
}

// ComputePlace is a schedulable execution resource: a CPU or a device.
type ComputePlace interface {
	Type() DeviceType
	// Index is the logical index among places of the same type.
	Index() int
	NUMANode() int
}
