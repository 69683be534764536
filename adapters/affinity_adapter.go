// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface over the affinity
//   package, resolving NUMA nodes through the topology table.
//
// Package adapters provides glue code between the core API contracts
// and the internal implementation.

package adapters

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-sched/affinity"
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/topology"
)

// AffinityAdapter implements api.Affinity. It keeps no per-thread state;
// Get reads the calling thread's mask back from the OS.
type AffinityAdapter struct {
	topo *topology.Topology
}

var _ api.Affinity = (*AffinityAdapter)(nil)

// NewAffinityAdapter creates an adapter over topo.
func NewAffinityAdapter(topo *topology.Topology) *AffinityAdapter {
	return &AffinityAdapter{topo: topo}
}

// Pin locks the goroutine to its thread and binds the thread to cpuID
// (a system index) or, when cpuID < 0, to every CPU of numaID.
func (a *AffinityAdapter) Pin(cpuID int, numaID int) error {
	var cpus []int
	switch {
	case cpuID >= 0:
		cpus = []int{cpuID}
	case numaID >= 0 && numaID < len(a.topo.NUMANodes):
		for _, logical := range a.topo.NUMANodes[numaID].CPUs {
			cpus = append(cpus, a.topo.CPU(logical).SystemIndex())
		}
	default:
		return fmt.Errorf("affinity: pin cpu=%d node=%d: %w", cpuID, numaID, api.ErrInvalidArgument)
	}
	runtime.LockOSThread()
	if err := affinity.SetAffinity(cpus...); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin restores the process mask and releases the OS thread.
func (a *AffinityAdapter) Unpin() error {
	defer runtime.UnlockOSThread()
	return affinity.ClearAffinity()
}

// Get returns the CPU the thread is bound to and its node, or -1 for
// either when the thread may run on several.
func (a *AffinityAdapter) Get() (cpuID int, numaID int, err error) {
	cpus, err := affinity.ThreadCPUs()
	if err != nil {
		return -1, -1, err
	}
	cpuID, numaID = -1, -1
	if len(cpus) == 1 {
		cpuID = cpus[0]
	}
	nodes := map[int]struct{}{}
	for _, sys := range cpus {
		for _, c := range a.topo.CPUs {
			if c.SystemIndex() == sys {
				nodes[c.NUMANode()] = struct{}{}
			}
		}
	}
	if len(nodes) == 1 {
		for n := range nodes {
			numaID = n
		}
	}
	return cpuID, numaID, nil
}
