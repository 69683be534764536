// Package api
// Author: momentics@gmail.com
//
// CPU/NUMA affinity and thread pinning contract.

package api

// Affinity controls execution on particular CPUs/NUMA nodes.
type Affinity interface {
	// Pin locks the current goroutine to its OS thread and binds the thread
	// to a CPU (system index) or, with cpuID < 0, to the CPUs of numaID.
	Pin(cpuID int, numaID int) error
	// Unpin removes affinity.
	Unpin() error
	// Get returns current CPU and NUMA node.
	Get() (cpuID int, numaID int, err error)
}
