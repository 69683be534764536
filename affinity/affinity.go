// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for OS thread CPU affinity. Platform-specific
// implementations are located in separate files guarded by build tags.
// Callers must hold runtime.LockOSThread for the binding to stay with the
// goroutine.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-sched/api"
)

// SetAffinity binds the calling OS thread to the given system CPU indices.
func SetAffinity(cpus ...int) error {
	if len(cpus) == 0 {
		return fmt.Errorf("affinity: empty cpu set: %w", api.ErrInvalidArgument)
	}
	for _, c := range cpus {
		if c < 0 {
			return fmt.Errorf("affinity: negative cpu %d: %w", c, api.ErrInvalidArgument)
		}
	}
	return setAffinityPlatform(cpus)
}

// ClearAffinity restores the process-wide CPU mask on the calling thread.
func ClearAffinity() error {
	cpus, err := ProcessCPUs()
	if err != nil {
		return err
	}
	return setAffinityPlatform(cpus)
}

// ThreadCPUs returns the CPUs the calling thread may run on.
func ThreadCPUs() ([]int, error) {
	return threadCPUsPlatform()
}

// ProcessCPUs returns the CPUs the process was started with.
func ProcessCPUs() ([]int, error) {
	return processCPUsPlatform()
}
