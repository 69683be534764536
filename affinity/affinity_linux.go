//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux implementation over sched_setaffinity(2); pid 0 addresses the
// calling thread.

package affinity

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var processMask = sync.OnceValues(func() (unix.CPUSet, error) {
	var set unix.CPUSet
	err := unix.SchedGetaffinity(0, &set)
	return set, err
})

func setAffinityPlatform(cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cpus {
		set.Set(c)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity %v: %w", cpus, err)
	}
	return nil
}

func threadCPUsPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	return members(&set), nil
}

func processCPUsPlatform() ([]int, error) {
	set, err := processMask()
	if err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	return members(&set), nil
}

func members(set *unix.CPUSet) []int {
	var out []int
	limit := len(set) * int(unsafe.Sizeof(set[0])) * 8
	for c := 0; c < limit; c++ {
		if set.IsSet(c) {
			out = append(out, c)
		}
	}
	return out
}
