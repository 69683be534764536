//go:build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows implementation over SetThreadAffinityMask. Only the first
// processor group (64 CPUs) is addressable.

package affinity

import (
	"fmt"
	"math/bits"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-sched/api"
)

var (
	kernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask  = kernel32.NewProc("SetThreadAffinityMask")
	procGetProcessAffinityMask = kernel32.NewProc("GetProcessAffinityMask")
)

func setAffinityPlatform(cpus []int) error {
	var mask uintptr
	for _, c := range cpus {
		if c >= bits.UintSize {
			return fmt.Errorf("affinity: cpu %d outside processor group 0: %w", c, api.ErrNotSupported)
		}
		mask |= 1 << uint(c)
	}
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if ret == 0 {
		return fmt.Errorf("affinity: SetThreadAffinityMask %v: %w", cpus, err)
	}
	return nil
}

// threadCPUsPlatform reads the thread mask by setting it to itself: the
// call returns the previous mask.
func threadCPUsPlatform() ([]int, error) {
	procMask, err := processMaskBits()
	if err != nil {
		return nil, err
	}
	prev, _, callErr := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), procMask)
	if prev == 0 {
		return nil, fmt.Errorf("affinity: SetThreadAffinityMask: %w", callErr)
	}
	procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), prev)
	return maskMembers(prev), nil
}

func processCPUsPlatform() ([]int, error) {
	mask, err := processMaskBits()
	if err != nil {
		return nil, err
	}
	return maskMembers(mask), nil
}

func processMaskBits() (uintptr, error) {
	var procMask, sysMask uintptr
	ret, _, err := procGetProcessAffinityMask.Call(uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&procMask)), uintptr(unsafe.Pointer(&sysMask)))
	if ret == 0 {
		return 0, fmt.Errorf("affinity: GetProcessAffinityMask: %w", err)
	}
	return procMask, nil
}

func maskMembers(mask uintptr) []int {
	var out []int
	for c := 0; c < bits.UintSize; c++ {
		if mask&(1<<uint(c)) != 0 {
			out = append(out, c)
		}
	}
	return out
}
