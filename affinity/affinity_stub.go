//go:build !linux && !windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-sched/api"
)

func setAffinityPlatform([]int) error {
	return fmt.Errorf("affinity: %s: %w", runtime.GOOS, api.ErrNotSupported)
}

func threadCPUsPlatform() ([]int, error) { return processCPUsPlatform() }

func processCPUsPlatform() ([]int, error) {
	out := make([]int, runtime.NumCPU())
	for i := range out {
		out[i] = i
	}
	return out, nil
}
