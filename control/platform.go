// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform probes shared by every OS.

package control

import (
	"runtime"

	"github.com/momentics/hioload-sched/affinity"
)

// RegisterPlatformProbes installs the generic probes and the OS-specific ones.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("platform.affinity", func() any {
		cpus, err := affinity.ProcessCPUs()
		if err != nil {
			return err.Error()
		}
		return len(cpus)
	})
	registerOSProbes(dp)
}
