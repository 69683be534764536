//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes.

package control

import (
	"os"
	"strings"
)

func registerOSProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.numa_online", func() any {
		data, err := os.ReadFile("/sys/devices/system/node/online")
		if err != nil {
			return "unknown"
		}
		return strings.TrimSpace(string(data))
	})
}
