//go:build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific debug probes.

package control

import "golang.org/x/sys/windows"

func registerOSProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.windows_version", func() any {
		v := windows.RtlGetVersion()
		return []uint32{v.MajorVersion, v.MinorVersion, v.BuildNumber}
	})
}
