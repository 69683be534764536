//go:build !linux && !windows

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

func registerOSProbes(*DebugProbes) {}
