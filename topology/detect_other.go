//go:build !linux
// +build !linux

// File: topology/detect_other.go
// Author: momentics <momentics@gmail.com>

package topology

import "runtime"

func platformDescription() (Description, error) {
	return flatDescription(runtime.NumCPU()), nil
}
