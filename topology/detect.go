// File: topology/detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import "runtime"

// Detect discovers the machine's table. Platforms without NUMA information
// report a single node 0 holding every CPU.
func Detect() (*Topology, error) {
	d, err := platformDescription()
	if err != nil || len(d.CPUs) == 0 {
		d = flatDescription(runtime.NumCPU())
	}
	return FromDescription(d)
}

func flatDescription(n int) Description {
	d := Description{}
	for i := 0; i < n; i++ {
		d.CPUs = append(d.CPUs, CPUDescription{System: i, Caches: []int{0}})
	}
	return d
}
