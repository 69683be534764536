// File: internal/devmem/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package devmem

import "github.com/momentics/hioload-sched/api"

// ComputeDeviceAffinity returns the device holding the most bytes of the
// task's scored accesses. Ties, and tasks with nothing resident, go to the
// lowest index.
func (d *Directory) ComputeDeviceAffinity(task api.Task) int {
	scores := make([]uint64, d.devices)
	for access := range task.Accesses() {
		if !access.Scored() {
			continue
		}
		if res, ok := d.Lookup(access.Address); ok {
			scores[res.Device] += uint64(access.Length)
		}
	}

	best := 0
	for dev := 1; dev < len(scores); dev++ {
		if scores[dev] > scores[best] {
			best = dev
		}
	}
	return best
}
