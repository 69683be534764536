// File: internal/concurrency/devices.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/lowlevel"
)

// Runner executes a task on a compute place.
type Runner func(task api.Task, place api.ComputePlace)

// DeviceDrivers lets idle CPUs feed device queues. At most one CPU drives a
// given device at a time.
type DeviceDrivers struct {
	places []api.ComputePlace
	locks  []lowlevel.SpinLock
	batch  int
}

const defaultDriveBatch = 16

// NewDeviceDrivers creates drivers for places.
func NewDeviceDrivers(places []api.ComputePlace) *DeviceDrivers {
	return &DeviceDrivers{
		places: places,
		locks:  make([]lowlevel.SpinLock, len(places)),
		batch:  defaultDriveBatch,
	}
}

// Len returns the number of devices.
func (d *DeviceDrivers) Len() int { return len(d.places) }

// Drive runs up to one batch of ready tasks on every device nobody else is
// driving, and returns how many tasks ran.
func (d *DeviceDrivers) Drive(sched api.Scheduler, run Runner) int {
	ran := 0
	for i, place := range d.places {
		if !d.locks[i].TryLock() {
			continue
		}
		for n := 0; n < d.batch; n++ {
			task, _ := sched.GetReadyTask(place)
			if task == nil {
				break
			}
			run(task, place)
			ran++
		}
		d.locks[i].Unlock()
	}
	return ran
}
