// File: internal/scheduler/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/topology"
)

// AffinityScorer picks a device for a device-bound task without a hint.
type AffinityScorer interface {
	ComputeDeviceAffinity(task api.Task) int
}

// HostScheduling is what the composite needs from host scheduling.
type HostScheduling interface {
	api.Scheduler
	Pending() int
}

// Config assembles a composite scheduler.
type Config struct {
	Options
	// Hierarchy enables per-NUMA-node host scheduling where it is useful.
	Hierarchy bool
	// Scorer places device tasks that carry no device hint. Optional.
	Scorer AffinityScorer
}

// Scheduler routes host tasks to host scheduling and device tasks to the
// scheduler of their device type.
type Scheduler struct {
	host      HostScheduling
	collapsed bool
	devices   map[api.DeviceType]*UnsyncScheduler
	types     []api.DeviceType
	scorer    AffinityScorer
}

var _ api.Scheduler = (*Scheduler)(nil)

// New builds host scheduling for topo and one device scheduler per device
// type present in it.
func New(topo *topology.Topology, idle *cpumanager.IdleSet, cfg Config) *Scheduler {
	s := &Scheduler{
		devices: make(map[api.DeviceType]*UnsyncScheduler),
		scorer:  cfg.Scorer,
	}
	s.host = NewHostScheduling(topo, idle, cfg.Hierarchy, cfg.Options)
	_, s.collapsed = s.host.(*UnsyncScheduler)
	for _, dt := range topo.DeviceTypes() {
		if dt == api.HostDevice {
			continue
		}
		s.devices[dt] = NewDeviceScheduler(idle, topo.DevicesOfType(dt), cfg.Options)
		s.types = append(s.types, dt)
	}
	logrus.WithFields(logrus.Fields{
		"collapsed": s.collapsed,
		"nodes":     topo.MemoryNodeCount(),
		"devices":   len(topo.Devices),
		"queue":     cfg.Queue.String(),
	}).Debug("scheduler assembled")
	return s
}

// Collapsed reports whether host scheduling is a single flat queue.
func (s *Scheduler) Collapsed() bool { return s.collapsed }

// Host returns the host scheduling layer.
func (s *Scheduler) Host() HostScheduling { return s.host }

// Device returns the scheduler for dt, or nil.
func (s *Scheduler) Device(dt api.DeviceType) *UnsyncScheduler { return s.devices[dt] }

// AddReadyTask places task and returns the idle CPU dispatched for it, if any.
func (s *Scheduler) AddReadyTask(task api.Task, origin api.ComputePlace, hint api.ReadyTaskHint) api.ComputePlace {
	dt := task.DeviceType()
	if dt == api.HostDevice {
		return s.host.AddReadyTask(task, origin, hint)
	}
	ds := s.deviceScheduler(dt)
	device := task.Locality().Device
	if device < 0 && s.scorer != nil {
		device = s.scorer.ComputeDeviceAffinity(task)
	}
	return ds.AddReadyTaskOnDevice(task, device, origin, hint)
}

// GetReadyTask returns work for place. A CPU with nothing to run learns
// through hasIncompatibleWork that device queues still hold tasks.
func (s *Scheduler) GetReadyTask(place api.ComputePlace) (api.Task, bool) {
	if place.Type() == api.HostDevice {
		task, incompatible := s.host.GetReadyTask(place)
		if task != nil {
			return task, false
		}
		return nil, incompatible || s.devicePending()
	}
	ds, ok := s.devices[place.Type()]
	if !ok {
		return nil, false
	}
	task, incompatible := ds.GetReadyTask(place)
	if task != nil {
		return task, false
	}
	return nil, incompatible || s.host.Pending() > 0
}

func (s *Scheduler) TaskGetsUnblocked(task api.Task, place api.ComputePlace) {
	s.AddReadyTask(task, place, api.UnblockedTask)
}

func (s *Scheduler) DisableComputePlace(place api.ComputePlace) {
	if place.Type() == api.HostDevice {
		s.host.DisableComputePlace(place)
		return
	}
	s.deviceScheduler(place.Type()).DisableComputePlace(place)
}

func (s *Scheduler) EnableComputePlace(place api.ComputePlace) {
	if place.Type() == api.HostDevice {
		s.host.EnableComputePlace(place)
		return
	}
	s.deviceScheduler(place.Type()).EnableComputePlace(place)
}

// Stats is a point-in-time view of queued work.
type Stats struct {
	Collapsed   bool
	HostReady   int
	DeviceReady map[api.DeviceType][]int
}

// Stats snapshots the queue lengths.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Collapsed:   s.collapsed,
		HostReady:   s.host.Pending(),
		DeviceReady: make(map[api.DeviceType][]int, len(s.devices)),
	}
	for dt, ds := range s.devices {
		lens := make([]int, ds.QueueCount())
		for i := range lens {
			lens[i] = ds.QueueLen(i)
		}
		st.DeviceReady[dt] = lens
	}
	return st
}

func (s *Scheduler) devicePending() bool {
	for _, dt := range s.types {
		if s.devices[dt].Pending() > 0 {
			return true
		}
	}
	return false
}

func (s *Scheduler) deviceScheduler(dt api.DeviceType) *UnsyncScheduler {
	ds, ok := s.devices[dt]
	if !ok {
		fatal.Fail(api.ErrCodeNotSupported, "no scheduler for device type",
			logrus.Fields{"type": dt.String()})
	}
	return ds
}
