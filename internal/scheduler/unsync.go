// File: internal/scheduler/unsync.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package scheduler places ready tasks on compute places. UnsyncScheduler
// owns one ready queue per domain (a NUMA node, the whole machine, or one
// accelerator device); HierarchicalScheduler stacks one host scheduler per
// NUMA node; Scheduler composes host and device scheduling for the runtime.
package scheduler

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/internal/readyqueue"
	"github.com/momentics/hioload-sched/topology"
)

// WholeMachine is the host domain of a collapsed scheduler.
const WholeMachine = -1

// Options selects the ready-queue backing of every queue a scheduler owns.
type Options struct {
	Queue              readyqueue.Kind
	ImmediateSuccessor bool
}

// UnsyncScheduler owns N independent ready queues. Queue locks are the only
// synchronization; there is no scheduler-wide lock.
type UnsyncScheduler struct {
	kind    api.DeviceType
	queues  []api.ReadyQueue
	nodes   []int // NUMA node of each queue's domain, WholeMachine for all
	enabled []atomic.Bool
	idle    *cpumanager.IdleSet
}

var _ api.Scheduler = (*UnsyncScheduler)(nil)

func newUnsync(kind api.DeviceType, nodes []int, idle *cpumanager.IdleSet, opts Options) *UnsyncScheduler {
	s := &UnsyncScheduler{
		kind:    kind,
		queues:  make([]api.ReadyQueue, len(nodes)),
		nodes:   nodes,
		enabled: make([]atomic.Bool, len(nodes)),
		idle:    idle,
	}
	for i := range s.queues {
		s.queues[i] = readyqueue.New(opts.Queue, opts.ImmediateSuccessor)
		s.enabled[i].Store(true)
	}
	return s
}

// NewHostScheduler creates a single-queue scheduler for the CPUs of node,
// or of the whole machine when node is WholeMachine.
func NewHostScheduler(idle *cpumanager.IdleSet, node int, opts Options) *UnsyncScheduler {
	return newUnsync(api.HostDevice, []int{node}, idle, opts)
}

// NewDeviceScheduler creates one queue per device. Devices must share a
// type and be ordered by index.
func NewDeviceScheduler(idle *cpumanager.IdleSet, devices []*topology.Device, opts Options) *UnsyncScheduler {
	fatal.FailIf(len(devices) == 0, api.ErrCodeInvalidArgument, "device scheduler without devices", nil)
	kind := devices[0].Type()
	nodes := make([]int, len(devices))
	for i, d := range devices {
		fatal.FailIf(d.Type() != kind || d.Index() != i, api.ErrCodeInvariantViolation,
			"device list not homogeneous and index-ordered",
			logrus.Fields{"position": i, "device": d.Index(), "type": d.Type().String()})
		nodes[i] = d.NUMANode()
	}
	return newUnsync(kind, nodes, idle, opts)
}

// DeviceType returns the kind of places this scheduler serves.
func (s *UnsyncScheduler) DeviceType() api.DeviceType { return s.kind }

// QueueCount returns N.
func (s *UnsyncScheduler) QueueCount() int { return len(s.queues) }

// AddReadyTask queues task on the domain of its locality hint and, when
// hint asks for it, dispatches an idle CPU of that domain.
func (s *UnsyncScheduler) AddReadyTask(task api.Task, origin api.ComputePlace, hint api.ReadyTaskHint) api.ComputePlace {
	return s.AddReadyTaskOnDevice(task, task.Locality().Device, origin, hint)
}

// AddReadyTaskOnDevice is AddReadyTask with an explicit device choice. The
// device index is ignored by host schedulers.
func (s *UnsyncScheduler) AddReadyTaskOnDevice(task api.Task, device int, _ api.ComputePlace, hint api.ReadyTaskHint) api.ComputePlace {
	fatal.FailIf(task == nil, api.ErrCodeInvalidArgument, "nil ready task", nil)
	q := s.route(device)
	s.queues[q].Push(task)
	if !hint.WantsIdleDispatch() {
		return nil
	}
	return s.dispatchIdle(q, task)
}

// GetReadyTask pops from the queue serving place. hasIncompatibleWork is
// true when that queue is empty while some other queue holds work.
func (s *UnsyncScheduler) GetReadyTask(place api.ComputePlace) (api.Task, bool) {
	q, ok := s.queueOf(place)
	if ok && s.enabled[q].Load() {
		if task, found := s.queues[q].Pop(); found {
			return task, false
		}
	}
	for i, other := range s.queues {
		if (!ok || i != q) && !other.IsEmpty() {
			return nil, true
		}
	}
	return nil, false
}

// TaskGetsUnblocked re-inserts a previously blocked task.
func (s *UnsyncScheduler) TaskGetsUnblocked(task api.Task, place api.ComputePlace) {
	s.AddReadyTask(task, place, api.UnblockedTask)
}

// DisableComputePlace removes place from selection. Queued tasks stay.
func (s *UnsyncScheduler) DisableComputePlace(place api.ComputePlace) {
	if cpu, ok := place.(*topology.CPU); ok {
		cpu.SetEnabled(false)
		s.idle.Claim(cpu)
		return
	}
	if q, ok := s.queueOf(place); ok {
		s.enabled[q].Store(false)
	}
}

// EnableComputePlace restores place. A re-enabled CPU turns idle through
// its own worker, the only caller of MarkIdle for it.
func (s *UnsyncScheduler) EnableComputePlace(place api.ComputePlace) {
	if cpu, ok := place.(*topology.CPU); ok {
		cpu.SetEnabled(true)
		return
	}
	if q, ok := s.queueOf(place); ok {
		s.enabled[q].Store(true)
	}
}

// IsEnabled reports whether queue q accepts routed work.
func (s *UnsyncScheduler) IsEnabled(q int) bool { return s.enabled[q].Load() }

// Pending returns the number of queued tasks over all queues.
func (s *UnsyncScheduler) Pending() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

// QueueLen returns the length of queue q.
func (s *UnsyncScheduler) QueueLen(q int) int { return s.queues[q].Len() }

// route picks the queue for a device hint: the hinted device modulo N
// (negative hints mean device 0), or the lowest enabled device when the
// hinted one is disabled.
func (s *UnsyncScheduler) route(device int) int {
	n := len(s.queues)
	if n == 1 {
		return 0
	}
	q := 0
	if device > 0 {
		q = device % n
	}
	if s.enabled[q].Load() {
		return q
	}
	for i := range s.enabled {
		if s.enabled[i].Load() {
			return i
		}
	}
	return q
}

func (s *UnsyncScheduler) queueOf(place api.ComputePlace) (int, bool) {
	if place == nil || place.Type() != s.kind {
		return 0, false
	}
	if s.kind == api.HostDevice {
		return 0, true
	}
	i := place.Index()
	return i, i >= 0 && i < len(s.queues)
}

// dispatchIdle takes an idle CPU for queue q. Host domains try the task's
// cache hint first, then the domain's node. Device queues are driven by
// CPUs, preferably from the device's node.
func (s *UnsyncScheduler) dispatchIdle(q int, task api.Task) api.ComputePlace {
	node := s.nodes[q]
	if s.kind == api.HostDevice {
		if cache := task.Locality().Cache; cache >= 0 {
			if cpu := s.idle.TakeIdleWithCache(cache); cpu != nil {
				return cpu
			}
		}
		return asPlace(s.takeInDomain(node))
	}
	if cpu := s.takeInDomain(node); cpu != nil {
		return cpu
	}
	return asPlace(s.idle.TakeAnyIdle())
}

func (s *UnsyncScheduler) takeInDomain(node int) *topology.CPU {
	if node == WholeMachine {
		return s.idle.TakeAnyIdle()
	}
	return s.idle.TakeIdleInNUMANode(node)
}

// asPlace keeps a nil *CPU from becoming a non-nil interface.
func asPlace(cpu *topology.CPU) api.ComputePlace {
	if cpu == nil {
		return nil
	}
	return cpu
}
