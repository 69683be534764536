// File: internal/scheduler/hierarchical.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import (
	"cmp"
	"slices"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/topology"
)

// nodeCounters are load hints only; they race with the queues they count.
type nodeCounters struct {
	ready   atomic.Int64
	_       cpu.CacheLinePad
	enabled atomic.Int64
	_       cpu.CacheLinePad
}

// HierarchicalScheduler keeps one host scheduler per NUMA node and routes
// by lock-free per-node counters.
type HierarchicalScheduler struct {
	nodes    []*UnsyncScheduler
	counters []nodeCounters
	idle     *cpumanager.IdleSet
}

var _ api.Scheduler = (*HierarchicalScheduler)(nil)

// CanBeCollapsed reports whether the hierarchy is pointless on topo.
// Evaluated once, at construction.
func CanBeCollapsed(topo *topology.Topology) bool {
	return topo.MemoryNodeCount() == 1
}

// NewHierarchicalScheduler builds the per-node hierarchy over topo.
func NewHierarchicalScheduler(topo *topology.Topology, idle *cpumanager.IdleSet, opts Options) *HierarchicalScheduler {
	n := topo.MemoryNodeCount()
	fatal.FailIf(n == 0, api.ErrCodeInvalidArgument, "topology without memory nodes", nil)
	h := &HierarchicalScheduler{
		nodes:    make([]*UnsyncScheduler, n),
		counters: make([]nodeCounters, n),
		idle:     idle,
	}
	for i := range h.nodes {
		h.nodes[i] = NewHostScheduler(idle, i, opts)
	}
	for _, c := range topo.CPUs {
		if c.Enabled() {
			h.counters[c.NUMANode()].enabled.Add(1)
		}
	}
	return h
}

// NewHostScheduling returns the hierarchy, or a single whole-machine
// scheduler when the hierarchy can be collapsed or is turned off.
func NewHostScheduling(topo *topology.Topology, idle *cpumanager.IdleSet, hierarchy bool, opts Options) HostScheduling {
	if !hierarchy || CanBeCollapsed(topo) {
		return NewHostScheduler(idle, WholeMachine, opts)
	}
	return NewHierarchicalScheduler(topo, idle, opts)
}

// NodeCount returns the number of per-node schedulers.
func (h *HierarchicalScheduler) NodeCount() int { return len(h.nodes) }

// ReadyTasks returns the ready-task hint of node.
func (h *HierarchicalScheduler) ReadyTasks(node int) int64 { return h.counters[node].ready.Load() }

// EnabledCPUs returns the enabled-CPU count of node.
func (h *HierarchicalScheduler) EnabledCPUs(node int) int64 { return h.counters[node].enabled.Load() }

func (h *HierarchicalScheduler) AddReadyTask(task api.Task, origin api.ComputePlace, hint api.ReadyTaskHint) api.ComputePlace {
	node := h.selectNode(task)
	h.counters[node].ready.Add(1)
	place := h.nodes[node].AddReadyTask(task, origin, hint)
	if place == nil && hint.WantsIdleDispatch() {
		// an idle CPU elsewhere steals it through GetReadyTask
		place = h.GetIdleComputePlace()
	}
	return place
}

// GetReadyTask serves the caller's node first, then the node with the most
// ready tasks, then whatever node still has work.
func (h *HierarchicalScheduler) GetReadyTask(place api.ComputePlace) (api.Task, bool) {
	if place == nil || place.Type() != api.HostDevice {
		return nil, h.pending()
	}
	local := place.NUMANode()
	if local >= 0 && local < len(h.nodes) {
		if task := h.popFrom(local, place); task != nil {
			return task, false
		}
	}

	busiest, most := -1, int64(0)
	for i := range h.counters {
		if i == local {
			continue
		}
		if r := h.counters[i].ready.Load(); r > most {
			busiest, most = i, r
		}
	}
	if busiest >= 0 {
		if task := h.popFrom(busiest, place); task != nil {
			return task, false
		}
	}
	for i := range h.nodes {
		if i == local || i == busiest {
			continue
		}
		if task := h.popFrom(i, place); task != nil {
			return task, false
		}
	}
	return nil, false
}

func (h *HierarchicalScheduler) TaskGetsUnblocked(task api.Task, place api.ComputePlace) {
	h.AddReadyTask(task, place, api.UnblockedTask)
}

func (h *HierarchicalScheduler) DisableComputePlace(place api.ComputePlace) {
	c, ok := place.(*topology.CPU)
	if !ok {
		return
	}
	if c.SetEnabled(false) {
		h.counters[c.NUMANode()].enabled.Add(-1)
	}
	h.idle.Claim(c)
}

func (h *HierarchicalScheduler) EnableComputePlace(place api.ComputePlace) {
	c, ok := place.(*topology.CPU)
	if !ok {
		return
	}
	if !c.SetEnabled(true) {
		h.counters[c.NUMANode()].enabled.Add(1)
	}
}

// GetIdleComputePlace takes an idle CPU from the most starved node that has
// one, falling back to any idle CPU.
func (h *HierarchicalScheduler) GetIdleComputePlace() api.ComputePlace {
	for _, node := range h.nodesByRatio() {
		if c := h.idle.TakeIdleInNUMANode(node); c != nil {
			return c
		}
	}
	return asPlace(h.idle.TakeAnyIdle())
}

func (h *HierarchicalScheduler) popFrom(node int, place api.ComputePlace) api.Task {
	task, _ := h.nodes[node].GetReadyTask(place)
	if task != nil {
		h.counters[node].ready.Add(-1)
	}
	return task
}

func (h *HierarchicalScheduler) pending() bool { return h.Pending() > 0 }

// Pending returns the number of queued tasks over all nodes.
func (h *HierarchicalScheduler) Pending() int {
	n := 0
	for _, node := range h.nodes {
		n += node.Pending()
	}
	return n
}

// selectNode honours a valid NUMA hint, otherwise picks the node with the
// highest enabled/(ready+1) ratio. Nodes with no enabled CPU are skipped
// unless all of them are; ties go to the lowest node.
func (h *HierarchicalScheduler) selectNode(task api.Task) int {
	if hinted := task.Locality().NUMANode; hinted >= 0 && hinted < len(h.nodes) {
		return hinted
	}
	best := -1
	var bestEnabled, bestReady int64
	for i := range h.counters {
		enabled := h.counters[i].enabled.Load()
		if enabled <= 0 {
			continue
		}
		ready := max(h.counters[i].ready.Load(), 0) + 1
		// enabled/ready > bestEnabled/bestReady, without division
		if best < 0 || enabled*bestReady > bestEnabled*ready {
			best, bestEnabled, bestReady = i, enabled, ready
		}
	}
	if best < 0 {
		logrus.WithField("nodes", len(h.nodes)).Debug("no enabled cpu on any node; routing to node 0")
		return 0
	}
	return best
}

// nodesByRatio lists nodes with enabled CPUs in descending ratio order.
func (h *HierarchicalScheduler) nodesByRatio() []int {
	type cand struct {
		node           int
		enabled, ready int64
	}
	var cands []cand
	for i := range h.counters {
		if e := h.counters[i].enabled.Load(); e > 0 {
			cands = append(cands, cand{i, e, max(h.counters[i].ready.Load(), 0) + 1})
		}
	}
	slices.SortStableFunc(cands, func(a, b cand) int {
		return cmp.Compare(b.enabled*a.ready, a.enabled*b.ready)
	})
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.node
	}
	return out
}
