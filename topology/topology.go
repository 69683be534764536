// File: topology/topology.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"slices"
	"sync/atomic"

	"github.com/momentics/hioload-sched/api"
)

const noWorker = -1

// CPU is a processing unit.
type CPU struct {
	systemIndex  int
	logicalIndex int
	numaNode     int
	caches       []int

	enabled atomic.Bool
	worker  atomic.Int64
}

var _ api.ComputePlace = (*CPU)(nil)

func newCPU(systemIndex, logicalIndex, numaNode int, caches []int) *CPU {
	c := &CPU{
		systemIndex:  systemIndex,
		logicalIndex: logicalIndex,
		numaNode:     numaNode,
		caches:       slices.Clone(caches),
	}
	c.enabled.Store(true)
	c.worker.Store(noWorker)
	return c
}

func (c *CPU) Type() api.DeviceType { return api.HostDevice }
func (c *CPU) Index() int           { return c.logicalIndex }
func (c *CPU) NUMANode() int        { return c.numaNode }

// SystemIndex is the OS CPU number used for pinning.
func (c *CPU) SystemIndex() int { return c.systemIndex }

// LogicalIndex is the dense topology-assigned index.
func (c *CPU) LogicalIndex() int { return c.logicalIndex }

// CacheIDs returns the cache domains reachable from this CPU.
func (c *CPU) CacheIDs() []int { return slices.Clone(c.caches) }

// HasCache reports whether id is one of the CPU's cache domains.
func (c *CPU) HasCache(id int) bool { return slices.Contains(c.caches, id) }

// AffinityMask lists the system CPUs a worker bound here is pinned to.
func (c *CPU) AffinityMask() []int { return []int{c.systemIndex} }

func (c *CPU) Enabled() bool { return c.enabled.Load() }

// SetEnabled stores v and returns the previous state.
func (c *CPU) SetEnabled(v bool) bool { return c.enabled.Swap(v) }

// BindWorker attaches worker id to the CPU. It fails if another worker is bound.
func (c *CPU) BindWorker(id int) bool {
	return c.worker.CompareAndSwap(noWorker, int64(id))
}

// UnbindWorker detaches the current worker.
func (c *CPU) UnbindWorker() { c.worker.Store(noWorker) }

// Worker returns the bound worker id or -1.
func (c *CPU) Worker() int { return int(c.worker.Load()) }

// NUMANode is a memory node and the CPUs with direct access to it.
type NUMANode struct {
	Index    int
	SystemID int   // OS node id, for memory policy calls
	CPUs     []int // logical CPU indices
}

// Device is an accelerator compute place.
type Device struct {
	deviceType api.DeviceType
	index      int
	numaNode   int
}

var _ api.ComputePlace = (*Device)(nil)

// NewDevice builds a device place; index counts devices of the same type.
func NewDevice(t api.DeviceType, index, numaNode int) *Device {
	return &Device{deviceType: t, index: index, numaNode: numaNode}
}

func (d *Device) Type() api.DeviceType { return d.deviceType }
func (d *Device) Index() int           { return d.index }
func (d *Device) NUMANode() int        { return d.numaNode }

// Topology is the hardware table.
type Topology struct {
	CPUs          []*CPU // ordered by logical index
	NUMANodes     []*NUMANode
	Devices       []*Device
	CacheLineSize int
}

// MemoryNodeCount returns the number of NUMA nodes.
func (t *Topology) MemoryNodeCount() int { return len(t.NUMANodes) }

// SystemNode returns the OS id of node, or -1 for an unknown node.
func (t *Topology) SystemNode(node int) int {
	if node < 0 || node >= len(t.NUMANodes) {
		return -1
	}
	return t.NUMANodes[node].SystemID
}

// CPU returns the CPU with the given logical index, or nil.
func (t *Topology) CPU(logical int) *CPU {
	if logical < 0 || logical >= len(t.CPUs) {
		return nil
	}
	return t.CPUs[logical]
}

// DevicesOfType returns the devices of type dt ordered by index.
func (t *Topology) DevicesOfType(dt api.DeviceType) []*Device {
	var out []*Device
	for _, d := range t.Devices {
		if d.deviceType == dt {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *Device) int { return a.index - b.index })
	return out
}

// DeviceTypes returns the distinct device types present, in ascending order.
func (t *Topology) DeviceTypes() []api.DeviceType {
	var out []api.DeviceType
	for _, d := range t.Devices {
		if !slices.Contains(out, d.deviceType) {
			out = append(out, d.deviceType)
		}
	}
	slices.Sort(out)
	return out
}

// WithDevices returns a copy of t sharing its CPUs and nodes, with count
// devices of type dt appended, spread round-robin over the NUMA nodes.
func (t *Topology) WithDevices(dt api.DeviceType, count int) *Topology {
	out := *t
	out.Devices = slices.Clone(t.Devices)
	base := len(t.DevicesOfType(dt))
	for i := 0; i < count; i++ {
		out.Devices = append(out.Devices, NewDevice(dt, base+i, i%max(1, len(t.NUMANodes))))
	}
	return &out
}
