// File: topology/description.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/cpu"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-sched/api"
)

// DefaultCacheLineSize is the line size the Go toolchain pads for on this
// architecture.
var DefaultCacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// Description is a serialisable hardware table.
type Description struct {
	CacheLineSize int                 `yaml:"cache_line_size"`
	CPUs          []CPUDescription    `yaml:"cpus"`
	Devices       []DeviceDescription `yaml:"devices"`
	// SystemNodes maps node indices to OS node ids; identity when empty.
	SystemNodes []int `yaml:"system_nodes"`
}

// CPUDescription describes one processing unit. Logical indices follow
// list order.
type CPUDescription struct {
	System   int   `yaml:"system"`
	NUMANode int   `yaml:"numa_node"`
	Caches   []int `yaml:"caches"`
}

// DeviceDescription describes one accelerator.
type DeviceDescription struct {
	Type     string `yaml:"type"`
	NUMANode int    `yaml:"numa_node"`
}

// ParseDeviceType maps a configuration name to a device type.
func ParseDeviceType(s string) (api.DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cuda":
		return api.CUDADevice, nil
	case "openacc":
		return api.OpenACCDevice, nil
	default:
		return api.HostDevice, fmt.Errorf("unknown device type %q: %w", s, api.ErrInvalidArgument)
	}
}

// LoadDescription reads a YAML description from path and builds the topology.
func LoadDescription(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", path, err)
	}
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("topology: decode %s: %w", path, err)
	}
	return FromDescription(d)
}

// FromDescription validates d and builds the topology.
func FromDescription(d Description) (*Topology, error) {
	if len(d.CPUs) == 0 {
		return nil, fmt.Errorf("topology: no cpus: %w", api.ErrInvalidArgument)
	}
	nodes := 0
	seen := make(map[int]bool, len(d.CPUs))
	for _, c := range d.CPUs {
		if c.System < 0 || c.NUMANode < 0 {
			return nil, fmt.Errorf("topology: cpu %d node %d: %w", c.System, c.NUMANode, api.ErrInvalidArgument)
		}
		if seen[c.System] {
			return nil, fmt.Errorf("topology: cpu %d listed twice: %w", c.System, api.ErrAlreadyExists)
		}
		seen[c.System] = true
		nodes = max(nodes, c.NUMANode+1)
	}

	if len(d.SystemNodes) != 0 && len(d.SystemNodes) != nodes {
		return nil, fmt.Errorf("topology: %d system node ids for %d nodes: %w",
			len(d.SystemNodes), nodes, api.ErrInvalidArgument)
	}

	t := &Topology{
		CacheLineSize: d.CacheLineSize,
		NUMANodes:     make([]*NUMANode, nodes),
		CPUs:          make([]*CPU, len(d.CPUs)),
	}
	if t.CacheLineSize <= 0 {
		t.CacheLineSize = DefaultCacheLineSize
	}
	for i := range t.NUMANodes {
		t.NUMANodes[i] = &NUMANode{Index: i, SystemID: i}
		if len(d.SystemNodes) != 0 {
			t.NUMANodes[i].SystemID = d.SystemNodes[i]
		}
	}
	for i, c := range d.CPUs {
		t.CPUs[i] = newCPU(c.System, i, c.NUMANode, c.Caches)
		t.NUMANodes[c.NUMANode].CPUs = append(t.NUMANodes[c.NUMANode].CPUs, i)
	}
	for i, n := range t.NUMANodes {
		if len(n.CPUs) == 0 {
			return nil, fmt.Errorf("topology: numa node %d has no cpus: %w", i, api.ErrInvalidArgument)
		}
	}

	perType := make(map[api.DeviceType]int)
	for _, dd := range d.Devices {
		dt, err := ParseDeviceType(dd.Type)
		if err != nil {
			return nil, fmt.Errorf("topology: %w", err)
		}
		if dd.NUMANode < 0 || dd.NUMANode >= nodes {
			return nil, fmt.Errorf("topology: device on numa node %d: %w", dd.NUMANode, api.ErrInvalidArgument)
		}
		t.Devices = append(t.Devices, NewDevice(dt, perType[dt], dd.NUMANode))
		perType[dt]++
	}
	return t, nil
}

// Uniform builds a synthetic table: nodes NUMA nodes with cpusPerNode CPUs
// each, one cache domain per node. Handy for tests and simulation.
func Uniform(nodes, cpusPerNode int) *Topology {
	d := Description{}
	for n := 0; n < nodes; n++ {
		for c := 0; c < cpusPerNode; c++ {
			d.CPUs = append(d.CPUs, CPUDescription{
				System:   n*cpusPerNode + c,
				NUMANode: n,
				Caches:   []int{n},
			})
		}
	}
	t, err := FromDescription(d)
	if err != nil {
		panic(err)
	}
	return t
}
