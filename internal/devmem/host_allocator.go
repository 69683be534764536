// File: internal/devmem/host_allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package devmem

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/momentics/hioload-sched/api"
)

// HostAllocator emulates managed device memory with host mappings. Every
// simulated device draws from the same address space; the directory alone
// records ownership. Where the OS allows it, a device's pages prefer the
// device's NUMA node.
type HostAllocator struct {
	mu    sync.Mutex
	live  map[uintptr][]byte
	nodes []int // preferred OS NUMA node id per device, -1 for none
}

var _ Allocator = (*HostAllocator)(nil)

// NewHostAllocator creates an allocator for devices simulated devices
// without NUMA preference.
func NewHostAllocator(devices int) *HostAllocator {
	nodes := make([]int, devices)
	for i := range nodes {
		nodes[i] = -1
	}
	return NewNUMAHostAllocator(nodes)
}

// NewNUMAHostAllocator creates one simulated device per entry of nodes,
// each an OS NUMA node id or -1.
func NewNUMAHostAllocator(nodes []int) *HostAllocator {
	return &HostAllocator{live: make(map[uintptr][]byte), nodes: nodes}
}

func (h *HostAllocator) DeviceCount() int { return len(h.nodes) }

func (h *HostAllocator) Alloc(size uintptr, device int) (uintptr, error) {
	if device < 0 || device >= len(h.nodes) {
		return 0, fmt.Errorf("device %d out of range [0,%d): %w", device, len(h.nodes), api.ErrInvalidArgument)
	}
	buf, err := mapRegion(int(size), h.nodes[device])
	if err != nil {
		return 0, fmt.Errorf("map %d bytes for device %d: %w", size, device, err)
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	h.mu.Lock()
	h.live[addr] = buf
	h.mu.Unlock()
	return addr, nil
}

func (h *HostAllocator) Free(addr uintptr) error {
	h.mu.Lock()
	buf, ok := h.live[addr]
	delete(h.live, addr)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("free of %#x: %w", addr, api.ErrNotFound)
	}
	return unmapRegion(buf)
}

// Bytes exposes the backing memory of a live allocation, or nil.
func (h *HostAllocator) Bytes(addr uintptr) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live[addr]
}
