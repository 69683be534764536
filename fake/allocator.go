// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-sched/api"
)

// Allocator hands out synthetic, page-aligned, monotonically increasing
// addresses without touching memory. Fail forces the next Alloc to error.
type Allocator struct {
	mu      sync.Mutex
	next    uintptr
	live    map[uintptr]uintptr
	devices int

	Fail  bool
	Freed []uintptr
}

// NewAllocator creates an allocator for the given device count, starting at base.
func NewAllocator(devices int, base uintptr) *Allocator {
	return &Allocator{next: base, live: make(map[uintptr]uintptr), devices: devices}
}

func (a *Allocator) DeviceCount() int { return a.devices }

func (a *Allocator) Alloc(size uintptr, device int) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail {
		return 0, fmt.Errorf("fake alloc of %d bytes on device %d: %w", size, device, api.ErrResourceExhausted)
	}
	addr := a.next
	a.next += (size + 4095) &^ 4095
	a.live[addr] = size
	return addr, nil
}

func (a *Allocator) Free(addr uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[addr]; !ok {
		return fmt.Errorf("fake free of %#x: %w", addr, api.ErrNotFound)
	}
	delete(a.live, addr)
	a.Freed = append(a.Freed, addr)
	return nil
}

// Live returns the number of outstanding allocations.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
