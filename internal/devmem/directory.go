// File: internal/devmem/directory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package devmem tracks which device owns each outstanding managed
// allocation and scores devices for a task's data residency.
package devmem

import (
	"fmt"
	"strings"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/internal/lowlevel"
)

// Mode selects lookup semantics. It is fixed at construction.
type Mode int

const (
	// Discrete matches allocation base addresses only.
	Discrete Mode = iota
	// Region matches any address inside [base, base+size).
	Region
)

func (m Mode) String() string {
	if m == Region {
		return "region"
	}
	return "discrete"
}

// ParseMode maps the dependency granularity option to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "discrete":
		return Discrete, nil
	case "region", "regions":
		return Region, nil
	default:
		return Discrete, fmt.Errorf("unknown dependency granularity %q: %w", s, api.ErrInvalidArgument)
	}
}

// Allocator is the device layer producing managed allocations.
type Allocator interface {
	Alloc(size uintptr, device int) (uintptr, error)
	Free(addr uintptr) error
	DeviceCount() int
}

// Residency is the answer to a lookup.
type Residency struct {
	// Size is the full allocation size in discrete mode and the bytes left
	// from the queried address to the end of the allocation in region mode.
	Size   uintptr
	Device int
}

type entry struct {
	base   uintptr
	size   uintptr
	device int
}

func lessEntry(a, b entry) bool { return a.base < b.base }

const btreeDegree = 16

// Directory maps base addresses to owning devices.
type Directory struct {
	lock    lowlevel.RWSpinLock
	entries *btree.BTreeG[entry]
	mode    Mode
	alloc   Allocator
	devices int
}

// NewDirectory creates an empty directory over alloc.
func NewDirectory(alloc Allocator, mode Mode) *Directory {
	fatal.FailIf(alloc == nil, api.ErrCodeInvalidArgument, "device directory without allocator", nil)
	devices := alloc.DeviceCount()
	fatal.FailIf(devices <= 0, api.ErrCodeInvalidArgument, "device directory without devices",
		logrus.Fields{"devices": devices})
	return &Directory{
		entries: btree.NewG(btreeDegree, lessEntry),
		mode:    mode,
		alloc:   alloc,
		devices: devices,
	}
}

// Mode returns the lookup mode.
func (d *Directory) Mode() Mode { return d.mode }

// DeviceCount returns the number of devices scored by ComputeDeviceAffinity.
func (d *Directory) DeviceCount() int { return d.devices }

// Allocate obtains size bytes of managed memory on device and records the
// owner. The device index wraps around the device count. Allocation
// failure is fatal.
func (d *Directory) Allocate(size uintptr, device int) uintptr {
	if size == 0 {
		fatal.Fail(api.ErrCodeInvalidArgument, "zero-sized device allocation", logrus.Fields{"device": device})
	}
	device = d.normalize(device)

	addr, err := d.alloc.Alloc(size, device)
	if err != nil {
		fatal.Fail(api.ErrCodeResourceExhausted, "device allocation failed",
			logrus.Fields{"size": size, "device": device, "error": err.Error()})
	}

	d.lock.Lock()
	_, replaced := d.entries.ReplaceOrInsert(entry{base: addr, size: size, device: device})
	d.lock.Unlock()
	if replaced {
		fatal.Fail(api.ErrCodeInvariantViolation, "allocator returned a live address",
			logrus.Fields{"addr": fmt.Sprintf("%#x", addr), "device": device})
	}
	return addr
}

// Free forgets addr and releases the allocation. Unknown addresses are fatal.
func (d *Directory) Free(addr uintptr) {
	d.lock.Lock()
	_, found := d.entries.Delete(entry{base: addr})
	d.lock.Unlock()
	if !found {
		fatal.Fail(api.ErrCodeNotFound, "free of unregistered device address",
			logrus.Fields{"addr": fmt.Sprintf("%#x", addr)})
	}

	if err := d.alloc.Free(addr); err != nil {
		fatal.Fail(api.ErrCodeInternal, "device free failed",
			logrus.Fields{"addr": fmt.Sprintf("%#x", addr), "error": err.Error()})
	}
}

// Lookup resolves addr to its owning device.
func (d *Directory) Lookup(addr uintptr) (Residency, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.mode == Discrete {
		e, ok := d.entries.Get(entry{base: addr})
		if !ok {
			return Residency{}, false
		}
		return Residency{Size: e.size, Device: e.device}, true
	}

	var (
		hit   entry
		found bool
	)
	d.entries.DescendLessOrEqual(entry{base: addr}, func(e entry) bool {
		hit, found = e, true
		return false
	})
	if !found || addr-hit.base >= hit.size {
		return Residency{}, false
	}
	return Residency{Size: hit.size - (addr - hit.base), Device: hit.device}, true
}

// Contains reports whether addr resolves under the current mode.
func (d *Directory) Contains(addr uintptr) bool {
	_, ok := d.Lookup(addr)
	return ok
}

// Len returns the number of live allocations.
func (d *Directory) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.entries.Len()
}

// ResidentBytes returns the live allocated bytes per device.
func (d *Directory) ResidentBytes() []uint64 {
	out := make([]uint64, d.devices)
	d.lock.RLock()
	d.entries.Ascend(func(e entry) bool {
		out[e.device] += uint64(e.size)
		return true
	})
	d.lock.RUnlock()
	return out
}

func (d *Directory) normalize(device int) int {
	device %= d.devices
	if device < 0 {
		device += d.devices
	}
	return device
}
