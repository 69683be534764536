// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations: device kinds, data access records,
// locality hints and ready-task hints.

package api

// DeviceType enumerates the kinds of compute places known to the runtime.
type DeviceType int

const (
	HostDevice DeviceType = iota
	CUDADevice
	OpenACCDevice
)

func (d DeviceType) String() string {
	switch d {
	case HostDevice:
		return "host"
	case CUDADevice:
		return "cuda"
	case OpenACCDevice:
		return "openacc"
	default:
		return "unknown"
	}
}

// AccessType enumerates the dependency kinds of a data access.
type AccessType int

const (
	ReadAccess AccessType = iota
	WriteAccess
	ReadWriteAccess
	ConcurrentAccess
	CommutativeAccess
	ReductionAccess
)

func (a AccessType) String() string {
	switch a {
	case ReadAccess:
		return "read"
	case WriteAccess:
		return "write"
	case ReadWriteAccess:
		return "readwrite"
	case ConcurrentAccess:
		return "concurrent"
	case CommutativeAccess:
		return "commutative"
	case ReductionAccess:
		return "reduction"
	default:
		return "unknown"
	}
}

// DataAccess is one region a task touches.
type DataAccess struct {
	Address uintptr
	Length  uintptr
	Weak    bool
	Type    AccessType
}

// Scored reports whether the access counts towards device affinity.
// Weak and reduction accesses do not represent exclusive residency.
func (a DataAccess) Scored() bool {
	return !a.Weak && a.Type != ReductionAccess
}

// Locality carries placement preferences of a task. Negative fields mean
// "no preference".
type Locality struct {
	NUMANode int
	Cache    int
	Device   int
}

// NoLocality returns a Locality without any preference.
func NoLocality() Locality {
	return Locality{NUMANode: -1, Cache: -1, Device: -1}
}

// ReadyTaskHint describes where a newly ready task comes from.
type ReadyTaskHint int

const (
	NoHint ReadyTaskHint = iota
	ChildTask
	SiblingTask
	// BusyComputePlaceTask: the origin keeps running and will fetch the work itself.
	BusyComputePlaceTask
	UnblockedTask
)

func (h ReadyTaskHint) String() string {
	switch h {
	case NoHint:
		return "none"
	case ChildTask:
		return "child"
	case SiblingTask:
		return "sibling"
	case BusyComputePlaceTask:
		return "busy"
	case UnblockedTask:
		return "unblocked"
	default:
		return "unknown"
	}
}

// WantsIdleDispatch reports whether the scheduler should try to hand the
// task to an idle compute place right away.
func (h ReadyTaskHint) WantsIdleDispatch() bool {
	return h != BusyComputePlaceTask
}
