// File: facade/runtime.go
// Unified facade layer for hioload-sched.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime is the explicitly constructed scheduling context: it owns the
// idle-CPU set, the composite scheduler, the device memory directory, the
// control surface, one worker per CPU and the maintenance leader.
// Independent runtimes may coexist. The one process-wide piece is the sink
// for fatal diagnostics, which New points at the logger of the most
// recently built runtime; those diagnostics precede a process abort.

package facade

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/adapters"
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
	"github.com/momentics/hioload-sched/internal/concurrency"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/internal/devmem"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/internal/readyqueue"
	"github.com/momentics/hioload-sched/internal/scheduler"
	"github.com/momentics/hioload-sched/topology"
)

// Runner executes a task on the place it was scheduled to.
type Runner func(task api.Task, place api.ComputePlace)

// Allocator produces managed device memory.
type Allocator interface {
	Alloc(size uintptr, device int) (uintptr, error)
	Free(addr uintptr) error
	DeviceCount() int
}

// Residency is the owner of a device address.
type Residency = devmem.Residency

// Option customises New.
type Option func(*options)

type options struct {
	logger    *logrus.Logger
	allocator Allocator
	affinity  api.Affinity
}

// WithLogger replaces the logger built from the log section of the config.
func WithLogger(l *logrus.Logger) Option { return func(o *options) { o.logger = l } }

// WithAllocator replaces the host-memory device emulation.
func WithAllocator(a Allocator) Option { return func(o *options) { o.allocator = a } }

// WithAffinity replaces the OS thread pinning used when workers.pin is set.
func WithAffinity(a api.Affinity) Option { return func(o *options) { o.affinity = a } }

// Runtime is the main facade type.
type Runtime struct {
	id     uuid.UUID
	cfg    *control.Config
	topo   *topology.Topology
	logger *logrus.Logger
	log    *logrus.Entry

	idle       *cpumanager.IdleSet
	sched      *scheduler.Scheduler
	dir        *devmem.Directory
	deviceType api.DeviceType
	control    *adapters.ControlAdapter
	workers    []*concurrency.Worker
	leader     *concurrency.Leader

	submitted *atomic.Int64

	mu    sync.Mutex
	group *concurrency.Group
}

var _ api.GracefulShutdown = (*Runtime)(nil)

// New assembles a runtime. A nil cfg means defaults, a nil topo means the
// detected machine. Configured devices missing from topo are added.
func New(cfg *control.Config, topo *topology.Topology, run Runner, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("facade: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("facade: nil runner: %w", api.ErrInvalidArgument)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if topo == nil {
		detected, err := topology.Detect()
		if err != nil {
			return nil, fmt.Errorf("facade: %w", err)
		}
		topo = detected
	}
	if len(topo.CPUs) == 0 {
		return nil, fmt.Errorf("facade: topology without cpus: %w", api.ErrInvalidArgument)
	}

	r := &Runtime{id: uuid.New(), cfg: cfg, logger: o.logger}
	if r.logger == nil {
		l, err := control.NewLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("facade: %w", err)
		}
		r.logger = l
	}
	r.log = r.logger.WithField("runtime", r.id.String())
	// process-wide: see the package comment
	fatal.SetLogger(r.logger)

	if dt, ok := cfg.DeviceType(); ok {
		r.deviceType = dt
		if missing := cfg.Devices.Count - len(topo.DevicesOfType(dt)); missing > 0 {
			topo = topo.WithDevices(dt, missing)
		}
	}
	r.topo = topo

	if devices := topo.DevicesOfType(r.deviceType); r.deviceType != api.HostDevice && len(devices) > 0 {
		alloc := o.allocator
		if alloc == nil {
			nodes := make([]int, len(devices))
			for i, d := range devices {
				nodes[i] = topo.SystemNode(d.NUMANode())
			}
			alloc = devmem.NewNUMAHostAllocator(nodes)
		}
		if alloc.DeviceCount() != len(devices) {
			return nil, fmt.Errorf("facade: allocator serves %d devices, topology has %d: %w",
				alloc.DeviceCount(), len(devices), api.ErrInvalidArgument)
		}
		r.dir = devmem.NewDirectory(alloc, cfg.DirectoryMode())
	}

	r.idle = cpumanager.NewIdleSet(topo.CPUs)
	schedCfg := scheduler.Config{
		Options: scheduler.Options{
			Queue:              cfg.QueueKind(),
			ImmediateSuccessor: cfg.Scheduler.ImmediateSuccessor,
		},
		Hierarchy: cfg.Scheduler.NUMAHierarchy,
	}
	if r.dir != nil {
		schedCfg.Scorer = r.dir
	}
	r.sched = scheduler.New(topo, r.idle, schedCfg)

	r.control = adapters.NewControlAdapter(cfg, "log.level")
	r.submitted = r.control.Metrics().Counter("tasks_submitted")
	r.control.OnReload(r.applyLogLevel)
	r.registerProbes()

	var pin api.Affinity
	if cfg.Workers.Pin {
		pin = o.affinity
		if pin == nil {
			pin = adapters.NewAffinityAdapter(topo)
		}
	}
	var places []api.ComputePlace
	for _, d := range topo.Devices {
		places = append(places, d)
	}
	drivers := concurrency.NewDeviceDrivers(places)
	for i, c := range topo.CPUs {
		r.workers = append(r.workers, concurrency.NewWorker(i, c, concurrency.WorkerConfig{
			Scheduler:    r.sched,
			Idle:         r.idle,
			Devices:      drivers,
			Run:          concurrency.Runner(run),
			Affinity:     pin,
			ParkInterval: cfg.ParkInterval(),
			Logger:       r.log,
		}))
	}
	r.leader = concurrency.NewLeader(cfg.MaintenanceInterval(), r.maintain, r.log)

	r.log.WithFields(logrus.Fields{
		"cpus":      len(topo.CPUs),
		"nodes":     topo.MemoryNodeCount(),
		"devices":   len(topo.Devices),
		"collapsed": r.sched.Collapsed(),
		"queue":     cfg.QueueKind().String(),
		"mode":      cfg.DirectoryMode().String(),
	}).Info("runtime created")
	return r, nil
}

// ID returns the runtime instance id.
func (r *Runtime) ID() uuid.UUID { return r.id }

// Topology returns the hardware table in use, devices included.
func (r *Runtime) Topology() *topology.Topology { return r.topo }

// Start launches the workers and the leader.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.group != nil {
		return api.ErrAlreadyStarted
	}
	r.group = concurrency.Start(ctx, r.workers, r.leader)
	r.log.Info("runtime started")
	return nil
}

// Shutdown stops the loops and waits for in-flight tasks. Calling it on a
// runtime that is not running is a no-op.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.group == nil {
		return nil
	}
	err := r.group.Stop()
	r.group = nil
	if err != nil {
		r.log.WithError(err).Warn("runtime stopped with error")
		return err
	}
	r.log.Info("runtime stopped")
	return nil
}

// Submit queues a ready task and wakes the CPU dispatched for it, which is
// also returned.
func (r *Runtime) Submit(task api.Task, origin api.ComputePlace, hint api.ReadyTaskHint) api.ComputePlace {
	r.submitted.Add(1)
	place := r.sched.AddReadyTask(task, origin, hint)
	r.wake(place)
	return place
}

// TaskGetsUnblocked re-queues a task that was blocked on place.
func (r *Runtime) TaskGetsUnblocked(task api.Task, place api.ComputePlace) {
	r.submitted.Add(1)
	r.wake(r.sched.AddReadyTask(task, place, api.UnblockedTask))
}

// DisableCPU removes a CPU from scheduling. Its queued work stays queued.
func (r *Runtime) DisableCPU(logical int) error {
	c := r.topo.CPU(logical)
	if c == nil {
		return fmt.Errorf("facade: cpu %d: %w", logical, api.ErrNotFound)
	}
	r.sched.DisableComputePlace(c)
	r.log.WithField("cpu", logical).Info("cpu disabled")
	return nil
}

// EnableCPU brings a disabled CPU back. Enabling an enabled CPU is a no-op.
func (r *Runtime) EnableCPU(logical int) error {
	c := r.topo.CPU(logical)
	if c == nil {
		return fmt.Errorf("facade: cpu %d: %w", logical, api.ErrNotFound)
	}
	if c.Enabled() {
		return nil
	}
	r.sched.EnableComputePlace(c)
	r.workers[logical].Wake()
	r.log.WithField("cpu", logical).Info("cpu enabled")
	return nil
}

// DeviceAlloc allocates managed memory owned by device.
func (r *Runtime) DeviceAlloc(size uintptr, device int) (uintptr, error) {
	if r.dir == nil {
		return 0, fmt.Errorf("facade: no devices configured: %w", api.ErrNotSupported)
	}
	return r.dir.Allocate(size, device), nil
}

// DeviceFree releases an allocation made by DeviceAlloc.
func (r *Runtime) DeviceFree(addr uintptr) error {
	if r.dir == nil {
		return fmt.Errorf("facade: no devices configured: %w", api.ErrNotSupported)
	}
	r.dir.Free(addr)
	return nil
}

// DeviceLookup resolves a device address.
func (r *Runtime) DeviceLookup(addr uintptr) (Residency, bool) {
	if r.dir == nil {
		return Residency{}, false
	}
	return r.dir.Lookup(addr)
}

// ComputeDeviceAffinity scores task's data residency; 0 without devices.
func (r *Runtime) ComputeDeviceAffinity(task api.Task) int {
	if r.dir == nil {
		return 0
	}
	return r.dir.ComputeDeviceAffinity(task)
}

// Control returns the config, metrics and probe surface.
func (r *Runtime) Control() api.Control { return r.control }

// Scheduler returns the composite scheduler.
func (r *Runtime) Scheduler() api.Scheduler { return r.sched }

// IdleCPUs returns the number of CPUs currently idle.
func (r *Runtime) IdleCPUs() int { return r.idle.Count() }

// Collapsed reports whether host scheduling bypasses the NUMA hierarchy.
func (r *Runtime) Collapsed() bool { return r.sched.Collapsed() }

// QueueKind returns the ready-queue backing in use.
func (r *Runtime) QueueKind() readyqueue.Kind { return r.cfg.QueueKind() }

func (r *Runtime) wake(place api.ComputePlace) {
	if c, ok := place.(*topology.CPU); ok {
		r.workers[c.Index()].Wake()
	}
}

func (r *Runtime) applyLogLevel() {
	v, ok := r.control.GetConfig()["log.level"].(string)
	if !ok {
		return
	}
	lvl, err := logrus.ParseLevel(v)
	if err != nil {
		r.log.WithError(err).Warn("ignoring invalid log level")
		return
	}
	r.logger.SetLevel(lvl)
}

func (r *Runtime) registerProbes() {
	r.control.RegisterDebugProbe("scheduler", func() any { return r.sched.Stats() })
	r.control.RegisterDebugProbe("idle_cpus", func() any { return r.idle.Count() })
	if r.dir != nil {
		r.control.RegisterDebugProbe("devmem.live", func() any { return r.dir.Len() })
		r.control.RegisterDebugProbe("devmem.resident_bytes", func() any { return r.dir.ResidentBytes() })
	}
}

// maintain publishes gauges; it runs on the leader goroutine.
func (r *Runtime) maintain(now time.Time) {
	st := r.sched.Stats()
	r.control.SetMetric("idle_cpus", r.idle.Count())
	r.control.SetMetric("ready.host", st.HostReady)
	for dt, lens := range st.DeviceReady {
		r.control.SetMetric("ready."+dt.String(), lens)
	}
	var run, deviceRun, parks int64
	for _, w := range r.workers {
		run += w.Stats.TasksRun.Load()
		deviceRun += w.Stats.DeviceTasksRun.Load()
		parks += w.Stats.Parks.Load()
	}
	r.control.SetMetric("tasks_run", run)
	r.control.SetMetric("device_tasks_run", deviceRun)
	r.control.SetMetric("parks", parks)
	if r.dir != nil {
		r.control.SetMetric("devmem.live", r.dir.Len())
	}
	r.control.SetMetric("maintenance.last", now)
}
