// File: internal/concurrency/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/topology"
)

// WorkerConfig holds what every worker shares.
type WorkerConfig struct {
	Scheduler    api.Scheduler
	Idle         *cpumanager.IdleSet
	Devices      *DeviceDrivers // optional
	Run          Runner
	Affinity     api.Affinity // nil disables pinning
	ParkInterval time.Duration
	Logger       *logrus.Entry
}

// WorkerStats are cumulative counters, readable while the worker runs.
type WorkerStats struct {
	TasksRun       atomic.Int64
	DeviceTasksRun atomic.Int64
	Parks          atomic.Int64
	Wakeups        atomic.Int64
}

// Worker is the dispatch loop of one CPU.
type Worker struct {
	id   int
	cpu  *topology.CPU
	cfg  WorkerConfig
	wake chan struct{}
	log  *logrus.Entry

	Stats WorkerStats
}

// NewWorker creates the worker for cpu.
func NewWorker(id int, cpu *topology.CPU, cfg WorkerConfig) *Worker {
	if cfg.ParkInterval <= 0 {
		cfg.ParkInterval = 10 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		id:   id,
		cpu:  cpu,
		cfg:  cfg,
		wake: make(chan struct{}, 1),
		log:  cfg.Logger.WithFields(logrus.Fields{"worker": id, "cpu": cpu.Index(), "node": cpu.NUMANode()}),
	}
}

// CPU returns the worker's CPU.
func (w *Worker) CPU() *topology.CPU { return w.cpu }

// Wake unparks the worker. Extra wakes coalesce.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run executes the loop until ctx ends. The worker leaves its idle bit
// cleared on return.
func (w *Worker) Run(ctx context.Context) error {
	if !w.cpu.BindWorker(w.id) {
		return fmt.Errorf("cpu %d already bound to worker %d: %w", w.cpu.Index(), w.cpu.Worker(), api.ErrAlreadyExists)
	}
	defer w.cpu.UnbindWorker()

	if w.cfg.Affinity != nil {
		if err := w.cfg.Affinity.Pin(w.cpu.SystemIndex(), -1); err != nil {
			w.log.WithError(err).Warn("cpu pinning failed; running unpinned")
		} else {
			defer func() {
				if err := w.cfg.Affinity.Unpin(); err != nil {
					w.log.WithError(err).Debug("unpin failed")
				}
			}()
		}
	}

	w.log.Debug("worker started")
	defer w.log.Debug("worker stopped")

	var backoff Backoff
	for ctx.Err() == nil {
		if !w.cpu.Enabled() {
			w.park(ctx)
			continue
		}
		task, incompatible := w.cfg.Scheduler.GetReadyTask(w.cpu)
		if task != nil {
			w.cfg.Run(task, w.cpu)
			w.Stats.TasksRun.Add(1)
			backoff.Reset()
			continue
		}
		if incompatible {
			if w.driveDevices() > 0 {
				backoff.Reset()
			} else {
				backoff.Wait(ctx)
			}
			continue
		}
		w.idleWait(ctx)
	}
	w.cfg.Idle.Claim(w.cpu)
	return nil
}

func (w *Worker) driveDevices() int {
	if w.cfg.Devices == nil {
		return 0
	}
	n := w.cfg.Devices.Drive(w.cfg.Scheduler, w.cfg.Run)
	w.Stats.DeviceTasksRun.Add(int64(n))
	return n
}

// idleWait publishes the CPU as idle and parks. Whoever takes the idle bit
// owns the wake-up; on timeout the worker takes its own bit back.
func (w *Worker) idleWait(ctx context.Context) {
	w.cfg.Idle.MarkIdle(w.cpu)
	if !w.cpu.Enabled() {
		// raced with a disable that found the bit still clear
		w.cfg.Idle.Claim(w.cpu)
		return
	}
	w.Stats.Parks.Add(1)

	t := time.NewTimer(w.cfg.ParkInterval)
	defer t.Stop()
	select {
	case <-w.wake:
		// a wake that did not come from a taker leaves the bit set
		w.cfg.Idle.Claim(w.cpu)
		w.Stats.Wakeups.Add(1)
	case <-ctx.Done():
	case <-t.C:
		if !w.cfg.Idle.Claim(w.cpu) {
			// taken concurrently; its wake is on the way
			w.park(ctx)
		}
	}
}

func (w *Worker) park(ctx context.Context) {
	t := time.NewTimer(w.cfg.ParkInterval)
	defer t.Stop()
	select {
	case <-w.wake:
		w.Stats.Wakeups.Add(1)
	case <-ctx.Done():
	case <-t.C:
	}
}
