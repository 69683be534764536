// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-sched components.

package benchmarks

import (
	"testing"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/fake"
	"github.com/momentics/hioload-sched/internal/cpumanager"
	"github.com/momentics/hioload-sched/internal/devmem"
	"github.com/momentics/hioload-sched/internal/readyqueue"
	"github.com/momentics/hioload-sched/internal/scheduler"
	"github.com/momentics/hioload-sched/topology"
)

// BenchmarkIdleSetTakeMark measures one take plus the matching re-mark.
func BenchmarkIdleSetTakeMark(b *testing.B) {
	topo := topology.Uniform(4, 16)
	idle := cpumanager.NewIdleSet(topo.CPUs)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if cpu := idle.TakeAnyIdle(); cpu != nil {
				idle.MarkIdle(cpu)
			}
		}
	})
}

// BenchmarkReadyQueuePushPop tests both queue kinds under contention.
func BenchmarkReadyQueuePushPop(b *testing.B) {
	for _, kind := range []readyqueue.Kind{readyqueue.Plain, readyqueue.Priority} {
		b.Run(kind.String(), func(b *testing.B) {
			q := readyqueue.New(kind, true)
			task := fake.NewTask("bench").WithPriority(3)

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					q.Push(task)
					q.Pop()
				}
			})
		})
	}
}

// BenchmarkSchedulerAddGet runs the composite scheduler with and without
// the NUMA hierarchy on a four node machine.
func BenchmarkSchedulerAddGet(b *testing.B) {
	for _, hierarchy := range []bool{false, true} {
		name := "flat"
		if hierarchy {
			name = "hierarchical"
		}
		b.Run(name, func(b *testing.B) {
			topo := topology.Uniform(4, 8)
			idle := cpumanager.NewIdleSet(topo.CPUs)
			s := scheduler.New(topo, idle, scheduler.Config{
				Options:   scheduler.Options{Queue: readyqueue.Plain},
				Hierarchy: hierarchy,
			})
			task := fake.NewTask("bench")

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					cpu := topo.CPUs[i%len(topo.CPUs)]
					s.AddReadyTask(task, cpu, api.BusyComputePlaceTask)
					s.GetReadyTask(cpu)
					i++
				}
			})
		})
	}
}

// BenchmarkDirectoryLookup compares discrete and region resolution.
func BenchmarkDirectoryLookup(b *testing.B) {
	for _, mode := range []devmem.Mode{devmem.Discrete, devmem.Region} {
		b.Run(mode.String(), func(b *testing.B) {
			dir := devmem.NewDirectory(fake.NewAllocator(4, 0x10000), mode)
			addrs := make([]uintptr, 1024)
			for i := range addrs {
				addrs[i] = dir.Allocate(256, i)
			}

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					dir.Lookup(addrs[i%len(addrs)] + 16)
					i++
				}
			})
		})
	}
}

// BenchmarkComputeDeviceAffinity scores a task with a handful of accesses.
func BenchmarkComputeDeviceAffinity(b *testing.B) {
	dir := devmem.NewDirectory(fake.NewAllocator(4, 0x10000), devmem.Region)
	task := fake.NewTask("bench")
	for i := range 8 {
		p := dir.Allocate(4096, i)
		task.Access(p, 1024*uintptr(i+1), api.ReadWriteAccess, false)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dir.ComputeDeviceAffinity(task)
	}
}
