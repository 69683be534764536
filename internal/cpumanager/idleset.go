// File: internal/cpumanager/idleset.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package cpumanager tracks which CPUs are idle so dispatch does not scan
// every processing unit. One bit per CPU logical index; a set bit means the
// CPU has no worker dispatched to it and may be handed new work.
package cpumanager

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/fatal"
	"github.com/momentics/hioload-sched/internal/lowlevel"
	"github.com/momentics/hioload-sched/topology"
)

// IdleSet is the shared idle-CPU bitset. Every take operation clears the bit
// it returns under the lock, so two callers never receive the same CPU.
type IdleSet struct {
	lock lowlevel.SpinLock
	idle *bitset.BitSet
	cpus []*topology.CPU
}

// NewIdleSet creates an empty set over cpus, indexed by logical index.
func NewIdleSet(cpus []*topology.CPU) *IdleSet {
	for i, c := range cpus {
		fatal.FailIf(c.Index() != i, api.ErrCodeInvariantViolation,
			"cpu list not ordered by logical index", logrus.Fields{"position": i, "cpu": c.Index()})
	}
	return &IdleSet{
		idle: bitset.New(uint(len(cpus))),
		cpus: cpus,
	}
}

// MarkIdle sets the CPU's bit. Marking an idle CPU again is fatal.
func (s *IdleSet) MarkIdle(cpu *topology.CPU) {
	i := s.bit(cpu)
	s.lock.Lock()
	already := s.idle.Test(i)
	if !already {
		s.idle.Set(i)
	}
	s.lock.Unlock()
	if already {
		fatal.Fail(api.ErrCodeInvariantViolation, "cpu marked idle twice",
			logrus.Fields{"cpu": cpu.Index(), "system": cpu.SystemIndex()})
	}
}

// TakeAnyIdle clears and returns the lowest-indexed idle CPU, or nil.
func (s *IdleSet) TakeAnyIdle() *topology.CPU {
	return s.takeFirst(func(*topology.CPU) bool { return true })
}

// TakeIdleWithCache returns the first idle CPU reaching cache domain id.
func (s *IdleSet) TakeIdleWithCache(id int) *topology.CPU {
	return s.takeFirst(func(c *topology.CPU) bool { return c.HasCache(id) })
}

// TakeIdleInNUMANode returns the first idle CPU of the given node.
func (s *IdleSet) TakeIdleInNUMANode(node int) *topology.CPU {
	return s.takeFirst(func(c *topology.CPU) bool { return c.NUMANode() == node })
}

// Claim clears the bit of one specific CPU, reporting whether it was set.
func (s *IdleSet) Claim(cpu *topology.CPU) bool {
	i := s.bit(cpu)
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.idle.Test(i) {
		return false
	}
	s.idle.Clear(i)
	return true
}

// IsIdle reports the CPU's bit.
func (s *IdleSet) IsIdle(cpu *topology.CPU) bool {
	i := s.bit(cpu)
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.idle.Test(i)
}

// Count returns the number of idle CPUs.
func (s *IdleSet) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return int(s.idle.Count())
}

// Size returns the number of tracked CPUs.
func (s *IdleSet) Size() int { return len(s.cpus) }

func (s *IdleSet) takeFirst(match func(*topology.CPU) bool) *topology.CPU {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, ok := s.idle.NextSet(0); ok; i, ok = s.idle.NextSet(i + 1) {
		if c := s.cpus[i]; match(c) {
			s.idle.Clear(i)
			return c
		}
	}
	return nil
}

func (s *IdleSet) bit(cpu *topology.CPU) uint {
	i := cpu.Index()
	if i < 0 || i >= len(s.cpus) || s.cpus[i] != cpu {
		fatal.Fail(api.ErrCodeInvariantViolation, "cpu not tracked by idle set", logrus.Fields{"cpu": i})
	}
	return uint(i)
}
