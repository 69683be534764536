// File: internal/lowlevel/spinlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package lowlevel

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds busy spinning before handing the P back to the Go
// scheduler, so a preempted holder can make progress.
const spinsBeforeYield = 64

// SpinLock is a test-and-test-and-set lock. The zero value is unlocked.
type SpinLock struct {
	state atomic.Int32
}

// Lock acquires the lock, spinning while it is held.
func (l *SpinLock) Lock() {
	for spins := 0; ; spins++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires the lock only if it is free.
func (l *SpinLock) TryLock() bool {
	return l.state.Load() == 0 && l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	if l.state.Swap(0) != 1 {
		panic("lowlevel: unlock of unlocked SpinLock")
	}
}
