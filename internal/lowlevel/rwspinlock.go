// File: internal/lowlevel/rwspinlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package lowlevel

import (
	"runtime"
	"sync/atomic"
)

const writerBit = int64(1) << 62

// RWSpinLock admits many readers or one writer. Readers back off while a
// writer holds or is acquiring the lock.
type RWSpinLock struct {
	state atomic.Int64 // writerBit | reader count
}

// RLock acquires a shared hold.
func (l *RWSpinLock) RLock() {
	for spins := 0; ; spins++ {
		s := l.state.Load()
		if s&writerBit == 0 && l.state.CompareAndSwap(s, s+1) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// RUnlock releases a shared hold.
func (l *RWSpinLock) RUnlock() {
	if l.state.Add(-1)&^writerBit < 0 {
		panic("lowlevel: RUnlock of unlocked RWSpinLock")
	}
}

// Lock acquires the exclusive hold. The writer bit is claimed first so new
// readers stop entering, then in-flight readers are drained.
func (l *RWSpinLock) Lock() {
	for spins := 0; ; spins++ {
		s := l.state.Load()
		if s&writerBit == 0 && l.state.CompareAndSwap(s, s|writerBit) {
			break
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
	for spins := 0; l.state.Load() != writerBit; spins++ {
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// Unlock releases the exclusive hold.
func (l *RWSpinLock) Unlock() {
	if !l.state.CompareAndSwap(writerBit, 0) {
		panic("lowlevel: unlock of RWSpinLock not held for writing")
	}
}
