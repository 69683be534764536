// File: internal/concurrency/backoff.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"
	"runtime"
	"time"
)

const (
	backoffYields   = 8
	backoffStartNs  = 1_000
	backoffCapNs    = 1_000_000
	backoffGrowStep = 2
)

// Backoff is an adaptive spin-then-sleep wait. The zero value starts by
// yielding; every call past the yield phase doubles the sleep up to 1ms.
// Not safe for concurrent use.
type Backoff struct {
	calls   int
	sleepNs int64
}

// Reset returns to the yield phase after useful work.
func (b *Backoff) Reset() {
	b.calls = 0
	b.sleepNs = 0
}

// Wait blocks for the current step, or until ctx ends.
func (b *Backoff) Wait(ctx context.Context) {
	if b.calls < backoffYields {
		b.calls++
		runtime.Gosched()
		return
	}
	if b.sleepNs == 0 {
		b.sleepNs = backoffStartNs
	}
	t := time.NewTimer(time.Duration(b.sleepNs))
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}
	b.sleepNs = min(b.sleepNs*backoffGrowStep, backoffCapNs)
}

// current returns the next sleep step, zero while still yielding.
func (b *Backoff) current() time.Duration {
	if b.calls < backoffYields {
		return 0
	}
	return time.Duration(max(b.sleepNs, backoffStartNs))
}
