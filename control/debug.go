// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry for runtime introspection.

package control

import (
	"fmt"
	"maps"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts or replaces a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState evaluates every probe outside the registry lock. A panicking
// probe reports its panic value instead of a result.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	probes := maps.Clone(dp.probes)
	dp.mu.RUnlock()

	out := make(map[string]any, len(probes))
	for k, fn := range probes {
		out[k] = evalProbe(fn)
	}
	return out
}

func evalProbe(fn func() any) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = fmt.Sprintf("probe panic: %v", r)
		}
	}()
	return fn()
}
