// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector: gauges published by the maintenance loop and
// counters bumped by workers.

package control

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRegistry holds gauges set by key and lock-free counters.
type MetricsRegistry struct {
	mu       sync.RWMutex
	metrics  map[string]any
	counters map[string]*atomic.Int64
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics:  make(map[string]any),
		counters: make(map[string]*atomic.Int64),
	}
}

// Set sets or updates a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns the counter registered under key, creating it on first use.
func (mr *MetricsRegistry) Counter(key string) *atomic.Int64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; !ok {
		c = new(atomic.Int64)
		mr.counters[key] = c
	}
	return c
}

// GetSnapshot returns gauges and current counter values.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := maps.Clone(mr.metrics)
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}

// Updated returns the time of the last gauge update.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
