// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
)

// ControlAdapter joins the config store, metrics and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter seeds the store from cfg; only hotKeys may change later.
func NewControlAdapter(cfg *control.Config, hotKeys ...string) *ControlAdapter {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(cfg.Flatten(), hotKeys...),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	return c.config.SetConfig(cfg)
}

// Stats merges metrics with probe output, the latter under "debug.".
func (c *ControlAdapter) Stats() map[string]any {
	combined := c.metrics.GetSnapshot()
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Metrics exposes the registry for counters.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry {
	return c.metrics
}
