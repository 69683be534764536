// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/momentics/hioload-sched/api"
)

// ConfigStore is a dotted-key map with snapshot reads and listener support.
// Seeded keys are read-only unless declared hot; keys that were never seeded
// are free-form.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
	static map[string]struct{}
	hooks  ReloadHooks
}

// NewConfigStore seeds the store. hotKeys may change at runtime.
func NewConfigStore(initial map[string]any, hotKeys ...string) *ConfigStore {
	cs := &ConfigStore{
		config: maps.Clone(initial),
		static: make(map[string]struct{}, len(initial)),
	}
	if cs.config == nil {
		cs.config = make(map[string]any)
	}
	for k := range initial {
		if !slices.Contains(hotKeys, k) {
			cs.static[k] = struct{}{}
		}
	}
	return cs
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// Get returns one value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges new values and runs the reload listeners. An update
// touching a static key is rejected as a whole.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cs.mu.Lock()
	for k := range newCfg {
		if _, static := cs.static[k]; static {
			cs.mu.Unlock()
			return fmt.Errorf("config key %q is fixed at startup: %w", k, api.ErrNotSupported)
		}
	}
	maps.Copy(cs.config, newCfg)
	cs.mu.Unlock()
	cs.hooks.TriggerSync()
	return nil
}

// OnReload registers a listener hook called after every accepted update.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.hooks.Register(fn)
}
