// File: api/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control is the runtime's policy and observability surface. Config keys
// are dotted ("scheduler.policy"); only keys registered as hot may change
// after the runtime is built.
type Control interface {
	// GetConfig returns a flat snapshot of the active settings.
	GetConfig() map[string]any
	// SetConfig applies a partial update. Static keys yield ErrNotSupported.
	SetConfig(cfg map[string]any) error
	OnReload(fn func())

	// Stats merges published metrics with debug probe output.
	Stats() map[string]any
	SetMetric(key string, value any)
	RegisterDebugProbe(name string, fn func() any)
}
