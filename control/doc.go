// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, hot-reload, and debug introspection layer
// of hioload-sched.
//
// Provides:
//   - Typed YAML configuration with defaults and validation
//   - A snapshot config store with static and hot keys
//   - Reload listeners
//   - Metrics gauges and counters
//   - Debug probe registration, including platform probes
package control
