// File: control/settings.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed runtime configuration. Everything except the log level is read once
// at startup; the scheduler and directory variants it selects are fixed for
// the life of a runtime.

package control

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/devmem"
	"github.com/momentics/hioload-sched/internal/readyqueue"
	"github.com/momentics/hioload-sched/topology"
)

// Config is the serialisable runtime configuration. Zero durations fall
// back to the defaults.
type Config struct {
	Scheduler    SchedulerConfig    `json:"scheduler" yaml:"scheduler"`
	Dependencies DependenciesConfig `json:"dependencies" yaml:"dependencies"`
	Devices      DevicesConfig      `json:"devices" yaml:"devices"`
	Workers      WorkersConfig      `json:"workers" yaml:"workers"`
	Log          LogConfig          `json:"log" yaml:"log"`
}

type SchedulerConfig struct {
	// Policy is "plain" or "priority".
	Policy             string `json:"policy" yaml:"policy"`
	Priority           bool   `json:"priority" yaml:"priority"`
	ImmediateSuccessor bool   `json:"immediate_successor" yaml:"immediate_successor"`
	NUMAHierarchy      bool   `json:"numa_hierarchy" yaml:"numa_hierarchy"`
}

type DependenciesConfig struct {
	// Granularity is "discrete" or "region".
	Granularity string `json:"granularity" yaml:"granularity"`
}

// DevicesConfig adds simulated accelerators to a detected topology.
type DevicesConfig struct {
	Type  string `json:"type" yaml:"type"`
	Count int    `json:"count" yaml:"count"`
}

type WorkersConfig struct {
	Pin                 bool          `json:"pin" yaml:"pin"`
	ParkInterval        time.Duration `json:"park_interval" yaml:"park_interval"`
	MaintenanceInterval time.Duration `json:"maintenance_interval" yaml:"maintenance_interval"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

const (
	DefaultParkInterval        = 10 * time.Millisecond
	DefaultMaintenanceInterval = time.Millisecond
)

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Policy:             "plain",
			ImmediateSuccessor: true,
			NUMAHierarchy:      true,
		},
		Dependencies: DependenciesConfig{Granularity: "discrete"},
		Devices:      DevicesConfig{Type: "cuda"},
		Workers: WorkersConfig{
			ParkInterval:        DefaultParkInterval,
			MaintenanceInterval: DefaultMaintenanceInterval,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if _, err := readyqueue.ParseKind(c.Scheduler.Policy); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.policy: %w", err))
	}
	if _, err := devmem.ParseMode(c.Dependencies.Granularity); err != nil {
		errs = append(errs, fmt.Errorf("dependencies.granularity: %w", err))
	}
	if c.Devices.Count < 0 {
		errs = append(errs, fmt.Errorf("devices.count must be >= 0: %w", api.ErrInvalidArgument))
	}
	if c.Devices.Count > 0 {
		if _, err := topology.ParseDeviceType(c.Devices.Type); err != nil {
			errs = append(errs, fmt.Errorf("devices.type: %w", err))
		}
	}
	if c.Workers.ParkInterval < 0 || c.Workers.MaintenanceInterval < 0 {
		errs = append(errs, fmt.Errorf("workers intervals must be >= 0: %w", api.ErrInvalidArgument))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: %w", c.Log.Format, api.ErrInvalidArgument))
	}
	return errors.Join(errs...)
}

// QueueKind returns the ready-queue backing. The priority flag forces the
// priority backing whatever the policy says.
func (c *Config) QueueKind() readyqueue.Kind {
	kind, _ := readyqueue.ParseKind(c.Scheduler.Policy)
	if c.Scheduler.Priority {
		return readyqueue.Priority
	}
	return kind
}

// DirectoryMode returns the device directory lookup mode.
func (c *Config) DirectoryMode() devmem.Mode {
	mode, _ := devmem.ParseMode(c.Dependencies.Granularity)
	return mode
}

// DeviceType returns the configured accelerator type, or false when no
// devices are configured.
func (c *Config) DeviceType() (api.DeviceType, bool) {
	if c.Devices.Count <= 0 {
		return api.HostDevice, false
	}
	dt, err := topology.ParseDeviceType(c.Devices.Type)
	return dt, err == nil
}

// ParkInterval returns the worker park interval or its default.
func (c *Config) ParkInterval() time.Duration {
	return orDefault(c.Workers.ParkInterval, DefaultParkInterval)
}

// MaintenanceInterval returns the leader tick or its default.
func (c *Config) MaintenanceInterval() time.Duration {
	return orDefault(c.Workers.MaintenanceInterval, DefaultMaintenanceInterval)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Flatten exposes the configuration as dotted keys for api.Control.
func (c *Config) Flatten() map[string]any {
	return map[string]any{
		"scheduler.policy":              c.Scheduler.Policy,
		"scheduler.priority":            c.Scheduler.Priority,
		"scheduler.immediate_successor": c.Scheduler.ImmediateSuccessor,
		"scheduler.numa_hierarchy":      c.Scheduler.NUMAHierarchy,
		"dependencies.granularity":      c.Dependencies.Granularity,
		"devices.type":                  c.Devices.Type,
		"devices.count":                 c.Devices.Count,
		"workers.pin":                   c.Workers.Pin,
		"workers.park_interval":         c.ParkInterval().String(),
		"workers.maintenance_interval":  c.MaintenanceInterval().String(),
		"log.level":                     c.Log.Level,
		"log.format":                    c.Log.Format,
	}
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseConfig(data)
}

func (l LogConfig) level() (logrus.Level, error) {
	if l.Level == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(l.Level)
}

// NewLogger builds a logger from the log section.
func NewLogger(l LogConfig) (*logrus.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	logger := logrus.New()
	logger.SetLevel(lvl)
	if strings.EqualFold(l.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
