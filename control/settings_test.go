package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/internal/devmem"
	"github.com/momentics/hioload-sched/internal/readyqueue"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, readyqueue.Plain, cfg.QueueKind())
	assert.Equal(t, devmem.Discrete, cfg.DirectoryMode())
	_, ok := cfg.DeviceType()
	assert.False(t, ok)
	assert.Equal(t, DefaultParkInterval, cfg.ParkInterval())
	assert.Equal(t, time.Millisecond, cfg.MaintenanceInterval())
}

func TestParseConfig_YAMLOverDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
scheduler:
  policy: priority
  numa_hierarchy: false
dependencies:
  granularity: region
devices:
  type: cuda
  count: 2
workers:
  pin: true
  park_interval: 250us
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, readyqueue.Priority, cfg.QueueKind())
	assert.True(t, cfg.Scheduler.ImmediateSuccessor, "default kept")
	assert.False(t, cfg.Scheduler.NUMAHierarchy)
	assert.Equal(t, devmem.Region, cfg.DirectoryMode())
	dt, ok := cfg.DeviceType()
	assert.True(t, ok)
	assert.Equal(t, api.CUDADevice, dt)
	assert.Equal(t, 250*time.Microsecond, cfg.ParkInterval())
	assert.Equal(t, DefaultMaintenanceInterval, cfg.MaintenanceInterval())

	logger, err := NewLogger(cfg.Log)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestConfig_PriorityFlagForcesPriorityBacking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.Priority = true
	assert.Equal(t, readyqueue.Priority, cfg.QueueKind())
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.Policy = "lifo"
	cfg.Dependencies.Granularity = "pages"
	cfg.Devices = DevicesConfig{Type: "tpu", Count: 1}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"scheduler.policy", "dependencies.granularity", "devices.type", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), part)
	}
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	cfg = DefaultConfig()
	cfg.Devices.Count = -1
	assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidArgument)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sched.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  policy: plain\n"), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.Scheduler.Policy)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("scheduler: [oops"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
