package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/adapters"
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(control.DefaultConfig(), "log.level")
	cfg := ctrl.GetConfig()
	assert.Equal(t, "plain", cfg["scheduler.policy"])

	called := 0
	ctrl.OnReload(func() { called++ })
	require.NoError(t, ctrl.SetConfig(map[string]any{"log.level": "warn"}))
	assert.Equal(t, 1, called)
	assert.ErrorIs(t, ctrl.SetConfig(map[string]any{"devices.count": 4}), api.ErrNotSupported)
	assert.Equal(t, 1, called)

	ctrl.SetMetric("idle_cpus", 2)
	ctrl.Metrics().Counter("tasks_run").Add(5)
	ctrl.RegisterDebugProbe("answer", func() any { return 42 })

	stats := ctrl.Stats()
	assert.Equal(t, 2, stats["idle_cpus"])
	assert.EqualValues(t, 5, stats["tasks_run"])
	assert.Equal(t, 42, stats["debug.answer"])
	assert.Contains(t, stats, "debug.platform.cpus")
}
