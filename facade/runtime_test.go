package facade_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
	"github.com/momentics/hioload-sched/facade"
	"github.com/momentics/hioload-sched/fake"
	"github.com/momentics/hioload-sched/topology"
)

type recorder struct {
	mu     sync.Mutex
	places map[string]api.ComputePlace
}

func (r *recorder) run(task api.Task, place api.ComputePlace) {
	ft := task.(*fake.Task)
	ft.Run(place)
	r.mu.Lock()
	r.places[ft.Name] = place
	r.mu.Unlock()
}

func (r *recorder) placeOf(name string) (api.ComputePlace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[name]
	return p, ok
}

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	return l, &buf
}

func newRuntime(t *testing.T, cfg *control.Config, topo *topology.Topology, opts ...facade.Option) (*facade.Runtime, *recorder) {
	t.Helper()
	rec := &recorder{places: make(map[string]api.ComputePlace)}
	l, _ := quietLogger()
	rt, err := facade.New(cfg, topo, rec.run, append([]facade.Option{facade.WithLogger(l)}, opts...)...)
	require.NoError(t, err)
	return rt, rec
}

func deviceConfig(count int) *control.Config {
	cfg := control.DefaultConfig()
	cfg.Devices = control.DevicesConfig{Type: "cuda", Count: count}
	cfg.Dependencies.Granularity = "region"
	cfg.Workers.ParkInterval = 2 * time.Millisecond
	return cfg
}

func TestRuntime_Lifecycle(t *testing.T) {
	rt, rec := newRuntime(t, nil, topology.Uniform(2, 2))
	assert.NotEqual(t, uuid.Nil, rt.ID())
	assert.False(t, rt.Collapsed())

	require.NoError(t, rt.Shutdown(), "shutdown before start is a no-op")
	require.NoError(t, rt.Start(context.Background()))
	assert.ErrorIs(t, rt.Start(context.Background()), api.ErrAlreadyStarted)

	rt.Submit(fake.NewTask("a").OnNode(1), nil, api.ChildTask)
	rt.TaskGetsUnblocked(fake.NewTask("b"), rt.Topology().CPU(0))
	require.Eventually(t, func() bool {
		_, a := rec.placeOf("a")
		_, b := rec.placeOf("b")
		return a && b
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, rt.Shutdown())
	assert.Zero(t, rt.IdleCPUs())

	// a stopped runtime can be started again
	require.NoError(t, rt.Start(context.Background()))
	rt.Submit(fake.NewTask("c"), nil, api.NoHint)
	require.Eventually(t, func() bool { _, ok := rec.placeOf("c"); return ok }, 2*time.Second, time.Millisecond)
	require.NoError(t, rt.Shutdown())
}

func TestRuntime_CollapsesSingleNode(t *testing.T) {
	rt, _ := newRuntime(t, nil, topology.Uniform(1, 3))
	assert.True(t, rt.Collapsed())
}

func TestRuntime_DeviceMemoryAndPlacement(t *testing.T) {
	alloc := fake.NewAllocator(2, 0x400000)
	rt, rec := newRuntime(t, deviceConfig(2), topology.Uniform(2, 1), facade.WithAllocator(alloc))
	require.Len(t, rt.Topology().DevicesOfType(api.CUDADevice), 2)

	small, err := rt.DeviceAlloc(100, 0)
	require.NoError(t, err)
	big, err := rt.DeviceAlloc(300, 1)
	require.NoError(t, err)

	res, ok := rt.DeviceLookup(big + 50)
	require.True(t, ok)
	assert.Equal(t, facade.Residency{Size: 250, Device: 1}, res)

	task := fake.NewTask("kernel").
		OnDevice(api.CUDADevice, -1).
		Access(small, 100, api.ReadAccess, false).
		Access(big, 300, api.WriteAccess, false)
	assert.Equal(t, 1, rt.ComputeDeviceAffinity(task))

	require.NoError(t, rt.Start(context.Background()))
	defer rt.Shutdown()
	rt.Submit(task, nil, api.ChildTask)
	require.Eventually(t, func() bool { _, ok := rec.placeOf("kernel"); return ok }, 2*time.Second, time.Millisecond)
	place, _ := rec.placeOf("kernel")
	assert.Equal(t, api.CUDADevice, place.Type())
	assert.Equal(t, 1, place.Index(), "placed by data affinity")

	require.NoError(t, rt.DeviceFree(small))
	require.NoError(t, rt.DeviceFree(big))
	_, ok = rt.DeviceLookup(big)
	assert.False(t, ok)
	assert.Zero(t, alloc.Live())
}

func TestRuntime_NoDevices(t *testing.T) {
	rt, _ := newRuntime(t, nil, topology.Uniform(1, 1))
	_, err := rt.DeviceAlloc(16, 0)
	assert.ErrorIs(t, err, api.ErrNotSupported)
	assert.ErrorIs(t, rt.DeviceFree(1), api.ErrNotSupported)
	_, ok := rt.DeviceLookup(1)
	assert.False(t, ok)
	assert.Zero(t, rt.ComputeDeviceAffinity(fake.NewTask("x")))
}

func TestRuntime_DisableEnableCPU(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Workers.ParkInterval = time.Second
	rt, rec := newRuntime(t, cfg, topology.Uniform(1, 1))
	assert.ErrorIs(t, rt.DisableCPU(4), api.ErrNotFound)
	assert.ErrorIs(t, rt.EnableCPU(-1), api.ErrNotFound)

	require.NoError(t, rt.Start(context.Background()))
	defer rt.Shutdown()
	require.Eventually(t, func() bool { return rt.IdleCPUs() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, rt.DisableCPU(0))
	assert.Zero(t, rt.IdleCPUs())
	rt.Submit(fake.NewTask("held"), nil, api.ChildTask)
	time.Sleep(20 * time.Millisecond)
	_, ran := rec.placeOf("held")
	assert.False(t, ran)

	require.NoError(t, rt.EnableCPU(0))
	require.Eventually(t, func() bool { _, ok := rec.placeOf("held"); return ok }, time.Second, time.Millisecond)
}

func TestRuntime_EnableEnabledCPUIsNoop(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Workers.ParkInterval = time.Second
	rt, rec := newRuntime(t, cfg, topology.Uniform(1, 1))
	require.NoError(t, rt.Start(context.Background()))
	require.Eventually(t, func() bool { return rt.IdleCPUs() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, rt.EnableCPU(0))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rt.IdleCPUs())

	rt.Submit(fake.NewTask("later"), nil, api.ChildTask)
	require.Eventually(t, func() bool { _, ok := rec.placeOf("later"); return ok }, time.Second, time.Millisecond)
	require.NoError(t, rt.Shutdown())
	assert.EqualValues(t, 1, rt.Control().Stats()["tasks_submitted"])
}

func TestRuntime_ControlSurface(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Workers.MaintenanceInterval = time.Millisecond
	l, _ := quietLogger()
	rt, err := facade.New(cfg, topology.Uniform(2, 1), func(api.Task, api.ComputePlace) {}, facade.WithLogger(l))
	require.NoError(t, err)

	ctrl := rt.Control()
	assert.Equal(t, "plain", ctrl.GetConfig()["scheduler.policy"])
	assert.ErrorIs(t, ctrl.SetConfig(map[string]any{"scheduler.policy": "priority"}), api.ErrNotSupported)

	require.NoError(t, ctrl.SetConfig(map[string]any{"log.level": "debug"}))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	require.NoError(t, ctrl.SetConfig(map[string]any{"log.level": "nonsense"}))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel(), "invalid level ignored")

	require.NoError(t, rt.Start(context.Background()))
	require.Eventually(t, func() bool {
		_, ok := ctrl.Stats()["maintenance.last"]
		return ok
	}, time.Second, time.Millisecond)
	require.NoError(t, rt.Shutdown())

	stats := ctrl.Stats()
	assert.Contains(t, stats, "idle_cpus")
	assert.Contains(t, stats, "ready.host")
	assert.Contains(t, stats, "debug.scheduler")
}

func TestNew_RejectsBadInput(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Scheduler.Policy = "lifo"
	_, err := facade.New(cfg, topology.Uniform(1, 1), func(api.Task, api.ComputePlace) {})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = facade.New(nil, topology.Uniform(1, 1), nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = facade.New(deviceConfig(2), topology.Uniform(1, 1), func(api.Task, api.ComputePlace) {},
		facade.WithAllocator(fake.NewAllocator(3, 0x1000)))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
