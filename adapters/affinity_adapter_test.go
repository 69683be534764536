package adapters_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/adapters"
	"github.com/momentics/hioload-sched/affinity"
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/topology"
)

func TestAffinityAdapter_RejectsMissingTarget(t *testing.T) {
	a := adapters.NewAffinityAdapter(topology.Uniform(1, 2))
	assert.ErrorIs(t, a.Pin(-1, -1), api.ErrInvalidArgument)
	assert.ErrorIs(t, a.Pin(-1, 5), api.ErrInvalidArgument)
}

func TestAffinityAdapter_PinGetUnpin(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux only")
	}
	topo, err := topology.Detect()
	require.NoError(t, err)
	procCPUs, err := affinity.ProcessCPUs()
	require.NoError(t, err)

	a := adapters.NewAffinityAdapter(topo)
	target := topo.CPUs[len(topo.CPUs)-1]
	require.NoError(t, a.Pin(target.SystemIndex(), -1))
	cpu, node, err := a.Get()
	require.NoError(t, err)
	assert.Equal(t, target.SystemIndex(), cpu)
	assert.Equal(t, target.NUMANode(), node)

	require.NoError(t, a.Unpin())
	cpus, err := affinity.ThreadCPUs()
	require.NoError(t, err)
	assert.Equal(t, procCPUs, cpus)
}
