package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
)

func TestSetAffinity_RejectsBadInput(t *testing.T) {
	assert.ErrorIs(t, SetAffinity(), api.ErrInvalidArgument)
	assert.ErrorIs(t, SetAffinity(0, -2), api.ErrInvalidArgument)
}

func TestSetAndClearAffinity(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		t.Skip("thread affinity not supported")
	}
	procCPUs, err := ProcessCPUs()
	require.NoError(t, err)
	require.NotEmpty(t, procCPUs)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	target := procCPUs[len(procCPUs)-1]
	require.NoError(t, SetAffinity(target))
	cpus, err := ThreadCPUs()
	require.NoError(t, err)
	assert.Equal(t, []int{target}, cpus)

	require.NoError(t, ClearAffinity())
	cpus, err = ThreadCPUs()
	require.NoError(t, err)
	assert.Equal(t, procCPUs, cpus)
}
