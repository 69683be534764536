package fatal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
)

func TestFail_LogsAndPanicsWithStructuredError(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	SetLogger(l)
	defer SetLogger(nil)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		Fail(api.ErrCodeNotFound, "device address not registered", logrus.Fields{"address": 42})
	}()

	apiErr, ok := recovered.(*api.Error)
	require.True(t, ok, "panic payload should be *api.Error, got %T", recovered)
	assert.Equal(t, api.ErrCodeNotFound, apiErr.Code)
	assert.Equal(t, 42, apiErr.Context["address"])
	assert.True(t, errors.Is(apiErr, api.ErrNotFound))
	assert.Contains(t, buf.String(), "device address not registered")
	assert.Contains(t, buf.String(), "code=not_found")
}

func TestFailIf_FalseIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		FailIf(false, api.ErrCodeInternal, "unreachable", nil)
	})
	assert.Panics(t, func() {
		FailIf(true, api.ErrCodeInternal, "reached", nil)
	})
}
