// File: internal/fatal/fatal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package fatal aborts on programming-invariant violations and on
// unrecoverable resource exhaustion. The diagnostic is logged, then the
// goroutine panics with an *api.Error; left unrecovered, the panic
// terminates the process with a stack trace.
package fatal

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sched/api"
)

var logger atomic.Pointer[logrus.Logger]

func init() {
	logger.Store(logrus.StandardLogger())
}

// SetLogger redirects diagnostics. A nil logger restores the standard one.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger.Store(l)
}

// Fail logs the diagnostic and panics. It never returns.
func Fail(code api.ErrorCode, msg string, fields logrus.Fields) {
	err := api.NewError(code, msg)
	for k, v := range fields {
		err.WithContext(k, v)
	}
	logger.Load().WithFields(fields).WithField("code", code.String()).Error(msg)
	panic(err)
}

// FailIf calls Fail when cond holds. The fields are built either way, so
// hot paths test the condition themselves and call Fail.
func FailIf(cond bool, code api.ErrorCode, msg string, fields logrus.Fields) {
	if cond {
		Fail(code, msg, fields)
	}
}
