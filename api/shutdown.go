// File: api/shutdown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops owned goroutines. Calling it on a stopped
// component is a no-op.
type GracefulShutdown interface {
	Shutdown() error
}
