// control/hotreload.go
// Reload hook registry shared by the config store and its adapters.

package control

import "sync"

// ReloadHooks is a list of component reload listeners. The zero value is
// ready to use.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func()
}

// Register adds a listener.
func (r *ReloadHooks) Register(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Trigger dispatches all listeners asynchronously.
func (r *ReloadHooks) Trigger() {
	for _, fn := range r.snapshot() {
		go fn()
	}
}

// TriggerSync invokes all listeners on the calling goroutine, in
// registration order.
func (r *ReloadHooks) TriggerSync() {
	for _, fn := range r.snapshot() {
		fn()
	}
}

func (r *ReloadHooks) snapshot() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(){}, r.hooks...)
}
