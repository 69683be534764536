// Package api
// Author: momentics
//
// Scheduler contract shared by the flat, device and hierarchical variants.

package api

// Scheduler places ready tasks on compute places.
type Scheduler interface {
	// AddReadyTask queues task and may return an idle compute place that was
	// dispatched to run it. The caller is responsible for waking it.
	AddReadyTask(task Task, origin ComputePlace, hint ReadyTaskHint) ComputePlace

	// GetReadyTask returns the next task for place, or nil. hasIncompatibleWork
	// is true when work is pending in domains place cannot serve.
	GetReadyTask(place ComputePlace) (task Task, hasIncompatibleWork bool)

	// TaskGetsUnblocked re-inserts a task that was blocked.
	TaskGetsUnblocked(task Task, place ComputePlace)

	DisableComputePlace(place ComputePlace)
	EnableComputePlace(place ComputePlace)
}
