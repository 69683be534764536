// File: internal/concurrency/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs the workers and the leader under one cancellable context.
type Group struct {
	cancel  context.CancelFunc
	eg      *errgroup.Group
	workers []*Worker
}

// Start launches every worker and, if non-nil, the leader.
func Start(parent context.Context, workers []*Worker, leader *Leader) *Group {
	ctx, cancel := context.WithCancel(parent)
	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		eg.Go(func() error { return w.Run(ctx) })
	}
	if leader != nil {
		eg.Go(func() error {
			leader.Run(ctx)
			return nil
		})
	}
	return &Group{cancel: cancel, eg: eg, workers: workers}
}

// Workers returns the workers in CPU order.
func (g *Group) Workers() []*Worker { return g.workers }

// Stop cancels the loops and waits for them. The first worker error, if
// any, is returned.
func (g *Group) Stop() error {
	g.cancel()
	return g.eg.Wait()
}
