// File: internal/concurrency/leader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Leader is the maintenance loop. Termination is driven by its context.
type Leader struct {
	interval time.Duration
	tick     func(now time.Time)
	log      *logrus.Entry
	ticks    int64
}

// NewLeader creates a leader calling tick every interval.
func NewLeader(interval time.Duration, tick func(now time.Time), log *logrus.Entry) *Leader {
	if interval <= 0 {
		interval = time.Millisecond
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Leader{interval: interval, tick: tick, log: log.WithField("role", "leader")}
}

// Run ticks until ctx ends and returns the number of ticks performed.
func (l *Leader) Run(ctx context.Context) int64 {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.log.WithField("interval", l.interval).Debug("leader started")
	for {
		select {
		case <-ctx.Done():
			l.log.WithField("ticks", l.ticks).Debug("leader stopped")
			return l.ticks
		case now := <-ticker.C:
			l.tick(now)
			l.ticks++
		}
	}
}
