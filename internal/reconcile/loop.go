// Copyright 2026 The Portgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loop runs the reconciler on a fixed interval in a single goroutine,
// so cycles can never overlap: a cycle that outlasts the interval
// simply drops the missed ticks.
type Loop struct {
	reconciler *Reconciler
	interval   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewLoop creates a loop running the reconciler every interval.
func NewLoop(r *Reconciler, interval time.Duration, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		reconciler: r,
		interval:   interval,
		logger:     logger,
	}
}

// Start starts the loop. The first cycle runs immediately rather than
// waiting out the first tick.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.run(ctx)
}

// Stop stops the loop and waits for any in-flight cycle to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	<-l.doneCh
}

// run is the main loop.
func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	l.cycle(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

// cycle runs one reconciliation and logs the outcome. Errors are logged
// here, at the loop boundary, and never stop the ticker.
func (l *Loop) cycle(ctx context.Context) {
	res := l.reconciler.Reconcile(ctx)

	switch {
	case res.Skipped:
		l.logger.Warn("discovery failed, preserving previous table",
			slog.Any("error", res.DiscoveryErr))
	case res.DiscoveryErr != nil:
		l.logger.Warn("discovery failed, treating as zero ports",
			slog.Any("error", res.DiscoveryErr))
	}
	if res.SaveErr != nil {
		l.logger.Error("failed to persist route table", slog.Any("error", res.SaveErr))
	}
	if res.PublishErr != nil {
		l.logger.Error("failed to publish gateway map", slog.Any("error", res.PublishErr))
	}
	if res.Changed {
		l.logger.Info("route table updated",
			slog.Int("discovered", res.Discovered),
			slog.Int("added", res.Added),
			slog.Int("removed", res.Removed))
	}
}
