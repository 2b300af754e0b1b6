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

// Package reconcile drives the discover/diff/publish cycle that keeps
// the route table aligned with the monitored container.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/portgate/portgate/internal/config"
	internallog "github.com/portgate/portgate/internal/log"
	"github.com/portgate/portgate/internal/route"
	"github.com/portgate/portgate/internal/route/discovery"
	"github.com/portgate/portgate/internal/route/history"
	"github.com/portgate/portgate/internal/route/store"
	"github.com/portgate/portgate/internal/route/token"
)

// Publisher renders the route table for the gateway and triggers a
// reload.
type Publisher interface {
	Publish(ctx context.Context, table route.Table) error
}

// Result reports one reconciliation cycle, stage by stage. A cycle is
// never allowed to panic or abort the loop; callers inspect the fields
// to classify what happened.
type Result struct {
	// Discovered is the number of listening ports observed.
	Discovered int

	// Added and Removed are the route table mutations applied.
	Added   int
	Removed int

	// Changed reports whether the table was mutated (and therefore
	// persisted and published).
	Changed bool

	// Skipped reports that the cycle aborted without touching the table
	// because discovery failed under the preserve policy.
	Skipped bool

	// Per-stage failures. DiscoveryErr is set whenever the scan failed,
	// regardless of policy.
	DiscoveryErr error
	SaveErr      error
	PublishErr   error
}

// Err returns the first stage error, or nil for a clean cycle.
func (r Result) Err() error {
	switch {
	case r.DiscoveryErr != nil:
		return r.DiscoveryErr
	case r.SaveErr != nil:
		return r.SaveErr
	case r.PublishErr != nil:
		return r.PublishErr
	}
	return nil
}

// Reconciler runs reconciliation cycles. It is the sole writer of the
// route table and the map artifact; it must not be invoked
// concurrently with itself.
type Reconciler struct {
	store       *store.Store
	scanner     discovery.Scanner
	publisher   Publisher
	history     *history.Store // optional
	tokenLength int
	policy      config.DiscoveryErrorPolicy
	logger      *slog.Logger
	now         func() time.Time
}

// Options configures a Reconciler.
type Options struct {
	Store       *store.Store
	Scanner     discovery.Scanner
	Publisher   Publisher
	History     *history.Store // nil disables event recording
	TokenLength int
	Policy      config.DiscoveryErrorPolicy
	Logger      *slog.Logger
}

// New creates a Reconciler.
func New(opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokenLength := opts.TokenLength
	if tokenLength <= 0 {
		tokenLength = config.DefaultTokenLength
	}
	policy := opts.Policy
	if policy == "" {
		policy = config.PolicyPreserve
	}
	return &Reconciler{
		store:       opts.Store,
		scanner:     opts.Scanner,
		publisher:   opts.Publisher,
		history:     opts.History,
		tokenLength: tokenLength,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// Reconcile runs one cycle: load the table, scan for listening ports,
// allocate routes for new ports, prune routes whose port disappeared,
// and on any change persist the table and publish the gateway map.
// When nothing changed the cycle performs no I/O beyond the initial
// load, so repeated invocation with unchanged external state is
// idempotent.
func (r *Reconciler) Reconcile(ctx context.Context) Result {
	var res Result

	table := r.store.Load()

	ports, err := r.scanner.Scan(ctx)
	if err != nil {
		res.DiscoveryErr = err
		discoveryErrors.Inc()
		if r.policy == config.PolicyPreserve {
			// Keep the previous table; a transient scan failure must not
			// look like every backend port disappearing.
			res.Skipped = true
			cycleTotal.WithLabelValues("skipped").Inc()
			return res
		}
		ports = nil
	}
	res.Discovered = len(ports)

	res.Added = r.addNew(ctx, table, ports)
	res.Removed = r.pruneStale(ctx, table, ports)
	res.Changed = res.Added > 0 || res.Removed > 0

	if res.Changed {
		if err := r.store.Save(table); err != nil {
			res.SaveErr = err
		}
		if err := r.publisher.Publish(ctx, table); err != nil {
			res.PublishErr = err
			publishTotal.WithLabelValues("error").Inc()
		} else {
			publishTotal.WithLabelValues("ok").Inc()
		}
	}

	routesCreated.Add(float64(res.Added))
	routesRemoved.Add(float64(res.Removed))
	activeRoutes.Set(float64(len(table)))
	if res.Err() != nil {
		cycleTotal.WithLabelValues("error").Inc()
	} else {
		cycleTotal.WithLabelValues("ok").Inc()
	}
	return res
}

// addNew allocates a route for every discovered port that has none.
// Additions are unordered set operations; only the save ordering is
// deterministic.
func (r *Reconciler) addNew(ctx context.Context, table route.Table, ports []int) int {
	existing := table.Ports()
	added := 0
	for _, port := range ports {
		if _, ok := existing[port]; ok {
			continue
		}
		tok, err := token.Allocate(r.tokenLength, table.Has)
		if err != nil {
			// Random source failure; leave the port for the next cycle.
			r.logger.Error("token allocation failed", slog.Int(internallog.PortKey, port),
				slog.Any("error", err))
			continue
		}
		table[tok] = route.Route{Port: port, CreatedAt: r.now().Unix()}
		added++
		r.record(ctx, history.EventCreated, tok, port)
	}
	return added
}

// pruneStale removes routes whose port is no longer listening.
func (r *Reconciler) pruneStale(ctx context.Context, table route.Table, ports []int) int {
	active := make(map[int]struct{}, len(ports))
	for _, p := range ports {
		active[p] = struct{}{}
	}
	removed := 0
	for tok, rt := range table {
		if _, ok := active[rt.Port]; ok {
			continue
		}
		delete(table, tok)
		removed++
		r.record(ctx, history.EventRemoved, tok, rt.Port)
	}
	return removed
}

// record appends a route event; history failures never affect the cycle.
func (r *Reconciler) record(ctx context.Context, eventType, tok string, port int) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, eventType, tok, port); err != nil {
		r.logger.Warn("failed to record route event",
			slog.String("event", eventType),
			slog.String(internallog.TokenKey, tok),
			slog.Any("error", err))
	}
}
