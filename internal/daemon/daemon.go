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

// Package daemon assembles and runs the portgated process: the
// reconciliation loop plus the HTTP read API.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portgate/portgate/internal/config"
	"github.com/portgate/portgate/internal/daemon/api"
	"github.com/portgate/portgate/internal/daemon/auth"
	internallog "github.com/portgate/portgate/internal/log"
	"github.com/portgate/portgate/internal/reconcile"
	"github.com/portgate/portgate/internal/route/discovery"
	"github.com/portgate/portgate/internal/route/history"
	"github.com/portgate/portgate/internal/route/publisher"
	"github.com/portgate/portgate/internal/route/store"
	"github.com/portgate/portgate/internal/runcmd"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// Options contains daemon options set at build time.
type Options struct {
	Version   string
	Commit    string
	BuildDate string
}

// Daemon is the main portgated daemon.
type Daemon struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	store   *store.Store
	history *history.Store // nil when history is disabled
	loop    *reconcile.Loop
	server  *http.Server

	mu      sync.Mutex
	started bool
}

// NewReconciler wires a reconciler and its collaborators from the
// configuration. The returned history store is nil when history is
// disabled or its database cannot be opened.
func NewReconciler(cfg *config.Config, logger *slog.Logger) (*reconcile.Reconciler, *store.Store, *history.Store) {
	st := store.New(cfg.StateFile, logger)
	runner := runcmd.New(cfg.ExecTimeout)

	scanner := discovery.New(discovery.Config{
		Container:  cfg.TargetContainer,
		RangeStart: cfg.PortRangeStart,
		RangeEnd:   cfg.PortRangeEnd,
		Exclude:    cfg.ExcludeSet(),
	}, runner)

	pub := publisher.New(publisher.Config{
		MapFile:          cfg.MapFile,
		GatewayContainer: cfg.GatewayContainer,
	}, runner, logger)

	// History is optional; a broken event database must not keep the
	// routing plane down.
	var hist *history.Store
	if cfg.HistoryFile != "" {
		var err error
		hist, err = history.Open(cfg.HistoryFile)
		if err != nil {
			logger.Warn("route history unavailable",
				slog.String("path", cfg.HistoryFile),
				internallog.Error(err))
			hist = nil
		}
	}

	rec := reconcile.New(reconcile.Options{
		Store:       st,
		Scanner:     scanner,
		Publisher:   pub,
		History:     hist,
		TokenLength: cfg.TokenLength,
		Policy:      cfg.OnDiscoveryError,
		Logger:      internallog.WithComponent(logger, "reconcile"),
	})
	return rec, st, hist
}

// New creates a new daemon instance from the given configuration.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	logger := internallog.WithComponent(internallog.New(internallog.FromEnv()), "daemon")

	rec, st, hist := NewReconciler(cfg, logger)

	return &Daemon{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		store:   st,
		history: hist,
		loop:    reconcile.NewLoop(rec, cfg.ScanInterval, logger),
	}, nil
}

// Start runs the daemon and blocks until the context is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.started = true
	d.mu.Unlock()

	router := api.NewRouter(api.RouterConfig{
		Version:   d.opts.Version,
		Commit:    d.opts.Commit,
		BuildDate: d.opts.BuildDate,
	}, d.logger)

	api.NewRoutesHandler(d.store, d.cfg.PublicBaseURL).RegisterRoutes(router.Mux())
	if d.history != nil {
		api.NewEventsHandler(d.history).RegisterRoutes(router.Mux())
	}
	router.SetMetricsHandler(promhttp.Handler())

	authMw := auth.NewMiddleware(auth.Config{
		Username: d.cfg.Username,
		Password: d.cfg.Password,
		RateLimit: auth.RateLimitConfig{
			Enabled:           d.cfg.RateLimit.Enabled,
			RequestsPerSecond: d.cfg.RateLimit.RequestsPerSecond,
			BurstSize:         d.cfg.RateLimit.BurstSize,
		},
		PublicPaths: []string{"/v1/health", "/v1/version", "/metrics"},
	})

	d.server = &http.Server{
		Addr:         d.cfg.ListenAddr,
		Handler:      authMw.Wrap(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.cfg.ListenAddr, err)
	}

	d.logger.Info("portgated starting",
		slog.String("version", d.opts.Version),
		slog.String("listen_addr", ln.Addr().String()),
		slog.String("target", d.cfg.TargetContainer),
		slog.String("gateway", d.cfg.GatewayContainer),
		slog.String("port_range", d.cfg.PortRange()),
		slog.Duration("scan_interval", d.cfg.ScanInterval),
		slog.Bool("auth", d.cfg.AuthEnabled()))

	d.loop.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		d.shutdown()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		d.shutdown()
		return nil
	}
}

// shutdown stops the loop, drains the HTTP server, and closes the
// history database.
func (d *Daemon) shutdown() {
	d.logger.Info("portgated shutting down")

	d.loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.logger.Warn("http server shutdown", internallog.Error(err))
	}

	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("closing route history", internallog.Error(err))
		}
	}
}
