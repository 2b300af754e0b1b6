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

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portgate/portgate/internal/config"
	"github.com/portgate/portgate/internal/daemon"
	"github.com/portgate/portgate/internal/route/store"
)

// newServeCommand creates the serve command: the reconciliation loop
// plus the HTTP read API, running until SIGINT/SIGTERM.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation loop and read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			d, err := daemon.New(cfg, daemon.Options{
				Version:   version,
				Commit:    commit,
				BuildDate: buildDate,
			})
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return d.Start(ctx)
		},
	}
}

// newSyncCommand creates the sync command: exactly one reconciliation
// cycle, then exit. Useful for cron-style deployments and debugging.
func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single reconciliation cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()

			rec, _, hist := daemon.NewReconciler(cfg, logger)
			if hist != nil {
				defer hist.Close()
			}

			res := rec.Reconcile(cmd.Context())
			if err := res.Err(); err != nil {
				return err
			}

			cmd.Printf("discovered %d port(s), added %d route(s), removed %d route(s)\n",
				res.Discovered, res.Added, res.Removed)
			return nil
		},
	}
}

// newRoutesCommand creates the routes command: print the persisted
// route table.
func newRoutesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the persisted route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			table := store.New(cfg.StateFile, slog.Default()).Load()

			if asJSON {
				data, err := json.MarshalIndent(table, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal route table: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			for _, token := range table.Tokens() {
				cmd.Printf("%s -> %d\n", token, table[token].Port)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
