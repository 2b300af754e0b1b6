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

// Package publisher renders the gateway map artifact and triggers
// gateway reloads.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	internallog "github.com/portgate/portgate/internal/log"
	"github.com/portgate/portgate/internal/route"
	"github.com/portgate/portgate/internal/runcmd"
)

// mapHeader is the first line of every generated map file.
const mapHeader = "# token -> port mapping (auto generated)"

// Config configures a Publisher.
type Config struct {
	// MapFile is where the map artifact is written.
	MapFile string

	// GatewayContainer is the container running the gateway.
	GatewayContainer string
}

// Publisher writes the token map file and reloads the gateway.
type Publisher struct {
	cfg    Config
	runner runcmd.Runner
	logger *slog.Logger
}

// New creates a Publisher.
func New(cfg Config, runner runcmd.Runner, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, runner: runner, logger: logger}
}

// Publish writes the map artifact and signals the gateway to reload.
// A failed reload is logged and swallowed: the gateway keeps serving
// the previous map until the next successful publish. A failed artifact
// write is returned, since nothing was published at all.
func (p *Publisher) Publish(ctx context.Context, table route.Table) error {
	if err := p.writeMap(table); err != nil {
		return err
	}
	if err := p.reload(ctx); err != nil {
		p.logger.Warn("gateway reload failed, keeping previous map active",
			slog.String(internallog.ContainerKey, p.cfg.GatewayContainer),
			slog.Any("error", err))
	}
	return nil
}

// Render produces the map artifact content: the header comment followed
// by one "<token> <port>;" directive per route in token order. Routes
// without a port are skipped.
func Render(table route.Table) string {
	var b strings.Builder
	b.WriteString(mapHeader)
	b.WriteByte('\n')
	for _, token := range table.Tokens() {
		r := table[token]
		if r.Port == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s %d;\n", token, r.Port)
	}
	return b.String()
}

// writeMap writes the artifact with the same tmp-and-rename strategy as
// the state file, so the gateway never reads a torn map.
func (p *Publisher) writeMap(table route.Table) error {
	dir := filepath.Dir(p.cfg.MapFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create map directory: %w", err)
	}

	tmpPath := p.cfg.MapFile + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(Render(table)), 0644); err != nil {
		return fmt.Errorf("write map file: %w", err)
	}
	if err := os.Rename(tmpPath, p.cfg.MapFile); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename map file: %w", err)
	}
	return nil
}

// reload asks the gateway's nginx to re-read the map.
func (p *Publisher) reload(ctx context.Context) error {
	_, err := p.runner.Run(ctx, "docker", "exec", p.cfg.GatewayContainer,
		"nginx", "-s", "reload")
	return err
}
