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

// Package store persists the route table.
//
// The state file is the synchronization boundary between the
// reconciliation loop (sole writer) and the read API (load-per-request
// readers), so saves must be atomic: a reader sees either the pre- or
// post-cycle table, never a partial write.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/portgate/portgate/internal/route"
)

// Store manages persistence of the route table.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a store backed by the given state file path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Load reads the persisted route table. A missing, unreadable, or
// corrupt state file yields an empty table so the reconciliation loop
// is self-healing; the condition is logged, never propagated.
func (s *Store) Load() route.Table {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state file unreadable, starting fresh",
				slog.String("path", s.path), slog.Any("error", err))
		}
		return route.Table{}
	}

	var table route.Table
	if err := json.Unmarshal(data, &table); err != nil {
		s.logger.Warn("state file corrupt, starting fresh",
			slog.String("path", s.path), slog.Any("error", err))
		return route.Table{}
	}
	if table == nil {
		table = route.Table{}
	}
	return table
}

// Save persists the route table. Output is deterministic (JSON object
// keys are emitted in sorted order), so saving an unchanged table
// produces byte-identical content. The write goes to a temporary file
// followed by an atomic rename.
func (s *Store) Save(table route.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal route table: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup temp file
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}
