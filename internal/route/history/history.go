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

// Package history records route lifecycle events in SQLite.
//
// The event log is an audit trail, not routing state: losing it never
// affects reconciliation, so recording failures are logged by callers
// and otherwise ignored.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Event types.
const (
	EventCreated = "created"
	EventRemoved = "removed"
)

// Event is one recorded route lifecycle transition.
type Event struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Token string `json:"token"`
	Port  int    `json:"port"`
	At    int64  `json:"at"`
}

// Store provides SQLite-backed storage for route events.
type Store struct {
	db *sql.DB
}

// Open creates or opens the event database at path. The special value
// ":memory:" creates an in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// WAL mode lets the read API list events while the reconciler writes.
	connStr := path
	if path != ":memory:" {
		connStr += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS route_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		token TEXT NOT NULL,
		port INTEGER NOT NULL,
		at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_route_events_at ON route_events(at)`)
	return err
}

// Record appends one event.
func (s *Store) Record(ctx context.Context, eventType, token string, port int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO route_events (type, token, port, at) VALUES (?, ?, ?, ?)`,
		eventType, token, port, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record route event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, token, port, at FROM route_events ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query route events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Token, &e.Port, &e.At); err != nil {
			return nil, fmt.Errorf("scan route event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
