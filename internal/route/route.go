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

// Package route defines the routing table shared across portgate.
package route

import "sort"

// Route maps a public token to a backend TCP port. Token and port are
// set once at creation and never mutated; CreatedAt is informational.
type Route struct {
	Port      int   `json:"port"`
	CreatedAt int64 `json:"created_at"`
}

// Table is the route table keyed by token. Tokens are unique and at
// most one route exists per port.
type Table map[string]Route

// Ports returns the set of ports currently routed.
func (t Table) Ports() map[int]struct{} {
	ports := make(map[int]struct{}, len(t))
	for _, r := range t {
		ports[r.Port] = struct{}{}
	}
	return ports
}

// Tokens returns all tokens in ascending order.
func (t Table) Tokens() []string {
	tokens := make([]string, 0, len(t))
	for token := range t {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Has reports whether the token is present.
func (t Table) Has(token string) bool {
	_, ok := t[token]
	return ok
}

// Clone returns a shallow copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for token, r := range t {
		out[token] = r
	}
	return out
}
