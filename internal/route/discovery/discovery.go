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

// Package discovery finds TCP ports actively listening inside the
// monitored container.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/portgate/portgate/internal/runcmd"
)

// stateListen is the /proc/net/tcp connection-state code for LISTEN.
const stateListen = "0A"

// Scanner discovers listening TCP ports.
type Scanner interface {
	// Scan returns the filtered, ascending set of listening ports.
	Scan(ctx context.Context) ([]int, error)
}

// Config configures a DockerScanner.
type Config struct {
	// Container is the monitored container name.
	Container string

	// RangeStart and RangeEnd bound reported ports (inclusive).
	RangeStart int
	RangeEnd   int

	// Exclude are ports never reported even when inside the range.
	Exclude map[int]struct{}
}

// DockerScanner reads the kernel TCP listener tables of a container via
// docker exec.
type DockerScanner struct {
	cfg    Config
	runner runcmd.Runner
}

// New creates a DockerScanner.
func New(cfg Config, runner runcmd.Runner) *DockerScanner {
	return &DockerScanner{cfg: cfg, runner: runner}
}

// Scan reads /proc/net/tcp and /proc/net/tcp6 inside the target
// container and returns the filtered listening ports sorted ascending.
// The error is the subprocess failure, if any; the caller chooses how
// to treat it.
func (s *DockerScanner) Scan(ctx context.Context) ([]int, error) {
	out, err := s.runner.Run(ctx, "docker", "exec", s.cfg.Container,
		"sh", "-c", "cat /proc/net/tcp /proc/net/tcp6")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.cfg.Container, err)
	}
	return s.filter(ParseProcNetTCP(out)), nil
}

// filter applies the exclusion set and port range, returning a sorted
// slice.
func (s *DockerScanner) filter(ports map[int]struct{}) []int {
	var out []int
	for port := range ports {
		if _, excluded := s.cfg.Exclude[port]; excluded {
			continue
		}
		if port < s.cfg.RangeStart || port > s.cfg.RangeEnd {
			continue
		}
		out = append(out, port)
	}
	sort.Ints(out)
	return out
}

// ParseProcNetTCP extracts listening ports from /proc/net/tcp style
// output. Each data row has the local address in field 2 as
// "ip:hexPort" and the connection state in field 4 as a two-hex-digit
// code. Header rows, blank lines, short rows, and rows with a
// non-hexadecimal port are skipped. Ports repeated across the v4 and v6
// tables are de-duplicated.
func ParseProcNetTCP(output string) map[int]struct{} {
	ports := make(map[int]struct{})
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "sl") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		if fields[3] != stateListen {
			continue
		}
		local := fields[1]
		idx := strings.LastIndex(local, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.ParseInt(local[idx+1:], 16, 32)
		if err != nil {
			continue
		}
		ports[int(port)] = struct{}{}
	}
	return ports
}
