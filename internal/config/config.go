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

// Package config builds the immutable portgate configuration.
//
// Configuration is resolved once at startup: built-in defaults, then an
// optional YAML file (PORTGATE_CONFIG), then PORTGATE_* environment
// variables. Malformed values fall back to their defaults rather than
// failing startup, so a bad environment never prevents the daemon from
// coming up.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DiscoveryErrorPolicy controls how a failed port scan is treated.
type DiscoveryErrorPolicy string

const (
	// PolicyPreserve keeps the previous route table when discovery fails.
	// The cycle is skipped and retried on the next tick.
	PolicyPreserve DiscoveryErrorPolicy = "preserve"

	// PolicyFlush treats a discovery failure as "zero ports observed",
	// which removes every route on the next cycle.
	PolicyFlush DiscoveryErrorPolicy = "flush"
)

// Defaults for every configuration knob.
const (
	DefaultTargetContainer  = "portgate-backend"
	DefaultGatewayContainer = "portgate-gateway"
	DefaultMapFile          = "/token_map/token_map.conf"
	DefaultStateFile        = "/data/routes.json"
	DefaultScanInterval     = 5 * time.Second
	DefaultTokenLength      = 12
	DefaultPortRangeStart   = 3000
	DefaultPortRangeEnd     = 9999
	DefaultListenAddr       = ":7070"
	DefaultExecTimeout      = 10 * time.Second
)

// DefaultExcludePorts is the default port exclusion set.
var DefaultExcludePorts = []int{4096}

// RateLimitConfig configures optional per-client rate limiting on the
// read API.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// Config holds the complete portgate configuration. It is constructed
// once at startup and passed by reference; nothing reads ambient
// environment state after Load returns.
type Config struct {
	// TargetContainer is the container whose listening ports are scanned.
	TargetContainer string `yaml:"target_container"`

	// GatewayContainer is the container running the gateway to reload.
	GatewayContainer string `yaml:"gateway_container"`

	// MapFile is where the gateway map artifact is written.
	MapFile string `yaml:"map_file"`

	// StateFile is the durable route table location.
	StateFile string `yaml:"state_file"`

	// HistoryFile is the sqlite route-event database. Empty disables
	// route history.
	HistoryFile string `yaml:"history_file"`

	// ScanInterval is the reconciliation tick interval.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// TokenLength is the generated token length in characters.
	TokenLength int `yaml:"token_length"`

	// PortRangeStart and PortRangeEnd bound discovered ports (inclusive).
	PortRangeStart int `yaml:"port_range_start"`
	PortRangeEnd   int `yaml:"port_range_end"`

	// ExcludePorts are ports never routed even when inside the range.
	ExcludePorts []int `yaml:"exclude_ports"`

	// PublicBaseURL prefixes the public URL returned by the read API.
	PublicBaseURL string `yaml:"public_base_url"`

	// Username and Password enable basic auth on the read API when
	// Password is non-empty.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ListenAddr is the read API listen address.
	ListenAddr string `yaml:"listen_addr"`

	// ExecTimeout bounds each docker exec invocation.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	// OnDiscoveryError selects the failed-scan policy.
	OnDiscoveryError DiscoveryErrorPolicy `yaml:"on_discovery_error"`

	// RateLimit configures read API rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		TargetContainer:  DefaultTargetContainer,
		GatewayContainer: DefaultGatewayContainer,
		MapFile:          DefaultMapFile,
		StateFile:        DefaultStateFile,
		ScanInterval:     DefaultScanInterval,
		TokenLength:      DefaultTokenLength,
		PortRangeStart:   DefaultPortRangeStart,
		PortRangeEnd:     DefaultPortRangeEnd,
		ExcludePorts:     append([]int(nil), DefaultExcludePorts...),
		ListenAddr:       DefaultListenAddr,
		ExecTimeout:      DefaultExecTimeout,
		OnDiscoveryError: PolicyPreserve,
	}
}

// Load builds the configuration from defaults, the optional YAML file
// named by PORTGATE_CONFIG, and PORTGATE_* environment variables.
func Load() *Config {
	cfg := Default()

	if path := os.Getenv("PORTGATE_CONFIG"); path != "" {
		// A missing or unparsable file is ignored; defaults apply.
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	envString(&c.TargetContainer, "PORTGATE_TARGET_CONTAINER")
	envString(&c.GatewayContainer, "PORTGATE_GATEWAY_CONTAINER")
	envString(&c.MapFile, "PORTGATE_MAP_FILE")
	envString(&c.StateFile, "PORTGATE_STATE_FILE")
	envString(&c.HistoryFile, "PORTGATE_HISTORY_FILE")
	envString(&c.PublicBaseURL, "PORTGATE_PUBLIC_BASE_URL")
	envString(&c.Username, "PORTGATE_USERNAME")
	envString(&c.Password, "PORTGATE_PASSWORD")
	envString(&c.ListenAddr, "PORTGATE_LISTEN_ADDR")

	envSeconds(&c.ScanInterval, "PORTGATE_SCAN_INTERVAL")
	envSeconds(&c.ExecTimeout, "PORTGATE_EXEC_TIMEOUT")
	envInt(&c.TokenLength, "PORTGATE_TOKEN_LENGTH")

	if v := os.Getenv("PORTGATE_PORT_RANGE"); v != "" {
		if start, end, ok := ParsePortRange(v); ok {
			c.PortRangeStart, c.PortRangeEnd = start, end
		}
	}
	if v, set := os.LookupEnv("PORTGATE_EXCLUDE_PORTS"); set {
		c.ExcludePorts = ParseExcludePorts(v)
	}
	if v := os.Getenv("PORTGATE_ON_DISCOVERY_ERROR"); v != "" {
		c.OnDiscoveryError = DiscoveryErrorPolicy(strings.ToLower(v))
	}
}

// normalize repairs out-of-range values so downstream components never
// see a degenerate configuration.
func (c *Config) normalize() {
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = DefaultExecTimeout
	}
	if c.TokenLength <= 0 {
		c.TokenLength = DefaultTokenLength
	}
	if c.PortRangeStart > c.PortRangeEnd {
		c.PortRangeStart, c.PortRangeEnd = c.PortRangeEnd, c.PortRangeStart
	}
	switch c.OnDiscoveryError {
	case PolicyPreserve, PolicyFlush:
	default:
		c.OnDiscoveryError = PolicyPreserve
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	sort.Ints(c.ExcludePorts)
}

// ExcludeSet returns the exclusion list as a set.
func (c *Config) ExcludeSet() map[int]struct{} {
	set := make(map[int]struct{}, len(c.ExcludePorts))
	for _, p := range c.ExcludePorts {
		set[p] = struct{}{}
	}
	return set
}

// AuthEnabled reports whether the read API requires basic auth.
func (c *Config) AuthEnabled() bool {
	return c.Password != ""
}

var portRangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ParsePortRange parses a "start-end" range string. The bounds are
// swapped if given in reverse order.
func ParsePortRange(value string) (start, end int, ok bool) {
	m := portRangePattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if start > end {
		start, end = end, start
	}
	return start, end, true
}

// ParseExcludePorts parses a comma-separated port list, skipping
// anything that is not an integer.
func ParseExcludePorts(value string) []int {
	var ports []int
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		p, err := strconv.Atoi(item)
		if err != nil {
			continue
		}
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// PortRange renders the inclusive port range for logging.
func (c *Config) PortRange() string {
	return fmt.Sprintf("%d-%d", c.PortRangeStart, c.PortRangeEnd)
}

func envString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// envSeconds reads an integer number of seconds, matching the original
// deployment's environment contract.
func envSeconds(dst *time.Duration, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}
