package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	t.Run("container defaults", func(t *testing.T) {
		if cfg.TargetContainer != "portgate-backend" {
			t.Errorf("TargetContainer = %v, want portgate-backend", cfg.TargetContainer)
		}
		if cfg.GatewayContainer != "portgate-gateway" {
			t.Errorf("GatewayContainer = %v, want portgate-gateway", cfg.GatewayContainer)
		}
	})

	t.Run("path defaults", func(t *testing.T) {
		if cfg.MapFile != "/token_map/token_map.conf" {
			t.Errorf("MapFile = %v", cfg.MapFile)
		}
		if cfg.StateFile != "/data/routes.json" {
			t.Errorf("StateFile = %v", cfg.StateFile)
		}
		if cfg.HistoryFile != "" {
			t.Errorf("HistoryFile should default to disabled, got %v", cfg.HistoryFile)
		}
	})

	t.Run("timing defaults", func(t *testing.T) {
		if cfg.ScanInterval != 5*time.Second {
			t.Errorf("ScanInterval = %v, want 5s", cfg.ScanInterval)
		}
		if cfg.ExecTimeout != 10*time.Second {
			t.Errorf("ExecTimeout = %v, want 10s", cfg.ExecTimeout)
		}
	})

	t.Run("port defaults", func(t *testing.T) {
		if cfg.PortRangeStart != 3000 || cfg.PortRangeEnd != 9999 {
			t.Errorf("port range = %d-%d, want 3000-9999", cfg.PortRangeStart, cfg.PortRangeEnd)
		}
		if len(cfg.ExcludePorts) != 1 || cfg.ExcludePorts[0] != 4096 {
			t.Errorf("ExcludePorts = %v, want [4096]", cfg.ExcludePorts)
		}
		if cfg.TokenLength != 12 {
			t.Errorf("TokenLength = %v, want 12", cfg.TokenLength)
		}
	})

	t.Run("policy default", func(t *testing.T) {
		if cfg.OnDiscoveryError != PolicyPreserve {
			t.Errorf("OnDiscoveryError = %v, want preserve", cfg.OnDiscoveryError)
		}
	})

	t.Run("auth disabled by default", func(t *testing.T) {
		if cfg.AuthEnabled() {
			t.Error("AuthEnabled should be false with no password")
		}
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTGATE_TARGET_CONTAINER", "mybackend")
	t.Setenv("PORTGATE_SCAN_INTERVAL", "30")
	t.Setenv("PORTGATE_TOKEN_LENGTH", "16")
	t.Setenv("PORTGATE_PORT_RANGE", "4000-5000")
	t.Setenv("PORTGATE_EXCLUDE_PORTS", "4096,4443")
	t.Setenv("PORTGATE_PUBLIC_BASE_URL", "https://example.com/")
	t.Setenv("PORTGATE_PASSWORD", "secret")
	t.Setenv("PORTGATE_ON_DISCOVERY_ERROR", "FLUSH")

	cfg := Load()

	if cfg.TargetContainer != "mybackend" {
		t.Errorf("TargetContainer = %v", cfg.TargetContainer)
	}
	if cfg.ScanInterval != 30*time.Second {
		t.Errorf("ScanInterval = %v, want 30s", cfg.ScanInterval)
	}
	if cfg.TokenLength != 16 {
		t.Errorf("TokenLength = %v, want 16", cfg.TokenLength)
	}
	if cfg.PortRangeStart != 4000 || cfg.PortRangeEnd != 5000 {
		t.Errorf("port range = %d-%d, want 4000-5000", cfg.PortRangeStart, cfg.PortRangeEnd)
	}
	if len(cfg.ExcludePorts) != 2 {
		t.Errorf("ExcludePorts = %v, want two entries", cfg.ExcludePorts)
	}
	if cfg.PublicBaseURL != "https://example.com" {
		t.Errorf("PublicBaseURL = %v, trailing slash should be trimmed", cfg.PublicBaseURL)
	}
	if !cfg.AuthEnabled() {
		t.Error("AuthEnabled should be true with a password set")
	}
	if cfg.OnDiscoveryError != PolicyFlush {
		t.Errorf("OnDiscoveryError = %v, want flush", cfg.OnDiscoveryError)
	}
}

func TestLoadMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("PORTGATE_SCAN_INTERVAL", "not-a-number")
	t.Setenv("PORTGATE_TOKEN_LENGTH", "-3")
	t.Setenv("PORTGATE_PORT_RANGE", "bogus")
	t.Setenv("PORTGATE_ON_DISCOVERY_ERROR", "explode")

	cfg := Load()

	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %v, want default", cfg.ScanInterval)
	}
	if cfg.TokenLength != DefaultTokenLength {
		t.Errorf("TokenLength = %v, want default", cfg.TokenLength)
	}
	if cfg.PortRangeStart != DefaultPortRangeStart || cfg.PortRangeEnd != DefaultPortRangeEnd {
		t.Errorf("port range = %d-%d, want defaults", cfg.PortRangeStart, cfg.PortRangeEnd)
	}
	if cfg.OnDiscoveryError != PolicyPreserve {
		t.Errorf("OnDiscoveryError = %v, want preserve", cfg.OnDiscoveryError)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portgate.yaml")
	content := "target_container: yaml-backend\ntoken_length: 20\nrate_limit:\n  enabled: true\n  requests_per_second: 5\n  burst_size: 10\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTGATE_CONFIG", path)

	cfg := Load()

	if cfg.TargetContainer != "yaml-backend" {
		t.Errorf("TargetContainer = %v, want yaml-backend", cfg.TargetContainer)
	}
	if cfg.TokenLength != 20 {
		t.Errorf("TokenLength = %v, want 20", cfg.TokenLength)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.BurstSize != 10 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestEnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portgate.yaml")
	if err := os.WriteFile(path, []byte("target_container: yaml-backend\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTGATE_CONFIG", path)
	t.Setenv("PORTGATE_TARGET_CONTAINER", "env-backend")

	cfg := Load()
	if cfg.TargetContainer != "env-backend" {
		t.Errorf("TargetContainer = %v, env should win over file", cfg.TargetContainer)
	}
}

func TestParsePortRange(t *testing.T) {
	tests := []struct {
		in        string
		start     int
		end       int
		ok        bool
	}{
		{"3000-9999", 3000, 9999, true},
		{"9999-3000", 3000, 9999, true}, // reversed bounds are swapped
		{"80-80", 80, 80, true},
		{" 3000-9999 ", 3000, 9999, true},
		{"", 0, 0, false},
		{"3000", 0, 0, false},
		{"a-b", 0, 0, false},
		{"3000-9999-1", 0, 0, false},
	}

	for _, tt := range tests {
		start, end, ok := ParsePortRange(tt.in)
		if ok != tt.ok || start != tt.start || end != tt.end {
			t.Errorf("ParsePortRange(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, start, end, ok, tt.start, tt.end, tt.ok)
		}
	}
}

func TestParseExcludePorts(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"4096", []int{4096}},
		{"4096,4443", []int{4096, 4443}},
		{"4443, 4096", []int{4096, 4443}},
		{"", nil},
		{"a,4096,b", []int{4096}},
		{",,", nil},
	}

	for _, tt := range tests {
		got := ParseExcludePorts(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseExcludePorts(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseExcludePorts(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
