package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.Monitor.PeriodSeconds, 60; got != want {
		t.Errorf("PeriodSeconds = %d, want %d", got, want)
	}
	if !cfg.Monitor.IncludeStopped {
		t.Error("IncludeStopped default should be true")
	}
	if !cfg.Monitor.UseSystemDFFallback {
		t.Error("UseSystemDFFallback default should be true")
	}
	if cfg.Database.Path == "" {
		t.Error("Database.Path default should not be empty")
	}
}

func TestLoadOverridesDefaultsFieldByField(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
database:
  path: /tmp/mon.db
monitor:
  run_periodically: true
  period_seconds: 15
  include_stopped: false
  filters:
    exclude_container_names: ["^dev-.*"]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.Database.Path, "/tmp/mon.db"; got != want {
		t.Errorf("Database.Path = %q, want %q", got, want)
	}
	if !cfg.Monitor.RunPeriodically {
		t.Error("RunPeriodically should be true")
	}
	if got, want := cfg.Monitor.PeriodSeconds, 15; got != want {
		t.Errorf("PeriodSeconds = %d, want %d", got, want)
	}
	if cfg.Monitor.IncludeStopped {
		t.Error("IncludeStopped should be overridden to false")
	}
	// Untouched fields keep their defaults.
	if got, want := cfg.Monitor.CollectWorkers, 4; got != want {
		t.Errorf("CollectWorkers = %d, want %d", got, want)
	}
	if got, want := cfg.Monitor.Filters.ExcludeContainerNames[0], "^dev-.*"; got != want {
		t.Errorf("ExcludeContainerNames[0] = %q, want %q", got, want)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("monitor: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(*Config) {}, ""},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero period", func(c *Config) { c.Monitor.PeriodSeconds = 0 }, "period_seconds"},
		{"zero workers", func(c *Config) { c.Monitor.CollectWorkers = 0 }, "collect_workers"},
		{"zero timeout", func(c *Config) { c.Monitor.RuntimeTimeoutSeconds = 0 }, "runtime_timeout_seconds"},
		{"ntp without server", func(c *Config) {
			c.NTP.Enabled = true
			c.NTP.Server = ""
		}, "ntp.server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveHostnamePrefersOverride(t *testing.T) {
	t.Parallel()

	m := Monitor{Hostname: "edge-01"}
	got, err := m.ResolveHostname()
	if err != nil {
		t.Fatalf("ResolveHostname: %v", err)
	}
	if got != "edge-01" {
		t.Errorf("ResolveHostname = %q, want %q", got, "edge-01")
	}

	m.Hostname = ""
	got, err = m.ResolveHostname()
	if err != nil {
		t.Fatalf("ResolveHostname: %v", err)
	}
	if got == "" {
		t.Error("ResolveHostname fallback should not be empty")
	}
}
