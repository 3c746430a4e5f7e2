// Package config loads the monitor configuration file.
//
// The file is YAML. Every field has a default, so a missing file yields a
// usable configuration; values present in the file override defaults
// field by field.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the daemon looks for its configuration unless
// --config points elsewhere.
const DefaultPath = "/etc/dockmon/config.yaml"

// Config is the full configuration surface.
type Config struct {
	Database Database `yaml:"database"`
	Monitor  Monitor  `yaml:"monitor"`
	Log      Log      `yaml:"log"`
	Admin    Admin    `yaml:"admin"`
	NTP      NTP      `yaml:"ntp"`
}

// Database locates the snapshot store.
type Database struct {
	Path string `yaml:"path"` // SQLite file; parent directory is created on open
}

// Filters holds the raw monitoring filter patterns. Each entry is a
// regular expression matched unanchored and case-sensitive. Empty include
// lists mean no restriction; excludes always win.
type Filters struct {
	IncludeContainerNames []string `yaml:"include_container_names"`
	ExcludeContainerNames []string `yaml:"exclude_container_names"`
	IncludeImageNames     []string `yaml:"include_image_names"`
	ExcludeImageNames     []string `yaml:"exclude_image_names"`
}

// Monitor controls the collection cycle.
type Monitor struct {
	Hostname              string  `yaml:"hostname"` // override; default os.Hostname()
	RunPeriodically       bool    `yaml:"run_periodically"`
	PeriodSeconds         int     `yaml:"period_seconds"`
	IncludeStopped        bool    `yaml:"include_stopped"`
	CollectWorkers        int     `yaml:"collect_workers"`
	RuntimeTimeoutSeconds int     `yaml:"runtime_timeout_seconds"`
	UseSystemDFFallback   bool    `yaml:"use_system_df_fallback"`
	Filters               Filters `yaml:"filters"`
}

// Log controls the default logger.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // append target; empty logs to stderr
}

// Admin configures the daemon's local status endpoint.
type Admin struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// NTP configures the optional clock-skew probe. Snapshot timestamps feed
// time-series views, so drift is worth a warning.
type NTP struct {
	Enabled bool   `yaml:"enabled"`
	Server  string `yaml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database: Database{Path: "/var/lib/dockmon/dockmon.db"},
		Monitor: Monitor{
			PeriodSeconds:         60,
			IncludeStopped:        true,
			CollectWorkers:        4,
			RuntimeTimeoutSeconds: 30,
			UseSystemDFFallback:   true,
		},
		Log:   Log{Level: "info"},
		Admin: Admin{Addr: "127.0.0.1:9641"},
		NTP:   NTP{Server: "pool.ntp.org"},
	}
}

// Load reads the config file at path. A missing file is not an error:
// defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects structurally impossible configurations. Filter regexes
// are checked separately when compiled; both run before the first cycle.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Monitor.PeriodSeconds <= 0 {
		return fmt.Errorf("monitor.period_seconds must be positive, got %d", c.Monitor.PeriodSeconds)
	}
	if c.Monitor.CollectWorkers < 1 {
		return fmt.Errorf("monitor.collect_workers must be at least 1, got %d", c.Monitor.CollectWorkers)
	}
	if c.Monitor.RuntimeTimeoutSeconds <= 0 {
		return fmt.Errorf("monitor.runtime_timeout_seconds must be positive, got %d", c.Monitor.RuntimeTimeoutSeconds)
	}
	if c.NTP.Enabled && c.NTP.Server == "" {
		return errors.New("ntp.server must not be empty when ntp is enabled")
	}
	return nil
}

// Period returns the periodic-mode interval.
func (m Monitor) Period() time.Duration {
	return time.Duration(m.PeriodSeconds) * time.Second
}

// RuntimeTimeout returns the per-call runtime deadline.
func (m Monitor) RuntimeTimeout() time.Duration {
	return time.Duration(m.RuntimeTimeoutSeconds) * time.Second
}

// ResolveHostname returns the configured hostname override, falling back
// to the OS hostname.
func (m Monitor) ResolveHostname() (string, error) {
	if m.Hostname != "" {
		return m.Hostname, nil
	}
	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("resolve hostname: %w", err)
	}
	return name, nil
}
